package repository

import (
	"time"

	"gorm.io/gorm"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	pkgErrors "hpc-portal/pkg/errors"
)

type FundingRepository interface {
	WithTx(tx *gorm.DB) FundingRepository

	CreateBody(body *model.FundingBody) error
	FindBodyByID(id int64) (*model.FundingBody, error)
	ListBodies() ([]*model.FundingBody, error)

	CreateSource(source *model.FundingSource) error
	FindSourceByID(id int64) (*model.FundingSource, error)
	FindSourcesByIDs(ids []int64) ([]*model.FundingSource, error)
	ListSources(query dto.FundingSourceListQuery, createdBy *int64) ([]*model.FundingSource, int64, error)
	ListSourcesByProject(projectID int64) ([]*model.FundingSource, error)
	ApproveSource(id int64) (bool, error)

	CreatePublication(publication *model.Publication) error
	FindPublicationsByIDs(ids []int64) ([]*model.Publication, error)
	ListPublications(query dto.PageQuery, createdBy *int64) ([]*model.Publication, int64, error)
}

type fundingRepository struct {
	db *gorm.DB
}

func NewFundingRepository(db *gorm.DB) FundingRepository {
	return &fundingRepository{db: db}
}

func (r *fundingRepository) WithTx(tx *gorm.DB) FundingRepository {
	return &fundingRepository{db: tx}
}

func (r *fundingRepository) CreateBody(body *model.FundingBody) error {
	if err := r.db.Create(body).Error; err != nil {
		return wrapWrite(err, "创建资助机构失败")
	}
	return nil
}

func (r *fundingRepository) FindBodyByID(id int64) (*model.FundingBody, error) {
	var body model.FundingBody
	if err := r.db.First(&body, id).Error; err != nil {
		return nil, wrapFind(err, "查询资助机构失败")
	}
	return &body, nil
}

func (r *fundingRepository) ListBodies() ([]*model.FundingBody, error) {
	var bodies []*model.FundingBody
	if err := r.db.Order("name ASC").Find(&bodies).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询资助机构失败", err)
	}
	return bodies, nil
}

func (r *fundingRepository) CreateSource(source *model.FundingSource) error {
	if err := r.db.Omit("FundingBody").Create(source).Error; err != nil {
		return wrapWrite(err, "创建资助来源失败")
	}
	return nil
}

func (r *fundingRepository) FindSourceByID(id int64) (*model.FundingSource, error) {
	var source model.FundingSource
	if err := r.db.Preload("FundingBody").First(&source, id).Error; err != nil {
		return nil, wrapFind(err, "查询资助来源失败")
	}
	return &source, nil
}

func (r *fundingRepository) FindSourcesByIDs(ids []int64) ([]*model.FundingSource, error) {
	var sources []*model.FundingSource
	if len(ids) == 0 {
		return sources, nil
	}
	if err := r.db.Where("id IN ?", ids).Find(&sources).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询资助来源失败", err)
	}
	return sources, nil
}

func (r *fundingRepository) ListSources(query dto.FundingSourceListQuery, createdBy *int64) ([]*model.FundingSource, int64, error) {
	var sources []*model.FundingSource
	var total int64

	db := r.db.Model(&model.FundingSource{})
	if createdBy != nil {
		db = db.Where("created_by_id = ?", *createdBy)
	}
	if query.Approved != nil {
		db = db.Where("approved = ?", *query.Approved)
	}
	if query.Keyword != "" {
		like := "%" + query.Keyword + "%"
		db = db.Where("title LIKE ? OR identifier LIKE ?", like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "统计资助来源数量失败", err)
	}
	err := db.Preload("FundingBody").
		Offset(query.GetOffset()).Limit(query.GetPageSize()).
		Order("id DESC").Find(&sources).Error
	if err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询资助来源列表失败", err)
	}
	return sources, total, nil
}

func (r *fundingRepository) ListSourcesByProject(projectID int64) ([]*model.FundingSource, error) {
	var sources []*model.FundingSource
	err := r.db.Joins("JOIN "+model.ProjectFundingSourceTable+" pfs ON pfs.funding_source_id = "+model.FundingSourceTableName+".id").
		Where("pfs.project_id = ?", projectID).
		Find(&sources).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询项目资助来源失败", err)
	}
	return sources, nil
}

// ApproveSource 条件更新, 已审批过返回 false
func (r *fundingRepository) ApproveSource(id int64) (bool, error) {
	result := r.db.Model(&model.FundingSource{}).
		Where("id = ? AND approved = ?", id, false).
		Updates(map[string]interface{}{"approved": true, "approved_at": time.Now()})
	if result.Error != nil {
		return false, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "审批资助来源失败", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *fundingRepository) CreatePublication(publication *model.Publication) error {
	if err := r.db.Create(publication).Error; err != nil {
		return wrapWrite(err, "创建成果失败")
	}
	return nil
}

func (r *fundingRepository) FindPublicationsByIDs(ids []int64) ([]*model.Publication, error) {
	var publications []*model.Publication
	if len(ids) == 0 {
		return publications, nil
	}
	if err := r.db.Where("id IN ?", ids).Find(&publications).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询成果失败", err)
	}
	return publications, nil
}

func (r *fundingRepository) ListPublications(query dto.PageQuery, createdBy *int64) ([]*model.Publication, int64, error) {
	var publications []*model.Publication
	var total int64

	db := r.db.Model(&model.Publication{})
	if createdBy != nil {
		db = db.Where("created_by_id = ?", *createdBy)
	}
	if query.Keyword != "" {
		db = db.Where("title LIKE ?", "%"+query.Keyword+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "统计成果数量失败", err)
	}
	err := db.Offset(query.GetOffset()).Limit(query.GetPageSize()).Order("id DESC").Find(&publications).Error
	if err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询成果列表失败", err)
	}
	return publications, total, nil
}
