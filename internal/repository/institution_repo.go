package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hpc-portal/internal/model"
	pkgErrors "hpc-portal/pkg/errors"
)

type InstitutionRepository interface {
	Create(institution *model.Institution) error
	Upsert(institution *model.Institution) error
	FindByID(id int64) (*model.Institution, error)
	FindByDomain(domain string) (*model.Institution, error)
	List() ([]*model.Institution, error)
	Update(institution *model.Institution) error
}

type institutionRepository struct {
	db *gorm.DB
}

func NewInstitutionRepository(db *gorm.DB) InstitutionRepository {
	return &institutionRepository{db: db}
}

func (r *institutionRepository) Create(institution *model.Institution) error {
	if err := r.db.Create(institution).Error; err != nil {
		return wrapWrite(err, "创建机构失败")
	}
	return nil
}

// Upsert 按名称更新或插入, 用于初始数据导入
func (r *institutionRepository) Upsert(institution *model.Institution) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"base_domain", "identity_provider", "logo_path",
			"needs_funding_approval", "separate_allocation_requests", "updated_at",
		}),
	}).Create(institution).Error
	if err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "导入机构失败", err)
	}
	return nil
}

func (r *institutionRepository) FindByID(id int64) (*model.Institution, error) {
	var institution model.Institution
	if err := r.db.First(&institution, id).Error; err != nil {
		return nil, wrapFind(err, "查询机构失败")
	}
	return &institution, nil
}

func (r *institutionRepository) FindByDomain(domain string) (*model.Institution, error) {
	var institution model.Institution
	if err := r.db.Where("base_domain = ?", domain).First(&institution).Error; err != nil {
		return nil, wrapFind(err, "查询机构失败")
	}
	return &institution, nil
}

func (r *institutionRepository) List() ([]*model.Institution, error) {
	var institutions []*model.Institution
	if err := r.db.Order("name ASC").Find(&institutions).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询机构列表失败", err)
	}
	return institutions, nil
}

func (r *institutionRepository) Update(institution *model.Institution) error {
	if err := r.db.Save(institution).Error; err != nil {
		return wrapWrite(err, "更新机构失败")
	}
	return nil
}
