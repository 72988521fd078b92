package repository

import (
	"time"

	"gorm.io/gorm"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	pkgErrors "hpc-portal/pkg/errors"
)

// ProjectListParam 项目列表过滤
type ProjectListParam struct {
	dto.PageQuery
	TechLeadID *int64
	MemberID   *int64 // 作为已授权成员参与的项目
}

type ProjectRepository interface {
	WithTx(tx *gorm.DB) ProjectRepository
	Create(project *model.Project) error
	FindByID(id int64, opts ...QueryOption) (*model.Project, error)
	FindByCode(code string) (*model.Project, error)
	List(param ProjectListParam) ([]*model.Project, int64, error)
	ListIDsByTechLead(userID int64) ([]int64, error)
	UpdateCode(id int64, code string) error
	ApproveBySupervisor(id int64) (bool, error)
	ReplaceFundingSources(project *model.Project, sources []*model.FundingSource) error
	ReplacePublications(project *model.Project, publications []*model.Publication) error
	ClearAssociations(project *model.Project) error
	Delete(id int64) error
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) WithTx(tx *gorm.DB) ProjectRepository {
	return &projectRepository{db: tx}
}

func (r *projectRepository) Create(project *model.Project) error {
	if err := r.db.Omit("FundingSources", "Publications", "Allocations", "TechLead", "Institution").Create(project).Error; err != nil {
		return wrapWrite(err, "创建项目失败")
	}
	return nil
}

func (r *projectRepository) FindByID(id int64, opts ...QueryOption) (*model.Project, error) {
	var project model.Project
	err := applyOptions(r.db, opts).First(&project, id).Error
	if err != nil {
		return nil, wrapFind(err, "查询项目失败")
	}
	return &project, nil
}

func (r *projectRepository) FindByCode(code string) (*model.Project, error) {
	var project model.Project
	err := r.db.Where("code = ?", code).First(&project).Error
	if err != nil {
		return nil, wrapFind(err, "查询项目失败")
	}
	return &project, nil
}

func (r *projectRepository) List(param ProjectListParam) ([]*model.Project, int64, error) {
	var projects []*model.Project
	var total int64

	query := r.db.Model(&model.Project{})

	// 关键字搜索
	if param.Keyword != "" {
		like := "%" + param.Keyword + "%"
		query = query.Where("title LIKE ? OR code LIKE ? OR description LIKE ?", like, like, like)
	}
	if param.Status != nil {
		query = query.Where("status = ?", *param.Status)
	}
	if param.TechLeadID != nil {
		query = query.Where("tech_lead_id = ?", *param.TechLeadID)
	}
	if param.MemberID != nil {
		sub := r.db.Model(&model.ProjectUserMembership{}).Select("project_id").
			Where("user_id = ?", *param.MemberID)
		query = query.Where("id IN (?)", sub)
	}

	// 统计总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "统计项目数量失败", err)
	}

	// 分页查询
	err := query.Preload("TechLead").Preload("Institution").
		Offset(param.GetOffset()).Limit(param.GetPageSize()).
		Order("created_at DESC, id DESC").Find(&projects).Error
	if err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询项目列表失败", err)
	}

	return projects, total, nil
}

func (r *projectRepository) ListIDsByTechLead(userID int64) ([]int64, error) {
	ids := make([]int64, 0)
	if err := r.db.Model(&model.Project{}).Where("tech_lead_id = ?", userID).Pluck("id", &ids).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询项目失败", err)
	}
	return ids, nil
}

func (r *projectRepository) UpdateCode(id int64, code string) error {
	if err := r.db.Model(&model.Project{}).Where("id = ?", id).Update("code", code).Error; err != nil {
		return wrapWrite(err, "更新项目编号失败")
	}
	return nil
}

// ApproveBySupervisor 条件更新, 已审批过返回 false
func (r *projectRepository) ApproveBySupervisor(id int64) (bool, error) {
	result := r.db.Model(&model.Project{}).
		Where("id = ? AND approved_by_supervisor = ?", id, false).
		Updates(map[string]interface{}{
			"approved_by_supervisor": true,
			"supervisor_approved_at": time.Now(),
		})
	if result.Error != nil {
		return false, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "更新导师审批失败", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *projectRepository) ReplaceFundingSources(project *model.Project, sources []*model.FundingSource) error {
	if err := r.db.Model(project).Association("FundingSources").Replace(sources); err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "关联资助来源失败", err)
	}
	return nil
}

func (r *projectRepository) ReplacePublications(project *model.Project, publications []*model.Publication) error {
	if err := r.db.Model(project).Association("Publications").Replace(publications); err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "关联成果失败", err)
	}
	return nil
}

func (r *projectRepository) ClearAssociations(project *model.Project) error {
	if err := r.db.Model(project).Association("FundingSources").Clear(); err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "解除资助关联失败", err)
	}
	if err := r.db.Model(project).Association("Publications").Clear(); err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "解除成果关联失败", err)
	}
	return nil
}

func (r *projectRepository) Delete(id int64) error {
	if err := r.db.Delete(&model.Project{}, id).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "删除项目失败", err)
	}
	return nil
}
