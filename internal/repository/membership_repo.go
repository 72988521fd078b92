package repository

import (
	"gorm.io/gorm"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	pkgErrors "hpc-portal/pkg/errors"
)

// MembershipListParam 成员关系过滤
type MembershipListParam struct {
	dto.PageQuery
	UserID            *int64
	ProjectID         *int64
	OwnerID           *int64 // 该用户作为负责人的项目
	ExcludeMe         bool   // 排除 OwnerID 自己的成员关系
	OnlyUserInitiated bool
}

type MembershipRepository interface {
	WithTx(tx *gorm.DB) MembershipRepository
	Create(membership *model.ProjectUserMembership) error
	FindByID(id int64) (*model.ProjectUserMembership, error)
	FindByProjectAndUser(projectID, userID int64) (*model.ProjectUserMembership, error)
	List(param MembershipListParam) ([]*model.ProjectUserMembership, int64, error)
	DeleteByProject(projectID int64) error
}

type membershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) WithTx(tx *gorm.DB) MembershipRepository {
	return &membershipRepository{db: tx}
}

func (r *membershipRepository) Create(membership *model.ProjectUserMembership) error {
	if err := r.db.Omit("Project", "User").Create(membership).Error; err != nil {
		return wrapWrite(err, "创建成员关系失败")
	}
	return nil
}

func (r *membershipRepository) FindByID(id int64) (*model.ProjectUserMembership, error) {
	var membership model.ProjectUserMembership
	err := r.db.Preload("Project").Preload("User").First(&membership, id).Error
	if err != nil {
		return nil, wrapFind(err, "查询成员关系失败")
	}
	return &membership, nil
}

func (r *membershipRepository) FindByProjectAndUser(projectID, userID int64) (*model.ProjectUserMembership, error) {
	var membership model.ProjectUserMembership
	err := r.db.Preload("Project").Preload("User").
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&membership).Error
	if err != nil {
		return nil, wrapFind(err, "查询成员关系失败")
	}
	return &membership, nil
}

func (r *membershipRepository) List(param MembershipListParam) ([]*model.ProjectUserMembership, int64, error) {
	var memberships []*model.ProjectUserMembership
	var total int64

	query := r.db.Model(&model.ProjectUserMembership{})
	if param.UserID != nil {
		query = query.Where("user_id = ?", *param.UserID)
	}
	if param.ProjectID != nil {
		query = query.Where("project_id = ?", *param.ProjectID)
	}
	if param.OwnerID != nil {
		owned := r.db.Model(&model.Project{}).Select("id").Where("tech_lead_id = ?", *param.OwnerID)
		query = query.Where("project_id IN (?)", owned)
		if param.ExcludeMe {
			query = query.Where("user_id <> ?", *param.OwnerID)
		}
	}
	if param.OnlyUserInitiated {
		query = query.Where("initiated_by_user = ?", true)
	}
	if param.Status != nil {
		query = query.Where("status = ?", *param.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "统计成员关系数量失败", err)
	}
	err := query.Preload("Project").Preload("User").
		Offset(param.GetOffset()).Limit(param.GetPageSize()).
		Order("created_at DESC, id DESC").Find(&memberships).Error
	if err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询成员关系列表失败", err)
	}
	return memberships, total, nil
}

func (r *membershipRepository) DeleteByProject(projectID int64) error {
	if err := r.db.Where("project_id = ?", projectID).Delete(&model.ProjectUserMembership{}).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "删除成员关系失败", err)
	}
	return nil
}
