package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hpc-portal/internal/model"
	pkgErrors "hpc-portal/pkg/errors"
)

// RoleGrantRepository 项目角色授予, 用户持有角色当且仅当剩余授予数>0
type RoleGrantRepository interface {
	WithTx(tx *gorm.DB) RoleGrantRepository
	Grant(userID int64, role string, projectID int64) error
	Has(userID int64, role string, projectID int64) (bool, error)
	Count(userID int64, role string) (int64, error)
	RolesOf(userID int64) ([]string, error)
	ListByProject(projectID int64) ([]*model.RoleGrant, error)
	DeleteByProject(projectID int64) error
}

type roleGrantRepository struct {
	db *gorm.DB
}

func NewRoleGrantRepository(db *gorm.DB) RoleGrantRepository {
	return &roleGrantRepository{db: db}
}

func (r *roleGrantRepository) WithTx(tx *gorm.DB) RoleGrantRepository {
	return &roleGrantRepository{db: tx}
}

func (r *roleGrantRepository) Grant(userID int64, role string, projectID int64) error {
	grant := &model.RoleGrant{UserID: userID, Role: role, ProjectID: projectID}
	err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(grant).Error
	if err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "授予角色失败", err)
	}
	return nil
}

func (r *roleGrantRepository) Has(userID int64, role string, projectID int64) (bool, error) {
	var count int64
	err := r.db.Model(&model.RoleGrant{}).
		Where("user_id = ? AND role = ? AND project_id = ?", userID, role, projectID).
		Count(&count).Error
	if err != nil {
		return false, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询角色失败", err)
	}
	return count > 0, nil
}

func (r *roleGrantRepository) Count(userID int64, role string) (int64, error) {
	var count int64
	err := r.db.Model(&model.RoleGrant{}).Where("user_id = ? AND role = ?", userID, role).Count(&count).Error
	if err != nil {
		return 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询角色失败", err)
	}
	return count, nil
}

func (r *roleGrantRepository) RolesOf(userID int64) ([]string, error) {
	var roles []string
	err := r.db.Model(&model.RoleGrant{}).Where("user_id = ?", userID).Distinct().Pluck("role", &roles).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询角色失败", err)
	}
	return roles, nil
}

func (r *roleGrantRepository) ListByProject(projectID int64) ([]*model.RoleGrant, error) {
	var grants []*model.RoleGrant
	if err := r.db.Where("project_id = ?", projectID).Find(&grants).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询角色失败", err)
	}
	return grants, nil
}

func (r *roleGrantRepository) DeleteByProject(projectID int64) error {
	if err := r.db.Where("project_id = ?", projectID).Delete(&model.RoleGrant{}).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "撤销角色失败", err)
	}
	return nil
}
