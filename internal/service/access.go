package service

import (
	"github.com/samber/lo"

	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/auth"
	"hpc-portal/internal/repository"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
)

// accessChecker 系统角色与项目角色合并后做权限判断
type accessChecker struct {
	grantRepo repository.RoleGrantRepository
}

// require 仅看系统角色
func (a accessChecker) require(user *model.User, perm auth.Permission) error {
	if user == nil {
		return pkgErrors.ErrUnauthorized
	}
	if !auth.Allow(user.SystemRoles, perm) {
		return pkgErrors.ErrForbidden
	}
	return nil
}

// projectRoles 系统角色加上在该项目上的授予
func (a accessChecker) projectRoles(user *model.User, project *model.Project) ([]string, error) {
	roles := append([]string{}, user.SystemRoles...)
	if project.TechLeadID == user.ID {
		return lo.Uniq(append(roles, constants.RoleProjectOwner)), nil
	}
	owner, err := a.grantRepo.Has(user.ID, constants.RoleProjectOwner, project.ID)
	if err != nil {
		return nil, err
	}
	if owner {
		roles = append(roles, constants.RoleProjectOwner)
	}
	return roles, nil
}

// requireProject 项目维度的权限, 非负责人返回 ErrNotProjectOwner
func (a accessChecker) requireProject(user *model.User, project *model.Project, perm auth.Permission) error {
	if user == nil {
		return pkgErrors.ErrUnauthorized
	}
	roles, err := a.projectRoles(user, project)
	if err != nil {
		return err
	}
	if !auth.Allow(roles, perm) {
		return pkgErrors.ErrNotProjectOwner
	}
	return nil
}

func isAdmin(user *model.User) bool {
	return user != nil && user.HasSystemRole(constants.RoleSystemAdmin)
}

func operatorName(user *model.User) string {
	if user == nil {
		return ""
	}
	return user.Username
}
