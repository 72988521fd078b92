package auth

import "strings"

// Role 内置角色
type Role string

const (
	RoleSystemAdmin        Role = "system_admin"
	RoleProjectOwner       Role = "project_owner"
	RoleAllocationReviewer Role = "allocation_reviewer"
	RoleFundingApprover    Role = "funding_approver"
)

// Permission 内置权限
type Permission string

const (
	PermProjectCreate  Permission = "project:create"
	PermProjectDelete  Permission = "project:delete"
	PermProjectDecide  Permission = "project:decide"
	PermProjectInvite  Permission = "project:invite"
	PermProjectView    Permission = "project:view"
	PermProjectViewAll Permission = "project:view_all"

	PermMembershipDecide Permission = "membership:decide"
	PermMembershipRevoke Permission = "membership:revoke"

	PermAllocationCreate Permission = "allocation:create"
	PermAllocationDecide Permission = "allocation:decide"
	PermAllocationView   Permission = "allocation:view"

	PermFundingApprove Permission = "funding:approve"
	PermFundingAttach  Permission = "funding:attach"

	PermInstitutionManage Permission = "institution:manage"
	PermUserManage        Permission = "user:manage"
)

// RolePermissions 每个角色拥有的权限集合
var RolePermissions = map[Role][]Permission{
	RoleSystemAdmin: {
		"*",
	},
	// 项目内角色, 需要结合具体项目判断
	RoleProjectOwner: {
		PermProjectDelete,
		PermProjectInvite,
		PermProjectView,
		"membership:*",
		PermAllocationCreate,
		PermFundingAttach,
	},
	RoleAllocationReviewer: {
		"allocation:*",
		PermProjectView,
		PermProjectViewAll,
	},
	RoleFundingApprover: {
		PermFundingApprove,
	},
}

// Allow 判断一组角色是否包含所需权限，支持通配符
func Allow(roles []string, need Permission) bool {
	for _, p := range collectPermissions(roles) {
		if match(p, need) {
			return true
		}
	}
	return false
}

func collectPermissions(roles []string) []Permission {
	perms := make([]Permission, 0)
	for _, r := range roles {
		if ps, ok := RolePermissions[Role(r)]; ok {
			perms = append(perms, ps...)
		}
	}
	return perms
}

// match 按段匹配, * 匹配剩余所有段
func match(have, need Permission) bool {
	if have == "*" || have == need {
		return true
	}

	haveParts := strings.Split(string(have), ":")
	needParts := strings.Split(string(need), ":")

	for i, part := range haveParts {
		if part == "*" {
			return true
		}
		if i >= len(needParts) || part != needParts[i] {
			return false
		}
	}
	return len(haveParts) == len(needParts)
}
