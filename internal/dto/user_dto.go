package dto

// ProvisionUserRequest 管理员预建用户
type ProvisionUserRequest struct {
	Username      string   `json:"username" binding:"required,max=150"`
	Email         string   `json:"email" binding:"required,email,max=254"`
	DisplayName   string   `json:"display_name" binding:"omitempty,max=100"`
	AuthProvider  string   `json:"auth_provider" binding:"omitempty,oneof=shibboleth local ldap"`
	Password      string   `json:"password" binding:"omitempty,min=8,max=72"`
	InstitutionID *int64   `json:"institution_id" binding:"omitempty,min=1"`
	SystemRoles   []string `json:"system_roles" binding:"omitempty,dive,oneof=system_admin allocation_reviewer funding_approver"`
}

// UpdateSystemRolesRequest 更新系统角色
type UpdateSystemRolesRequest struct {
	SystemRoles []string `json:"system_roles" binding:"dive,oneof=system_admin allocation_reviewer funding_approver"`
}

// UserBrief 用户摘要
type UserBrief struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// UserListQuery 用户列表
type UserListQuery struct {
	PageQuery
}
