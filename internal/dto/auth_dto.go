package dto

// LoginRequest 外部账号登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	AuthType string `json:"auth_type" binding:"required,oneof=ldap local"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int       `json:"expires_in"`
	User         *UserInfo `json:"user"`
}

// UserInfo 当前用户信息
type UserInfo struct {
	ID              int64    `json:"id"`
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	DisplayName     string   `json:"display_name"`
	AuthType        string   `json:"auth_type"`
	InstitutionID   *int64   `json:"institution_id,omitempty"`
	InstitutionName string   `json:"institution_name,omitempty"`
	IsExternal      bool     `json:"is_external"`
	SystemRoles     []string `json:"system_roles"`
	Roles           []string `json:"roles"`
}

// RefreshTokenRequest 刷新Token请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
