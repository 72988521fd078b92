package model

import "time"

const UserTableName = "users"
const ProfileTableName = "profiles"
const RoleGrantTableName = "role_grants"

// User 门户用户, 联邦身份用户与外部账号共用
type User struct {
	BaseStatus
	AuthProvider string     `gorm:"size:20;not null;default:shibboleth;uniqueIndex:idx_user_provider_name" json:"auth_provider"`
	Username     string     `gorm:"size:150;not null;uniqueIndex:idx_user_provider_name" json:"username"`
	Password     string     `gorm:"size:255" json:"-"` // 仅本地用户
	Email        string     `gorm:"size:254;index" json:"email"`
	DisplayName  *string    `gorm:"size:100" json:"display_name,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	SystemRoles  StringList `gorm:"column:system_roles;type:json" json:"system_roles"`

	Profile *Profile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

// TableName 指定表名
func (User) TableName() string {
	return UserTableName
}

// HasSystemRole 是否拥有系统角色
func (u *User) HasSystemRole(role string) bool {
	return u.SystemRoles.Contains(role)
}

// Profile 用户档案, 无机构即外部用户
type Profile struct {
	BaseModel
	UserID        int64  `gorm:"not null;uniqueIndex" json:"user_id"`
	InstitutionID *int64 `gorm:"index" json:"institution_id,omitempty"`

	Institution *Institution `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
}

func (Profile) TableName() string {
	return ProfileTableName
}

// IsExternal 外部用户不能创建项目
func (p *Profile) IsExternal() bool {
	return p == nil || p.InstitutionID == nil
}

// RoleGrant 项目维度的角色授予, 同一角色剩余授予为0时即失去该角色
type RoleGrant struct {
	BaseModel
	UserID    int64  `gorm:"not null;uniqueIndex:idx_grant_user_role_project" json:"user_id"`
	Role      string `gorm:"size:50;not null;uniqueIndex:idx_grant_user_role_project" json:"role"`
	ProjectID int64  `gorm:"not null;uniqueIndex:idx_grant_user_role_project;index" json:"project_id"`
}

func (RoleGrant) TableName() string {
	return RoleGrantTableName
}
