package model

const MembershipTableName = "project_user_memberships"

// ProjectUserMembership 项目成员关系, (project, user) 唯一
type ProjectUserMembership struct {
	BaseModel
	ProjectID       int64  `gorm:"not null;uniqueIndex:idx_project_user" json:"project_id"`
	UserID          int64  `gorm:"not null;uniqueIndex:idx_project_user;index" json:"user_id"`
	Role            string `gorm:"size:20;not null;default:member" json:"role"`
	InitiatedByUser bool   `gorm:"not null;default:false" json:"initiated_by_user"`
	Status          int8   `gorm:"not null;default:0;index" json:"status"`

	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ProjectUserMembership) TableName() string {
	return MembershipTableName
}

func (m *ProjectUserMembership) GetStatus() int8  { return m.Status }
func (m *ProjectUserMembership) SetStatus(s int8) { m.Status = s }
func (m *ProjectUserMembership) GetID() int64     { return m.ID }
