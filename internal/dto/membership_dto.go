package dto

// JoinProjectRequest 通过项目编号申请加入
type JoinProjectRequest struct {
	ProjectCode string `json:"project_code" binding:"required,max=32"`
}

// InviteMemberRequest 项目负责人邀请成员
type InviteMemberRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
}

// MembershipResponse 成员关系响应
type MembershipResponse struct {
	ID              int64      `json:"id"`
	ProjectID       int64      `json:"project_id"`
	ProjectCode     string     `json:"project_code,omitempty"`
	ProjectTitle    string     `json:"project_title,omitempty"`
	User            *UserBrief `json:"user,omitempty"`
	Role            string     `json:"role"`
	RoleText        string     `json:"role_text"`
	InitiatedByUser bool       `json:"initiated_by_user"`
	Status          int8       `json:"status"`
	StatusText      string     `json:"status_text"`
	CreatedAt       string     `json:"created_at"`
}
