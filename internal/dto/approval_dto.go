package dto

// ApprovalTokenRequest 审批链接提交
type ApprovalTokenRequest struct {
	Token string `json:"token" form:"token" binding:"required"`
}

// ApprovalResult 审批结果
type ApprovalResult struct {
	ResourceType string `json:"resource_type"`
	ResourceID   int64  `json:"resource_id"`
	Approved     bool   `json:"approved"`
}
