package model

import (
	"time"

	"gorm.io/datatypes"
)

const UsedApprovalTokenTableName = "used_approval_tokens"
const StatusHistoryTableName = "status_histories"

// UsedApprovalToken 已消费的审批令牌, 保证单次使用
type UsedApprovalToken struct {
	BaseModel
	TokenID   string    `gorm:"size:64;not null;uniqueIndex" json:"token_id"`
	Purpose   string    `gorm:"size:50;not null" json:"purpose"`
	SubjectID int64     `gorm:"not null" json:"subject_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

func (UsedApprovalToken) TableName() string {
	return UsedApprovalTokenTableName
}

// StatusHistory 状态变更审计, 只追加
type StatusHistory struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt    time.Time         `gorm:"not null;autoCreateTime" json:"created_at"`
	ResourceType string            `gorm:"size:32;not null;index:idx_history_resource" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index:idx_history_resource" json:"resource_id"`
	Event        string            `gorm:"size:50;not null" json:"event"`
	FromStatus   int8              `json:"from_status"`
	ToStatus     int8              `json:"to_status"`
	Operator     string            `gorm:"size:150" json:"operator"`
	Reason       string            `gorm:"type:text" json:"reason"`
	Detail       datatypes.JSONMap `json:"detail,omitempty"`
}

func (StatusHistory) TableName() string {
	return StatusHistoryTableName
}
