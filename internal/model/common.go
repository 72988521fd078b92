package model

import (
	"time"

	"gorm.io/gorm"
)

type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// BaseModelWithSoftDelete 删除后保留编号, 避免项目编号被复用
type BaseModelWithSoftDelete struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BaseStatus 账号启用状态
type BaseStatus struct {
	BaseModelWithSoftDelete
	Status int8 `gorm:"not null;default:1;index" json:"status"` // 1:启用 0:禁用
}

// Decision 审批结论, 项目与资源申请共用
type Decision struct {
	DecisionReason *string    `gorm:"type:text" json:"decision_reason,omitempty"`
	DecidedBy      *string    `gorm:"size:150" json:"decided_by,omitempty"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
}

// DecisionColumns Decision 对应的列
var DecisionColumns = []string{"decision_reason", "decided_by", "decided_at"}

// Record 记录审批人与时间, 理由为空时保留原值
func (d *Decision) Record(operator, reason string) {
	now := time.Now()
	d.DecidedBy = &operator
	d.DecidedAt = &now
	if reason != "" {
		d.DecisionReason = &reason
	}
}
