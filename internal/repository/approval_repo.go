package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	pkgErrors "hpc-portal/pkg/errors"
)

// ApprovalRepository 审批令牌消费记录与状态审计
type ApprovalRepository interface {
	WithTx(tx *gorm.DB) ApprovalRepository
	ConsumeToken(token *model.UsedApprovalToken) error
	PurgeExpiredTokens(before time.Time) (int64, error)

	RecordHistory(history *model.StatusHistory) error
	ListHistory(resourceType string, resourceID int64, query dto.PageQuery) ([]*model.StatusHistory, int64, error)
}

type approvalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) WithTx(tx *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: tx}
}

// ConsumeToken 记录 jti, 重复消费返回 ErrTokenUsed
func (r *approvalRepository) ConsumeToken(token *model.UsedApprovalToken) error {
	var count int64
	if err := r.db.Model(&model.UsedApprovalToken{}).Where("token_id = ?", token.TokenID).Count(&count).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询审批令牌失败", err)
	}
	if count > 0 {
		return pkgErrors.ErrTokenUsed
	}
	if err := r.db.Create(token).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return pkgErrors.ErrTokenUsed
		}
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "记录审批令牌失败", err)
	}
	return nil
}

func (r *approvalRepository) PurgeExpiredTokens(before time.Time) (int64, error) {
	result := r.db.Where("expires_at < ?", before).Delete(&model.UsedApprovalToken{})
	if result.Error != nil {
		return 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "清理审批令牌失败", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *approvalRepository) RecordHistory(history *model.StatusHistory) error {
	if err := r.db.Create(history).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "记录状态变更失败", err)
	}
	return nil
}

func (r *approvalRepository) ListHistory(resourceType string, resourceID int64, query dto.PageQuery) ([]*model.StatusHistory, int64, error) {
	var histories []*model.StatusHistory
	var total int64

	db := r.db.Model(&model.StatusHistory{}).Where("resource_type = ? AND resource_id = ?", resourceType, resourceID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "统计状态变更失败", err)
	}
	err := db.Offset(query.GetOffset()).Limit(query.GetPageSize()).Order("id ASC").Find(&histories).Error
	if err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询状态变更失败", err)
	}
	return histories, total, nil
}
