package repository

import (
	"time"

	"gorm.io/gorm"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	pkgErrors "hpc-portal/pkg/errors"
)

// AllocationListParam 资源申请过滤
type AllocationListParam struct {
	dto.PageQuery
	ProjectID  int64
	ProjectIDs []int64 // 仅限这些项目, nil 表示不限
}

type AllocationRepository interface {
	WithTx(tx *gorm.DB) AllocationRepository
	Create(allocation *model.SystemAllocationRequest) error
	FindByID(id int64) (*model.SystemAllocationRequest, error)
	List(param AllocationListParam) ([]*model.SystemAllocationRequest, int64, error)
	ListByProject(projectID int64) ([]*model.SystemAllocationRequest, error)
	ListPendingBefore(before time.Time) ([]*model.SystemAllocationRequest, error)
	DeleteByProject(projectID int64) ([]*model.SystemAllocationRequest, error)
}

type allocationRepository struct {
	db *gorm.DB
}

func NewAllocationRepository(db *gorm.DB) AllocationRepository {
	return &allocationRepository{db: db}
}

func (r *allocationRepository) WithTx(tx *gorm.DB) AllocationRepository {
	return &allocationRepository{db: tx}
}

func (r *allocationRepository) Create(allocation *model.SystemAllocationRequest) error {
	if err := r.db.Omit("Project").Create(allocation).Error; err != nil {
		return wrapWrite(err, "创建资源申请失败")
	}
	return nil
}

func (r *allocationRepository) FindByID(id int64) (*model.SystemAllocationRequest, error) {
	var allocation model.SystemAllocationRequest
	if err := r.db.Preload("Project").First(&allocation, id).Error; err != nil {
		return nil, wrapFind(err, "查询资源申请失败")
	}
	return &allocation, nil
}

func (r *allocationRepository) List(param AllocationListParam) ([]*model.SystemAllocationRequest, int64, error) {
	var allocations []*model.SystemAllocationRequest
	var total int64

	query := r.db.Model(&model.SystemAllocationRequest{})
	if param.Status != nil {
		query = query.Where("status = ?", *param.Status)
	}
	if param.ProjectID > 0 {
		query = query.Where("project_id = ?", param.ProjectID)
	}
	if param.ProjectIDs != nil {
		if len(param.ProjectIDs) == 0 {
			return allocations, 0, nil
		}
		query = query.Where("project_id IN ?", param.ProjectIDs)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "统计资源申请数量失败", err)
	}
	err := query.Preload("Project").
		Offset(param.GetOffset()).Limit(param.GetPageSize()).
		Order("created_at DESC, id DESC").Find(&allocations).Error
	if err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询资源申请列表失败", err)
	}
	return allocations, total, nil
}

func (r *allocationRepository) ListByProject(projectID int64) ([]*model.SystemAllocationRequest, error) {
	var allocations []*model.SystemAllocationRequest
	if err := r.db.Where("project_id = ?", projectID).Order("id ASC").Find(&allocations).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询资源申请失败", err)
	}
	return allocations, nil
}

func (r *allocationRepository) ListPendingBefore(before time.Time) ([]*model.SystemAllocationRequest, error) {
	var allocations []*model.SystemAllocationRequest
	err := r.db.Preload("Project").
		Where("status = ? AND created_at < ?", 0, before).
		Order("created_at ASC").Find(&allocations).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询待审批资源申请失败", err)
	}
	return allocations, nil
}

// DeleteByProject 返回被删除的申请, 以便清理附件
func (r *allocationRepository) DeleteByProject(projectID int64) ([]*model.SystemAllocationRequest, error) {
	allocations, err := r.ListByProject(projectID)
	if err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		return allocations, nil
	}
	if err := r.db.Where("project_id = ?", projectID).Delete(&model.SystemAllocationRequest{}).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "删除资源申请失败", err)
	}
	return allocations, nil
}
