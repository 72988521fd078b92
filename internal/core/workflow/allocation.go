package workflow

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hpc-portal/internal/model"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
)

type AllocationMachine = StateMachine[*model.SystemAllocationRequest]
type AllocationOption = TransitionOption[*model.SystemAllocationRequest]
type AllocationAfterFunc func(a *model.SystemAllocationRequest, from, to int8, options *TransitionOptions[*model.SystemAllocationRequest])

// NewAllocationMachine pending → approved | rejected, 决定后为终态
func NewAllocationMachine(db *gorm.DB, logger *zap.Logger, after AllocationAfterFunc) *AllocationMachine {
	return NewStateMachine(db, logger, constants.ResourceAllocation,
		func() *model.SystemAllocationRequest { return &model.SystemAllocationRequest{} },
		constants.AllocationStatusToString,
		[]StateTransition[*model.SystemAllocationRequest]{
			{
				From:  constants.AllocationStatusPending,
				To:    constants.AllocationStatusApproved,
				Event: constants.EventAllocationApprove,
				Handler: HandlerFuncs[*model.SystemAllocationRequest]{
					HandleFunc: func(tx *gorm.DB, a *model.SystemAllocationRequest, _, _ int8, _ *TransitionOptions[*model.SystemAllocationRequest]) error {
						return CheckAllocationApprovable(tx, a.ProjectID)
					},
					AfterFunc: after,
				},
			},
			{
				From:    constants.AllocationStatusPending,
				To:      constants.AllocationStatusRejected,
				Event:   constants.EventAllocationReject,
				Handler: HandlerFuncs[*model.SystemAllocationRequest]{AfterFunc: after},
			},
		})
}

// CheckAllocationApprovable 项目未被拒绝且须经导师确认, 机构要求时所有关联资助须已审批
func CheckAllocationApprovable(tx *gorm.DB, projectID int64) error {
	var project model.Project
	if err := tx.Preload("Institution").First(&project, projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgErrors.ErrRecordNotFound
		}
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询项目失败", err)
	}
	if project.Status == constants.ProjectStatusDeclined || !project.ApprovedBySupervisor {
		return pkgErrors.ErrAllocationBlocked
	}

	if project.Institution == nil || !project.Institution.NeedsFundingApproval {
		return nil
	}

	var pending int64
	err := tx.Model(&model.FundingSource{}).
		Joins("JOIN "+model.ProjectFundingSourceTable+" pfs ON pfs.funding_source_id = "+model.FundingSourceTableName+".id").
		Where("pfs.project_id = ? AND "+model.FundingSourceTableName+".approved = ?", projectID, false).
		Count(&pending).Error
	if err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询资助审批状态失败", err)
	}
	if pending > 0 {
		return pkgErrors.ErrAllocationBlocked
	}
	return nil
}
