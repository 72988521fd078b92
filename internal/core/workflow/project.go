package workflow

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hpc-portal/internal/model"
	"hpc-portal/pkg/constants"
)

type ProjectMachine = StateMachine[*model.Project]
type ProjectOption = TransitionOption[*model.Project]
type ProjectAfterFunc func(p *model.Project, from, to int8, options *TransitionOptions[*model.Project])

// NewProjectMachine 管理员对项目申请的决定
func NewProjectMachine(db *gorm.DB, logger *zap.Logger, after ProjectAfterFunc) *ProjectMachine {
	handler := HandlerFuncs[*model.Project]{AfterFunc: after}
	return NewStateMachine(db, logger, constants.ResourceProject,
		func() *model.Project { return &model.Project{} },
		constants.ProjectStatusToString,
		[]StateTransition[*model.Project]{
			{From: constants.ProjectStatusAwaitingApproval, To: constants.ProjectStatusApproved, Event: constants.EventProjectApprove, Handler: handler},
			{From: constants.ProjectStatusAwaitingApproval, To: constants.ProjectStatusDeclined, Event: constants.EventProjectDecline, Handler: handler},
		})
}
