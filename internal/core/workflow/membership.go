package workflow

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hpc-portal/internal/model"
	"hpc-portal/pkg/constants"
)

type MembershipMachine = StateMachine[*model.ProjectUserMembership]
type MembershipOption = TransitionOption[*model.ProjectUserMembership]
type MembershipAfterFunc func(m *model.ProjectUserMembership, from, to int8, options *TransitionOptions[*model.ProjectUserMembership])

// NewMembershipMachine 待授权 → 已授权 | 已拒绝, 已授权 → 已撤销, 已拒绝 | 已撤销 → 待授权(重新申请)
func NewMembershipMachine(db *gorm.DB, logger *zap.Logger, after MembershipAfterFunc) *MembershipMachine {
	handler := HandlerFuncs[*model.ProjectUserMembership]{AfterFunc: after}
	// 重新申请由调用方通知
	rerequest := HandlerFuncs[*model.ProjectUserMembership]{}
	return NewStateMachine(db, logger, constants.ResourceMembership,
		func() *model.ProjectUserMembership { return &model.ProjectUserMembership{} },
		constants.MembershipStatusToString,
		[]StateTransition[*model.ProjectUserMembership]{
			{From: constants.MembershipStatusAwaitingAuthorisation, To: constants.MembershipStatusAuthorised, Event: constants.EventMemberAuthorise, Handler: handler},
			{From: constants.MembershipStatusAwaitingAuthorisation, To: constants.MembershipStatusDeclined, Event: constants.EventMemberDecline, Handler: handler},
			{From: constants.MembershipStatusAuthorised, To: constants.MembershipStatusRevoked, Event: constants.EventMemberRevoke, Handler: handler},
			{From: constants.MembershipStatusDeclined, To: constants.MembershipStatusAwaitingAuthorisation, Event: constants.EventMemberRequest, Handler: rerequest},
			{From: constants.MembershipStatusRevoked, To: constants.MembershipStatusAwaitingAuthorisation, Event: constants.EventMemberRequest, Handler: rerequest},
		})
}
