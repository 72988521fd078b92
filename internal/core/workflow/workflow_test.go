package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/database"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
)

type fixture struct {
	db          *gorm.DB
	institution *model.Institution
	project     *model.Project
	allocation  *model.SystemAllocationRequest
}

func setup(t *testing.T, needsFunding bool) *fixture {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)

	inst := &model.Institution{Name: "Swansea University", BaseDomain: "swansea.ac.uk", NeedsFundingApproval: needsFunding}
	require.NoError(t, db.Create(inst).Error)

	project := &model.Project{Code: "scw0001", Title: "Climate", Description: "desc", TechLeadID: 1, InstitutionID: inst.ID}
	require.NoError(t, db.Create(project).Error)

	allocation := &model.SystemAllocationRequest{
		ProjectID:   project.ID,
		RequestedBy: 1,
		StartDate:   datatypes.Date(mustDate("2026-01-01")),
		EndDate:     datatypes.Date(mustDate("2026-12-31")),
	}
	require.NoError(t, db.Create(allocation).Error)

	return &fixture{db: db, institution: inst, project: project, allocation: allocation}
}

func approveSupervisor(t *testing.T, db *gorm.DB, projectID int64) {
	require.NoError(t, db.Model(&model.Project{}).Where("id = ?", projectID).Update("approved_by_supervisor", true).Error)
}

func TestAllocation_BlockedUntilSupervisorApproves(t *testing.T) {
	f := setup(t, false)
	sm := NewAllocationMachine(f.db, zap.NewNop(), nil)

	_, err := sm.ChangeStatus(context.Background(), f.allocation.ID, constants.AllocationStatusApproved)
	assert.ErrorIs(t, err, pkgErrors.ErrAllocationBlocked)

	approveSupervisor(t, f.db, f.project.ID)
	got, err := sm.ChangeStatus(context.Background(), f.allocation.ID, constants.AllocationStatusApproved,
		WithOperator[*model.SystemAllocationRequest]("admin"))
	require.NoError(t, err)
	assert.Equal(t, constants.AllocationStatusApproved, got.Status)

	var stored model.SystemAllocationRequest
	require.NoError(t, f.db.First(&stored, f.allocation.ID).Error)
	assert.Equal(t, constants.AllocationStatusApproved, stored.Status)
}

func TestAllocation_DecisionIsTerminal(t *testing.T) {
	f := setup(t, false)
	approveSupervisor(t, f.db, f.project.ID)
	sm := NewAllocationMachine(f.db, zap.NewNop(), nil)

	_, err := sm.ChangeStatus(context.Background(), f.allocation.ID, constants.AllocationStatusApproved)
	require.NoError(t, err)

	_, err = sm.ChangeStatus(context.Background(), f.allocation.ID, constants.AllocationStatusRejected)
	assert.ErrorIs(t, err, pkgErrors.ErrStateConflict)

	_, err = sm.ChangeStatus(context.Background(), f.allocation.ID, constants.AllocationStatusPending)
	assert.ErrorIs(t, err, pkgErrors.ErrStateConflict)
}

func TestAllocation_FundingApprovalRequired(t *testing.T) {
	f := setup(t, true)
	approveSupervisor(t, f.db, f.project.ID)

	body := &model.FundingBody{Name: "EPSRC"}
	require.NoError(t, f.db.Create(body).Error)
	source := &model.FundingSource{Title: "Grant", Identifier: "EP/X1", PIEmail: "pi@swansea.ac.uk", FundingBodyID: body.ID, CreatedByID: 1}
	require.NoError(t, f.db.Create(source).Error)
	require.NoError(t, f.db.Model(f.project).Association("FundingSources").Append(source))

	sm := NewAllocationMachine(f.db, zap.NewNop(), nil)
	_, err := sm.ChangeStatus(context.Background(), f.allocation.ID, constants.AllocationStatusApproved)
	assert.ErrorIs(t, err, pkgErrors.ErrAllocationBlocked)

	require.NoError(t, f.db.Model(source).Update("approved", true).Error)
	_, err = sm.ChangeStatus(context.Background(), f.allocation.ID, constants.AllocationStatusApproved)
	assert.NoError(t, err)
}

func TestAllocation_SideEffectAndHistory(t *testing.T) {
	f := setup(t, false)
	var afterCalls int
	sm := NewAllocationMachine(f.db, zap.NewNop(), func(a *model.SystemAllocationRequest, from, to int8, _ *TransitionOptions[*model.SystemAllocationRequest]) {
		afterCalls++
		assert.Equal(t, constants.AllocationStatusPending, from)
		assert.Equal(t, constants.AllocationStatusRejected, to)
	})

	reason := "insufficient detail"
	_, err := sm.ChangeStatus(context.Background(), f.allocation.ID, constants.AllocationStatusRejected,
		WithOperator[*model.SystemAllocationRequest]("reviewer"),
		WithReason[*model.SystemAllocationRequest](reason),
		WithModelEffects(func(a *model.SystemAllocationRequest) { a.DecisionReason = &reason }, "decision_reason"),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, afterCalls)

	var stored model.SystemAllocationRequest
	require.NoError(t, f.db.First(&stored, f.allocation.ID).Error)
	require.NotNil(t, stored.DecisionReason)
	assert.Equal(t, reason, *stored.DecisionReason)

	var histories []model.StatusHistory
	require.NoError(t, f.db.Where("resource_type = ? AND resource_id = ?", constants.ResourceAllocation, f.allocation.ID).Find(&histories).Error)
	require.Len(t, histories, 1)
	assert.Equal(t, constants.EventAllocationReject, histories[0].Event)
	assert.Equal(t, "reviewer", histories[0].Operator)
}

func TestAllocation_FailedGuardSkipsAfter(t *testing.T) {
	f := setup(t, false)
	called := false
	sm := NewAllocationMachine(f.db, zap.NewNop(), func(*model.SystemAllocationRequest, int8, int8, *TransitionOptions[*model.SystemAllocationRequest]) {
		called = true
	})

	_, err := sm.ChangeStatus(context.Background(), f.allocation.ID, constants.AllocationStatusApproved)
	require.Error(t, err)
	assert.False(t, called)

	var count int64
	require.NoError(t, f.db.Model(&model.StatusHistory{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestChangeStatus_NotFound(t *testing.T) {
	f := setup(t, false)
	sm := NewProjectMachine(f.db, zap.NewNop(), nil)

	_, err := sm.ChangeStatus(context.Background(), 9999, constants.ProjectStatusApproved)
	assert.ErrorIs(t, err, pkgErrors.ErrRecordNotFound)
}

func TestMembership_Transitions(t *testing.T) {
	f := setup(t, false)
	m := &model.ProjectUserMembership{ProjectID: f.project.ID, UserID: 2, Role: constants.MemberRoleMember, InitiatedByUser: true}
	require.NoError(t, f.db.Create(m).Error)

	sm := NewMembershipMachine(f.db, zap.NewNop(), nil)
	assert.False(t, sm.CanTransition(constants.MembershipStatusAwaitingAuthorisation, constants.MembershipStatusRevoked))

	got, err := sm.ChangeStatus(context.Background(), m.ID, constants.MembershipStatusAuthorised)
	require.NoError(t, err)
	assert.Equal(t, constants.MembershipStatusAuthorised, got.Status)

	_, err = sm.ChangeStatus(context.Background(), m.ID, constants.MembershipStatusDeclined)
	assert.ErrorIs(t, err, pkgErrors.ErrStateConflict)

	_, err = sm.ChangeStatus(context.Background(), m.ID, constants.MembershipStatusRevoked)
	assert.NoError(t, err)
}

func TestChangeStatus_ConflictWhenRowChangesBeforeUpdate(t *testing.T) {
	f := setup(t, false)
	called := false
	sm := NewStateMachine(f.db, zap.NewNop(), constants.ResourceAllocation,
		func() *model.SystemAllocationRequest { return &model.SystemAllocationRequest{} },
		constants.AllocationStatusToString,
		[]StateTransition[*model.SystemAllocationRequest]{{
			From:  constants.AllocationStatusPending,
			To:    constants.AllocationStatusApproved,
			Event: constants.EventAllocationApprove,
			Handler: HandlerFuncs[*model.SystemAllocationRequest]{
				// 重新加载之后另一个审批人抢先拒绝
				HandleFunc: func(tx *gorm.DB, a *model.SystemAllocationRequest, _, _ int8, _ *TransitionOptions[*model.SystemAllocationRequest]) error {
					return tx.Model(&model.SystemAllocationRequest{}).Where("id = ?", a.ID).
						Update("status", constants.AllocationStatusRejected).Error
				},
				AfterFunc: func(*model.SystemAllocationRequest, int8, int8, *TransitionOptions[*model.SystemAllocationRequest]) {
					called = true
				},
			},
		}})

	_, err := sm.ChangeStatus(context.Background(), f.allocation.ID, constants.AllocationStatusApproved,
		WithOperator[*model.SystemAllocationRequest]("reviewer"),
		WithModelEffects(func(a *model.SystemAllocationRequest) { a.Record("reviewer", "") }, model.DecisionColumns...),
	)
	assert.ErrorIs(t, err, pkgErrors.ErrStateConflict)
	assert.False(t, called)

	// 整个事务回滚
	var stored model.SystemAllocationRequest
	require.NoError(t, f.db.First(&stored, f.allocation.ID).Error)
	assert.Equal(t, constants.AllocationStatusPending, stored.Status)
	assert.Nil(t, stored.DecidedBy)

	var count int64
	require.NoError(t, f.db.Model(&model.StatusHistory{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestChangeStatus_WritesOnlyDeclaredColumns(t *testing.T) {
	f := setup(t, false)
	sm := NewStateMachine(f.db, zap.NewNop(), constants.ResourceProject,
		func() *model.Project { return &model.Project{} },
		constants.ProjectStatusToString,
		[]StateTransition[*model.Project]{{
			From:  constants.ProjectStatusAwaitingApproval,
			To:    constants.ProjectStatusDeclined,
			Event: constants.EventProjectDecline,
			Handler: HandlerFuncs[*model.Project]{
				// 重新加载之后导师确认先落库
				HandleFunc: func(tx *gorm.DB, p *model.Project, _, _ int8, _ *TransitionOptions[*model.Project]) error {
					return tx.Model(&model.Project{}).Where("id = ?", p.ID).Update("approved_by_supervisor", true).Error
				},
			},
		}})

	got, err := sm.ChangeStatus(context.Background(), f.project.ID, constants.ProjectStatusDeclined,
		WithModelEffects(func(p *model.Project) {
			p.Title = "not declared"
			p.Record("admin", "out of scope")
		}, model.DecisionColumns...),
	)
	require.NoError(t, err)
	assert.False(t, got.ApprovedBySupervisor)

	var stored model.Project
	require.NoError(t, f.db.First(&stored, f.project.ID).Error)
	assert.Equal(t, constants.ProjectStatusDeclined, stored.Status)
	assert.True(t, stored.ApprovedBySupervisor)
	assert.Equal(t, "Climate", stored.Title)
	require.NotNil(t, stored.DecidedBy)
	assert.Equal(t, "admin", *stored.DecidedBy)
	require.NotNil(t, stored.DecisionReason)
	assert.Equal(t, "out of scope", *stored.DecisionReason)
}

func TestAllocation_BlockedOnDeclinedProject(t *testing.T) {
	f := setup(t, false)
	approveSupervisor(t, f.db, f.project.ID)
	require.NoError(t, f.db.Model(f.project).Update("status", constants.ProjectStatusDeclined).Error)

	sm := NewAllocationMachine(f.db, zap.NewNop(), nil)
	_, err := sm.ChangeStatus(context.Background(), f.allocation.ID, constants.AllocationStatusApproved)
	assert.ErrorIs(t, err, pkgErrors.ErrAllocationBlocked)

	assert.ErrorIs(t, CheckAllocationApprovable(f.db, f.project.ID), pkgErrors.ErrAllocationBlocked)
}

func TestMembership_Rerequest(t *testing.T) {
	f := setup(t, false)
	m := &model.ProjectUserMembership{ProjectID: f.project.ID, UserID: 2, Role: constants.MemberRoleMember, InitiatedByUser: false}
	require.NoError(t, f.db.Create(m).Error)

	var afterCalls int
	sm := NewMembershipMachine(f.db, zap.NewNop(), func(*model.ProjectUserMembership, int8, int8, *TransitionOptions[*model.ProjectUserMembership]) {
		afterCalls++
	})
	assert.False(t, sm.CanTransition(constants.MembershipStatusAuthorised, constants.MembershipStatusAwaitingAuthorisation))

	_, err := sm.ChangeStatus(context.Background(), m.ID, constants.MembershipStatusDeclined)
	require.NoError(t, err)

	got, err := sm.ChangeStatus(context.Background(), m.ID, constants.MembershipStatusAwaitingAuthorisation,
		WithModelEffects(func(m *model.ProjectUserMembership) { m.InitiatedByUser = true }, "initiated_by_user"))
	require.NoError(t, err)
	assert.Equal(t, constants.MembershipStatusAwaitingAuthorisation, got.Status)
	assert.Equal(t, 1, afterCalls)

	var stored model.ProjectUserMembership
	require.NoError(t, f.db.First(&stored, m.ID).Error)
	assert.True(t, stored.InitiatedByUser)
	assert.Equal(t, constants.MembershipStatusAwaitingAuthorisation, stored.Status)
}
