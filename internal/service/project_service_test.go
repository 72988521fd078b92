package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpc-portal/internal/adapter/notification"
	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
	"hpc-portal/pkg/utils"
)

func TestProjectCreate_AssignsTechLeadAndOwnerRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p, err := e.projectSvc.Create(ctx, e.alice, projectRequest("Coastal erosion"))
	require.NoError(t, err)

	assert.Equal(t, "scw0001", p.Code)
	assert.Equal(t, constants.ProjectStatusAwaitingApproval, p.Status)
	assert.Equal(t, "Awaiting Approval", p.StatusText)
	assert.False(t, p.ApprovedBySupervisor)
	require.NotNil(t, p.TechLead)
	assert.Equal(t, e.alice.ID, p.TechLead.ID)
	assert.Equal(t, e.swansea.ID, p.InstitutionID)

	owns, err := e.grants.Has(e.alice.ID, constants.RoleProjectOwner, p.ID)
	require.NoError(t, err)
	assert.True(t, owns)

	m, err := e.memberships.FindByProjectAndUser(p.ID, e.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.MemberRoleOwner, m.Role)
	assert.Equal(t, constants.MembershipStatusAuthorised, m.Status)

	mails := e.notifier.ofType(notification.NotifySupervisorApproval)
	require.Len(t, mails, 1)
	assert.Equal(t, []string{"jones@swansea.ac.uk"}, mails[0].Recipients)
	assert.Contains(t, mails[0].Content, "https://portal.example.ac.uk/approvals/supervisor?token=")
}

func TestProjectCreate_CodesAreSequential(t *testing.T) {
	e := newEnv(t)
	first := e.createProject(t, e.alice, "One")
	second := e.createProject(t, e.bob, "Two")
	assert.Equal(t, "scw0001", first.Code)
	assert.Equal(t, "scw0002", second.Code)
}

func TestProjectCreate_ExternalUserRejected(t *testing.T) {
	e := newEnv(t)

	_, err := e.projectSvc.Create(context.Background(), e.outside, projectRequest("Nope"))
	assert.ErrorIs(t, err, pkgErrors.ErrExternalUser)
	assert.Zero(t, e.countRows(t, &model.Project{}))
}

func TestProjectCreate_BlankTitleAndDescriptionRejected(t *testing.T) {
	e := newEnv(t)
	req := projectRequest("   ")
	req.Description = " \t "

	_, err := e.projectSvc.Create(context.Background(), e.alice, req)
	appErr, ok := pkgErrors.As(err)
	require.True(t, ok)
	assert.Equal(t, pkgErrors.CodeBadRequest, appErr.Code)
	assert.Equal(t, utils.RequiredMessage, appErr.Fields["title"])
	assert.Equal(t, utils.RequiredMessage, appErr.Fields["description"])

	_, err = e.projectSvc.CreateWithAllocation(context.Background(), e.alice, &dto.CreateProjectWithAllocationRequest{
		Project:    *req,
		Allocation: *allocationRequest(),
	})
	appErr, ok = pkgErrors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "title")

	assert.Zero(t, e.countRows(t, &model.Project{}))
	assert.Zero(t, e.countRows(t, &model.SystemAllocationRequest{}))
	assert.Zero(t, e.countRows(t, &model.ProjectUserMembership{}))
	assert.Empty(t, e.notifier.ofType(notification.NotifySupervisorApproval))
}

func TestProjectCreate_UnknownFundingSourceRollsBack(t *testing.T) {
	e := newEnv(t)
	req := projectRequest("Bad attachments")
	req.FundingSourceIDs = []int64{42}

	_, err := e.projectSvc.Create(context.Background(), e.alice, req)
	appErr, ok := pkgErrors.As(err)
	require.True(t, ok)
	assert.Equal(t, pkgErrors.CodeBadRequest, appErr.Code)
	assert.Contains(t, appErr.Fields, "funding_source_ids")
	assert.Zero(t, e.countRows(t, &model.Project{}))
	assert.Zero(t, e.countRows(t, &model.RoleGrant{}))
}

func TestProjectCreate_AttachesFundingAndPublications(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	body := &model.FundingBody{Name: "EPSRC"}
	require.NoError(t, e.funding.CreateBody(body))
	source, err := e.fundingSvc.CreateSource(ctx, e.alice, &dto.CreateFundingSourceRequest{
		Title: "Grant", Identifier: "EP/X000001/1", PIEmail: "pi@swansea.ac.uk", Amount: 1000, FundingBodyID: body.ID,
	})
	require.NoError(t, err)
	pub, err := NewPublicationService(e.funding).Create(e.alice, &dto.CreatePublicationRequest{
		Title: "Paper", URL: "http://arxiv.org/abs/1806.06043",
	})
	require.NoError(t, err)

	req := projectRequest("Attached")
	req.FundingSourceIDs = []int64{source.ID}
	req.PublicationIDs = []int64{pub.ID}
	p, err := e.projectSvc.Create(ctx, e.alice, req)
	require.NoError(t, err)

	require.Len(t, p.FundingSources, 1)
	assert.Equal(t, "EP/X000001/1", p.FundingSources[0].Identifier)
	require.Len(t, p.Publications, 1)
	assert.Equal(t, "Paper", p.Publications[0].Title)
}

func TestProjectCreateWithAllocation(t *testing.T) {
	t.Run("bundled when institution allows it", func(t *testing.T) {
		e := newEnv(t)
		resp, err := e.projectSvc.CreateWithAllocation(context.Background(), e.alice, &dto.CreateProjectWithAllocationRequest{
			Project:    *projectRequest("Bundled"),
			Allocation: *allocationRequest(),
		})
		require.NoError(t, err)
		assert.Equal(t, "scw0001", resp.Project.Code)
		assert.Equal(t, constants.AllocationStatusPending, resp.Allocation.Status)
		require.Len(t, resp.Project.Allocations, 1)
		assert.Len(t, e.notifier.ofType(notification.NotifyAllocationCreated), 1)
	})

	t.Run("rejected when allocations must be separate", func(t *testing.T) {
		e := newEnv(t)
		e.setPolicy(t, false, true)
		alice := e.reload(t, e.alice)

		_, err := e.projectSvc.CreateWithAllocation(context.Background(), alice, &dto.CreateProjectWithAllocationRequest{
			Project:    *projectRequest("Bundled"),
			Allocation: *allocationRequest(),
		})
		assert.ErrorIs(t, err, pkgErrors.ErrBundledNotAllowed)
		assert.Zero(t, e.countRows(t, &model.Project{}))
	})

	t.Run("invalid allocation persists neither", func(t *testing.T) {
		e := newEnv(t)
		alloc := allocationRequest()
		alloc.EndDate = ""

		_, err := e.projectSvc.CreateWithAllocation(context.Background(), e.alice, &dto.CreateProjectWithAllocationRequest{
			Project:    *projectRequest("Bundled"),
			Allocation: *alloc,
		})
		appErr, ok := pkgErrors.As(err)
		require.True(t, ok)
		assert.Equal(t, "This field is required.", appErr.Fields["end_date"])
		assert.Zero(t, e.countRows(t, &model.Project{}))
		assert.Zero(t, e.countRows(t, &model.SystemAllocationRequest{}))
	})
}

func TestProjectSeparateAllocationScenario(t *testing.T) {
	e := newEnv(t)
	e.setPolicy(t, false, true)
	alice := e.reload(t, e.alice)
	ctx := context.Background()

	p := e.createProject(t, alice, "Separate")
	assert.Empty(t, p.Allocations)

	_, err := e.allocationSvc.Create(ctx, alice, p.ID, allocationRequest(), nil)
	require.NoError(t, err)

	allocations, err := e.allocs.ListByProject(p.ID)
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	assert.Equal(t, constants.AllocationStatusPending, allocations[0].Status)
}

func TestProjectGet_Visibility(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, e.alice, "Private")

	_, err := e.projectSvc.GetByID(e.bob, p.ID)
	assert.ErrorIs(t, err, pkgErrors.ErrForbidden)

	_, err = e.projectSvc.GetByID(e.admin, p.ID)
	assert.NoError(t, err)
}

func TestProjectList_ScopedToTechLead(t *testing.T) {
	e := newEnv(t)
	e.createProject(t, e.alice, "Alice's")
	e.createProject(t, e.bob, "Bob's")

	mine, total, err := e.projectSvc.List(e.alice, &dto.ProjectListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Alice's", mine[0].Title)

	_, total, err = e.projectSvc.List(e.admin, &dto.ProjectListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestProjectDecide(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.createProject(t, e.alice, "Decide me")

	_, err := e.projectSvc.Decide(ctx, e.alice, p.ID, &dto.DecisionRequest{Decision: "approve"})
	assert.ErrorIs(t, err, pkgErrors.ErrForbidden)

	got, err := e.projectSvc.Decide(ctx, e.admin, p.ID, &dto.DecisionRequest{Decision: "approve", Reason: "fits"})
	require.NoError(t, err)
	assert.Equal(t, constants.ProjectStatusApproved, got.Status)

	_, err = e.projectSvc.Decide(ctx, e.admin, p.ID, &dto.DecisionRequest{Decision: "decline"})
	assert.ErrorIs(t, err, pkgErrors.ErrStateConflict)

	decided := e.notifier.ofType(notification.NotifyProjectDecided)
	require.Len(t, decided, 1)
	assert.Equal(t, []string{e.alice.Email}, decided[0].Recipients)
}

func TestProjectDecide_KeepsSupervisorApproval(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.createProject(t, e.alice, "Approved twice")
	e.approveSupervisor(t, p.ID)

	got, err := e.projectSvc.Decide(ctx, e.admin, p.ID, &dto.DecisionRequest{Decision: "decline", Reason: "out of scope"})
	require.NoError(t, err)
	assert.Equal(t, constants.ProjectStatusDeclined, got.Status)
	assert.True(t, got.ApprovedBySupervisor)
	require.NotNil(t, got.DecisionReason)
	assert.Equal(t, "out of scope", *got.DecisionReason)

	var stored model.Project
	require.NoError(t, e.db.First(&stored, p.ID).Error)
	assert.True(t, stored.ApprovedBySupervisor)
	assert.NotNil(t, stored.SupervisorApprovedAt)
	require.NotNil(t, stored.DecidedBy)
	assert.Equal(t, e.admin.Username, *stored.DecidedBy)
}

func TestProjectDelete_RevokesOwnerRoleWhenLastProject(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.createProject(t, e.alice, "Only one")
	_, err := e.membershipSvc.Join(ctx, e.bob, &dto.JoinProjectRequest{ProjectCode: p.Code})
	require.NoError(t, err)
	_, err = e.allocationSvc.Create(ctx, e.alice, p.ID, allocationRequest(), &DocumentUpload{
		Filename: "case.pdf", Reader: strings.NewReader("pdf"),
	})
	require.NoError(t, err)

	err = e.projectSvc.Delete(ctx, e.bob, p.ID)
	assert.ErrorIs(t, err, pkgErrors.ErrNotProjectOwner)

	require.NoError(t, e.projectSvc.Delete(ctx, e.alice, p.ID))

	n, err := e.grants.Count(e.alice.ID, constants.RoleProjectOwner)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, e.countRows(t, &model.ProjectUserMembership{}))
	assert.Zero(t, e.countRows(t, &model.SystemAllocationRequest{}))

	entries, err := e.fs.Open("allocation_documents/" + itoa(p.ID))
	if err == nil {
		names, _ := entries.Readdirnames(-1)
		assert.Empty(t, names)
	}

	histories, _, err := e.approvalRepo.ListHistory(constants.ResourceUser, e.alice.ID, dto.PageQuery{})
	require.NoError(t, err)
	require.Len(t, histories, 1)
	assert.Equal(t, constants.EventRoleRevoked, histories[0].Event)

	_, err = e.projects.FindByID(p.ID)
	assert.ErrorIs(t, err, pkgErrors.ErrRecordNotFound)
}

func TestProjectDelete_KeepsOwnerRoleWithOtherProjects(t *testing.T) {
	e := newEnv(t)
	first := e.createProject(t, e.alice, "First")
	e.createProject(t, e.alice, "Second")

	require.NoError(t, e.projectSvc.Delete(context.Background(), e.alice, first.ID))

	n, err := e.grants.Count(e.alice.ID, constants.RoleProjectOwner)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	histories, _, err := e.approvalRepo.ListHistory(constants.ResourceUser, e.alice.ID, dto.PageQuery{})
	require.NoError(t, err)
	assert.Empty(t, histories)
}
