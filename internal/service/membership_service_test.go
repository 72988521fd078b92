package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpc-portal/internal/adapter/notification"
	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
)

func TestMembershipJoin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.createProject(t, e.alice, "Joinable")

	_, err := e.membershipSvc.Join(ctx, e.bob, &dto.JoinProjectRequest{ProjectCode: "scw9999"})
	assert.ErrorIs(t, err, pkgErrors.ErrInvalidProjectCode)

	first, err := e.membershipSvc.Join(ctx, e.bob, &dto.JoinProjectRequest{ProjectCode: " " + p.Code + " "})
	require.NoError(t, err)
	assert.Equal(t, constants.MembershipStatusAwaitingAuthorisation, first.Status)
	assert.Equal(t, "Awaiting Authorisation", first.StatusText)
	assert.True(t, first.InitiatedByUser)
	assert.Equal(t, constants.MemberRoleMember, first.Role)

	// 重复申请返回同一条记录
	second, err := e.membershipSvc.Join(ctx, e.bob, &dto.JoinProjectRequest{ProjectCode: p.Code})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 2, e.countRows(t, &model.ProjectUserMembership{}))

	requests := e.notifier.ofType(notification.NotifyMembershipRequest)
	require.Len(t, requests, 1)
	assert.Equal(t, []string{e.alice.Email}, requests[0].Recipients)
}

func TestMembershipAuthorise_ByOwnerOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.createProject(t, e.alice, "Authorise")
	carol := e.addUser(t, "carol@swansea.ac.uk", &e.swansea.ID)

	m, err := e.membershipSvc.Join(ctx, e.bob, &dto.JoinProjectRequest{ProjectCode: p.Code})
	require.NoError(t, err)

	_, err = e.membershipSvc.Authorise(ctx, e.bob, m.ID)
	assert.ErrorIs(t, err, pkgErrors.ErrNotProjectOwner)
	_, err = e.membershipSvc.Authorise(ctx, carol, m.ID)
	assert.ErrorIs(t, err, pkgErrors.ErrNotProjectOwner)

	got, err := e.membershipSvc.Authorise(ctx, e.alice, m.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.MembershipStatusAuthorised, got.Status)

	// 已授权成员可以查看项目
	_, err = e.projectSvc.GetByID(e.bob, p.ID)
	assert.NoError(t, err)

	_, err = e.membershipSvc.Decline(ctx, e.alice, m.ID)
	assert.ErrorIs(t, err, pkgErrors.ErrStateConflict)

	decided := e.notifier.ofType(notification.NotifyMembershipDecided)
	require.Len(t, decided, 1)
	assert.Equal(t, []string{e.bob.Email}, decided[0].Recipients)

	histories, _, err := e.approvalRepo.ListHistory(constants.ResourceMembership, m.ID, dto.PageQuery{})
	require.NoError(t, err)
	require.Len(t, histories, 1)
	assert.Equal(t, constants.EventMemberAuthorise, histories[0].Event)
	assert.Equal(t, p.Code, histories[0].Detail["project_code"])
}

func TestMembershipInvite(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.createProject(t, e.alice, "Invite")

	_, err := e.membershipSvc.Invite(ctx, e.bob, p.ID, &dto.InviteMemberRequest{Email: e.outside.Email})
	assert.ErrorIs(t, err, pkgErrors.ErrNotProjectOwner)

	_, err = e.membershipSvc.Invite(ctx, e.alice, p.ID, &dto.InviteMemberRequest{Email: "nobody@swansea.ac.uk"})
	appErr, ok := pkgErrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "No user with this email address exists.", appErr.Fields["email"])

	m, err := e.membershipSvc.Invite(ctx, e.alice, p.ID, &dto.InviteMemberRequest{Email: "BOB@swansea.ac.uk"})
	require.NoError(t, err)
	assert.False(t, m.InitiatedByUser)

	invites := e.notifier.ofType(notification.NotifyMembershipRequest)
	require.Len(t, invites, 1)
	assert.Equal(t, []string{e.bob.Email}, invites[0].Recipients)

	// 邀请由被邀请人处理
	_, err = e.membershipSvc.Authorise(ctx, e.alice, m.ID)
	assert.ErrorIs(t, err, pkgErrors.ErrForbidden)

	got, err := e.membershipSvc.Decline(ctx, e.bob, m.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.MembershipStatusDeclined, got.Status)

	decided := e.notifier.ofType(notification.NotifyMembershipDecided)
	require.Len(t, decided, 1)
	assert.Equal(t, []string{e.alice.Email}, decided[0].Recipients)
}

func TestMembershipRevoke(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.createProject(t, e.alice, "Revoke")

	m, err := e.membershipSvc.Join(ctx, e.bob, &dto.JoinProjectRequest{ProjectCode: p.Code})
	require.NoError(t, err)

	// 未授权的不能撤销
	_, err = e.membershipSvc.Revoke(ctx, e.alice, m.ID)
	assert.ErrorIs(t, err, pkgErrors.ErrStateConflict)

	_, err = e.membershipSvc.Authorise(ctx, e.alice, m.ID)
	require.NoError(t, err)

	_, err = e.membershipSvc.Revoke(ctx, e.bob, m.ID)
	assert.ErrorIs(t, err, pkgErrors.ErrNotProjectOwner)

	got, err := e.membershipSvc.Revoke(ctx, e.alice, m.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.MembershipStatusRevoked, got.Status)

	_, err = e.projectSvc.GetByID(e.bob, p.ID)
	assert.ErrorIs(t, err, pkgErrors.ErrForbidden)

	owner, err := e.memberships.FindByProjectAndUser(p.ID, e.alice.ID)
	require.NoError(t, err)
	_, err = e.membershipSvc.Revoke(ctx, e.alice, owner.ID)
	appErr, ok := pkgErrors.As(err)
	require.True(t, ok)
	assert.Equal(t, pkgErrors.CodeForbidden, appErr.Code)
}

func TestMembershipRerequest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.createProject(t, e.alice, "Second chance")

	invite, err := e.membershipSvc.Invite(ctx, e.alice, p.ID, &dto.InviteMemberRequest{Email: e.bob.Email})
	require.NoError(t, err)
	_, err = e.membershipSvc.Decline(ctx, e.bob, invite.ID)
	require.NoError(t, err)

	// 拒绝邀请后自己申请, 同一条记录回到待授权
	again, err := e.membershipSvc.Join(ctx, e.bob, &dto.JoinProjectRequest{ProjectCode: p.Code})
	require.NoError(t, err)
	assert.Equal(t, invite.ID, again.ID)
	assert.Equal(t, constants.MembershipStatusAwaitingAuthorisation, again.Status)
	assert.True(t, again.InitiatedByUser)
	assert.EqualValues(t, 2, e.countRows(t, &model.ProjectUserMembership{}))

	requests := e.notifier.ofType(notification.NotifyMembershipRequest)
	require.Len(t, requests, 2)
	assert.Equal(t, []string{e.alice.Email}, requests[1].Recipients)

	// 现在由负责人处理
	_, err = e.membershipSvc.Authorise(ctx, e.alice, again.ID)
	require.NoError(t, err)
	_, err = e.membershipSvc.Revoke(ctx, e.alice, again.ID)
	require.NoError(t, err)

	// 撤销后负责人可以重新邀请
	reinvited, err := e.membershipSvc.Invite(ctx, e.alice, p.ID, &dto.InviteMemberRequest{Email: e.bob.Email})
	require.NoError(t, err)
	assert.Equal(t, invite.ID, reinvited.ID)
	assert.Equal(t, constants.MembershipStatusAwaitingAuthorisation, reinvited.Status)
	assert.False(t, reinvited.InitiatedByUser)

	// 待授权时重复申请不产生新的通知
	_, err = e.membershipSvc.Invite(ctx, e.alice, p.ID, &dto.InviteMemberRequest{Email: e.bob.Email})
	require.NoError(t, err)
	assert.Len(t, e.notifier.ofType(notification.NotifyMembershipRequest), 3)

	histories, _, err := e.approvalRepo.ListHistory(constants.ResourceMembership, invite.ID, dto.PageQuery{})
	require.NoError(t, err)
	events := make([]string, 0, len(histories))
	for _, h := range histories {
		events = append(events, h.Event)
	}
	assert.Equal(t, []string{
		constants.EventMemberDecline, constants.EventMemberRequest, constants.EventMemberAuthorise,
		constants.EventMemberRevoke, constants.EventMemberRequest,
	}, events)
}

func TestMembershipLists(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.createProject(t, e.alice, "Lists")
	_, err := e.membershipSvc.Join(ctx, e.bob, &dto.JoinProjectRequest{ProjectCode: p.Code})
	require.NoError(t, err)

	mine, total, err := e.membershipSvc.ListMine(e.bob, &dto.PageQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, p.Code, mine[0].ProjectCode)

	requests, total, err := e.membershipSvc.ListRequests(e.alice, &dto.PageQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.NotNil(t, requests[0].User)
	assert.Equal(t, e.bob.ID, requests[0].User.ID)

	_, total, err = e.membershipSvc.ListRequests(e.bob, &dto.PageQuery{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
