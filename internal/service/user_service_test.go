package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpc-portal/internal/dto"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
)

func TestUserProvision(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.userSvc.Provision(ctx, e.alice, &dto.ProvisionUserRequest{Username: "x", Email: "x@swansea.ac.uk"})
	assert.ErrorIs(t, err, pkgErrors.ErrForbidden)

	info, err := e.userSvc.Provision(ctx, e.admin, &dto.ProvisionUserRequest{
		Username:      "frank@swansea.ac.uk",
		Email:         "frank@swansea.ac.uk",
		DisplayName:   "Frank",
		InstitutionID: &e.swansea.ID,
		SystemRoles:   []string{constants.RoleAllocationReviewer, constants.RoleAllocationReviewer},
	})
	require.NoError(t, err)
	assert.Equal(t, constants.AuthTypeShibboleth, info.AuthType)
	assert.Equal(t, "Swansea University", info.InstitutionName)
	assert.Equal(t, []string{constants.RoleAllocationReviewer}, info.SystemRoles)

	// 预建的联邦用户可以直接登录
	user, err := e.identity.ResolveRemoteUser(ctx, RemoteAttributes{Username: "frank@swansea.ac.uk"})
	require.NoError(t, err)
	assert.Equal(t, info.ID, user.ID)

	_, err = e.userSvc.Provision(ctx, e.admin, &dto.ProvisionUserRequest{Username: "frank@swansea.ac.uk", Email: "frank@swansea.ac.uk"})
	appErr, ok := pkgErrors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "username")

	_, err = e.userSvc.Provision(ctx, e.admin, &dto.ProvisionUserRequest{
		Username: "svc", Email: "svc@example.com", AuthProvider: constants.AuthTypeLocal,
	})
	appErr, ok = pkgErrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "This field is required.", appErr.Fields["password"])

	missing := int64(999)
	_, err = e.userSvc.Provision(ctx, e.admin, &dto.ProvisionUserRequest{Username: "y", Email: "y@example.com", InstitutionID: &missing})
	appErr, ok = pkgErrors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "institution_id")
}

func TestUserUpdateSystemRoles(t *testing.T) {
	e := newEnv(t)

	_, err := e.userSvc.UpdateSystemRoles(e.bob, e.alice.ID, &dto.UpdateSystemRolesRequest{SystemRoles: []string{constants.RoleSystemAdmin}})
	assert.ErrorIs(t, err, pkgErrors.ErrForbidden)

	info, err := e.userSvc.UpdateSystemRoles(e.admin, e.alice.ID, &dto.UpdateSystemRolesRequest{SystemRoles: []string{constants.RoleFundingApprover}})
	require.NoError(t, err)
	assert.Equal(t, []string{constants.RoleFundingApprover}, info.SystemRoles)

	alice := e.reload(t, e.alice)
	assert.True(t, alice.HasSystemRole(constants.RoleFundingApprover))

	_, err = e.userSvc.UpdateSystemRoles(e.admin, e.admin.ID, &dto.UpdateSystemRolesRequest{SystemRoles: nil})
	assert.Error(t, err)
	assert.True(t, e.reload(t, e.admin).HasSystemRole(constants.RoleSystemAdmin))
}

func TestUserList(t *testing.T) {
	e := newEnv(t)

	_, _, err := e.userSvc.List(e.alice, &dto.UserListQuery{})
	assert.ErrorIs(t, err, pkgErrors.ErrForbidden)

	users, total, err := e.userSvc.List(e.admin, &dto.UserListQuery{PageQuery: dto.PageQuery{Keyword: "alice"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, e.alice.Username, users[0].Username)
}
