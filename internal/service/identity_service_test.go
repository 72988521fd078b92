package service

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/config"
	"hpc-portal/internal/pkg/jwt"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
)

func TestResolveRemoteUser_Known(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	user, err := e.identity.ResolveRemoteUser(ctx, RemoteAttributes{Username: " alice@swansea.ac.uk "})
	require.NoError(t, err)
	assert.Equal(t, e.alice.ID, user.ID)

	_, err = e.identity.ResolveRemoteUser(ctx, RemoteAttributes{})
	assert.ErrorIs(t, err, pkgErrors.ErrUnauthorized)
}

func TestResolveRemoteUser_UnknownRejectedByDefault(t *testing.T) {
	e := newEnv(t)

	_, err := e.identity.ResolveRemoteUser(context.Background(), RemoteAttributes{Username: "mallory@swansea.ac.uk"})
	assert.ErrorIs(t, err, pkgErrors.ErrUnknownUser)

	_, err = e.users.FindByUsername(constants.AuthTypeShibboleth, "mallory@swansea.ac.uk")
	assert.ErrorIs(t, err, pkgErrors.ErrRecordNotFound)
}

func TestResolveRemoteUser_CreatesWhenConfigured(t *testing.T) {
	e := newEnv(t, func(cfg *config.Config) {
		cfg.Auth.Shibboleth.CreateUnknownUser = true
	})
	ctx := context.Background()

	user, err := e.identity.ResolveRemoteUser(ctx, RemoteAttributes{
		Username:    "carol@cs.swansea.ac.uk",
		DisplayName: "Carol",
	})
	require.NoError(t, err)
	assert.Equal(t, "carol@cs.swansea.ac.uk", user.Email)
	require.NotNil(t, user.DisplayName)
	assert.Equal(t, "Carol", *user.DisplayName)
	require.False(t, user.Profile.IsExternal())
	assert.Equal(t, e.swansea.ID, *user.Profile.InstitutionID)

	again, err := e.identity.ResolveRemoteUser(ctx, RemoteAttributes{Username: "carol@cs.swansea.ac.uk"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	external, err := e.identity.ResolveRemoteUser(ctx, RemoteAttributes{Username: "dave", Email: "dave@example.com"})
	require.NoError(t, err)
	assert.True(t, external.Profile.IsExternal())
}

func TestResolveRemoteUser_Disabled(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.db.Model(&model.User{}).Where("id = ?", e.bob.ID).Update("status", constants.StatusDisabled).Error)

	_, err := e.identity.ResolveRemoteUser(context.Background(), RemoteAttributes{Username: e.bob.Username})
	assert.ErrorIs(t, err, pkgErrors.ErrUserDisabled)
}

func TestUserInfo(t *testing.T) {
	e := newEnv(t)
	e.createProject(t, e.alice, "Roles")

	info, err := e.identity.UserInfo(e.alice)
	require.NoError(t, err)
	assert.Equal(t, "Swansea University", info.InstitutionName)
	assert.False(t, info.IsExternal)
	assert.Equal(t, []string{constants.RoleProjectOwner}, info.Roles)

	info, err = e.identity.UserInfo(e.outside)
	require.NoError(t, err)
	assert.True(t, info.IsExternal)
	assert.Empty(t, info.Roles)
}

func TestInstitutionMatchEmail(t *testing.T) {
	e := newEnv(t)

	cases := map[string]bool{
		"a@swansea.ac.uk":       true,
		"a@SWANSEA.ac.uk":       true,
		"a@maths.swansea.ac.uk": true,
		"a@cardiff.ac.uk":       false,
		"a@notswansea.ac.uk":    false,
		"no-at-sign":            false,
		"trailing@":             false,
	}
	for email, want := range cases {
		inst, err := e.institutionSvc.MatchEmail(email)
		require.NoError(t, err, email)
		assert.Equal(t, want, inst != nil, email)
	}
}

func TestInstitutionLoadSeed(t *testing.T) {
	e := newEnv(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "institutions.yaml", []byte(`
institutions:
  - name: Swansea University
    base_domain: swansea.ac.uk
    needs_funding_approval: true
  - name: Cardiff University
    base_domain: Cardiff.ac.uk
    separate_allocation_requests: true
`), 0o644))

	n, err := e.institutionSvc.LoadSeed(fs, "institutions.yaml")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := e.institutionSvc.List()
	require.NoError(t, err)
	require.Len(t, all, 2)

	swansea, err := e.institutions.FindByID(e.swansea.ID)
	require.NoError(t, err)
	assert.True(t, swansea.NeedsFundingApproval)

	cardiff, err := e.institutionSvc.MatchEmail("x@cardiff.ac.uk")
	require.NoError(t, err)
	require.NotNil(t, cardiff)
	assert.True(t, cardiff.SeparateAllocationRequests)

	require.NoError(t, afero.WriteFile(fs, "broken.yaml", []byte("institutions:\n  - name: Nowhere\n"), 0o644))
	_, err = e.institutionSvc.LoadSeed(fs, "broken.yaml")
	assert.Error(t, err)

	_, err = e.institutionSvc.LoadSeed(fs, "missing.yaml")
	assert.Error(t, err)
}

func TestInstitutionUpdatePolicy(t *testing.T) {
	e := newEnv(t)
	on := true

	_, err := e.institutionSvc.UpdatePolicy(e.alice, e.swansea.ID, &dto.UpdateInstitutionPolicyRequest{NeedsFundingApproval: &on})
	assert.ErrorIs(t, err, pkgErrors.ErrForbidden)

	got, err := e.institutionSvc.UpdatePolicy(e.admin, e.swansea.ID, &dto.UpdateInstitutionPolicyRequest{SeparateAllocationRequests: &on})
	require.NoError(t, err)
	assert.True(t, got.SeparateAllocationRequests)
	assert.False(t, got.NeedsFundingApproval)
}

func newAuthService(e *env, local bool) AuthService {
	cfg := &config.AuthConfig{Local: config.LocalConfig{Enabled: local}}
	return NewAuthService(cfg, e.signer, e.users, NewLDAPService(&cfg.LDAP), e.identity, zap.NewNop())
}

func TestAuthLocalLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.userSvc.Provision(ctx, e.admin, &dto.ProvisionUserRequest{
		Username:     "operator",
		Email:        "operator@example.com",
		AuthProvider: constants.AuthTypeLocal,
		Password:     "correct horse",
	})
	require.NoError(t, err)

	svc := newAuthService(e, true)

	_, err = svc.Login(&dto.LoginRequest{Username: "operator", Password: "wrong", AuthType: constants.AuthTypeLocal})
	assert.ErrorIs(t, err, pkgErrors.ErrInvalidCredentials)
	_, err = svc.Login(&dto.LoginRequest{Username: "ghost", Password: "whatever", AuthType: constants.AuthTypeLocal})
	assert.ErrorIs(t, err, pkgErrors.ErrInvalidCredentials)

	resp, err := svc.Login(&dto.LoginRequest{Username: "operator", Password: "correct horse", AuthType: constants.AuthTypeLocal})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.True(t, resp.User.IsExternal)

	claims, err := e.signer.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	user, err := e.identity.ResolveClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, "operator", user.Username)

	refreshed, err := svc.RefreshToken(resp.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, refreshed.User.ID)

	_, err = svc.RefreshToken(resp.AccessToken)
	assert.Error(t, err)

	_, err = newAuthService(e, false).Login(&dto.LoginRequest{Username: "operator", Password: "correct horse", AuthType: constants.AuthTypeLocal})
	assert.Error(t, err)
	_, err = svc.Login(&dto.LoginRequest{Username: "operator", Password: "correct horse", AuthType: constants.AuthTypeLDAP})
	assert.Error(t, err)
}

func TestResolveClaims_Mismatch(t *testing.T) {
	e := newEnv(t)

	_, err := e.identity.ResolveClaims(&jwt.UserClaims{UserID: e.alice.ID, Username: "someone-else", AuthType: constants.AuthTypeShibboleth})
	assert.ErrorIs(t, err, pkgErrors.ErrInvalidToken)

	_, err = e.identity.ResolveClaims(&jwt.UserClaims{UserID: 999})
	assert.ErrorIs(t, err, pkgErrors.ErrInvalidToken)
}
