package service

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hpc-portal/internal/adapter/notification"
	"hpc-portal/internal/adapter/storage"
	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/config"
	"hpc-portal/internal/pkg/database"
	"hpc-portal/internal/pkg/jwt"
	"hpc-portal/internal/repository"
	"hpc-portal/pkg/constants"
)

// recorder 同步记录通知, 便于断言
type recorder struct {
	mu   sync.Mutex
	msgs []*notification.NotificationMessage
}

func (r *recorder) Send(_ context.Context, msg *notification.NotificationMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) ofType(t notification.NotificationType) []*notification.NotificationMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Filter(r.msgs, func(m *notification.NotificationMessage, _ int) bool { return m.Type == t })
}

type env struct {
	db       *gorm.DB
	fs       afero.Fs
	notifier *recorder
	signer   *jwt.Signer

	users        repository.UserRepository
	projects     repository.ProjectRepository
	allocs       repository.AllocationRepository
	memberships  repository.MembershipRepository
	grants       repository.RoleGrantRepository
	funding      repository.FundingRepository
	approvalRepo repository.ApprovalRepository
	institutions repository.InstitutionRepository

	institutionSvc InstitutionService
	identity       IdentityService
	approvals      ApprovalService
	fundingSvc     FundingService
	allocationSvc  AllocationService
	projectSvc     ProjectService
	membershipSvc  MembershipService
	userSvc        UserService
	historySvc     HistoryService

	swansea *model.Institution
	admin   *model.User
	alice   *model.User
	bob     *model.User
	outside *model.User
}

type envOption func(cfg *config.Config)

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Auth.JWT = config.JWTConfig{Secret: "test-secret", AccessTokenExpire: 3600, RefreshTokenExpire: 7200}
	cfg.Approval = config.ApprovalConfig{TokenTTL: 3600, PublicURL: "https://portal.example.ac.uk/"}
	cfg.Project.CodePrefix = "scw"
	cfg.Notification.Reviewers = []string{"hpc-team@example.ac.uk"}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := zap.NewNop()
	e := &env{
		db:           db,
		fs:           afero.NewMemMapFs(),
		notifier:     &recorder{},
		signer:       jwt.NewSigner(cfg.Auth.JWT),
		users:        repository.NewUserRepository(db),
		projects:     repository.NewProjectRepository(db),
		allocs:       repository.NewAllocationRepository(db),
		memberships:  repository.NewMembershipRepository(db),
		grants:       repository.NewRoleGrantRepository(db),
		funding:      repository.NewFundingRepository(db),
		approvalRepo: repository.NewApprovalRepository(db),
		institutions: repository.NewInstitutionRepository(db),
	}
	store := storage.NewFsDocumentStore(e.fs, 1<<20, logger)

	e.institutionSvc = NewInstitutionService(e.institutions, e.grants, logger)
	e.identity = NewIdentityService(db, cfg.Auth.Shibboleth, e.users, e.grants, e.institutionSvc, logger)
	e.approvals = NewApprovalService(db, cfg.Approval, e.signer, e.approvalRepo, e.projects, e.funding, logger)
	e.fundingSvc = NewFundingService(db, e.funding, e.approvalRepo, e.grants, e.approvals, e.notifier, logger)
	e.allocationSvc = NewAllocationService(db, e.allocs, e.projects, e.users, e.grants, store, e.notifier, cfg.Notification.Reviewers, logger)
	e.projectSvc = NewProjectService(ProjectDeps{
		DB:              db,
		Config:          cfg.Project,
		Projects:        e.projects,
		Allocations:     e.allocs,
		Memberships:     e.memberships,
		Grants:          e.grants,
		Funding:         e.funding,
		Approvals:       e.approvalRepo,
		Institutions:    e.institutions,
		Users:           e.users,
		ApprovalService: e.approvals,
		AllocationSvc:   e.allocationSvc,
		Store:           store,
		Notifier:        e.notifier,
		Logger:          logger,
	})
	e.membershipSvc = NewMembershipService(db, e.memberships, e.projects, e.users, e.grants, e.notifier, logger)
	e.userSvc = NewUserService(db, e.users, e.institutions, e.grants, e.identity, logger)
	e.historySvc = NewHistoryService(e.approvalRepo)

	e.swansea = &model.Institution{Name: "Swansea University", BaseDomain: "swansea.ac.uk"}
	require.NoError(t, e.institutions.Create(e.swansea))

	e.admin = e.addUser(t, "admin@swansea.ac.uk", &e.swansea.ID, constants.RoleSystemAdmin)
	e.alice = e.addUser(t, "alice@swansea.ac.uk", &e.swansea.ID)
	e.bob = e.addUser(t, "bob@swansea.ac.uk", &e.swansea.ID)
	e.outside = e.addUser(t, "eve@gmail.com", nil)
	return e
}

func (e *env) addUser(t *testing.T, username string, institutionID *int64, roles ...string) *model.User {
	t.Helper()
	user := &model.User{
		AuthProvider: constants.AuthTypeShibboleth,
		Username:     username,
		Email:        username,
		SystemRoles:  model.StringList(roles),
		BaseStatus:   model.BaseStatus{Status: constants.StatusEnabled},
	}
	require.NoError(t, e.users.Create(user))
	require.NoError(t, e.users.CreateProfile(&model.Profile{UserID: user.ID, InstitutionID: institutionID}))
	return e.reload(t, user)
}

func (e *env) reload(t *testing.T, user *model.User) *model.User {
	t.Helper()
	fresh, err := e.users.FindByID(user.ID)
	require.NoError(t, err)
	return fresh
}

func (e *env) setPolicy(t *testing.T, needsFunding, separate bool) {
	t.Helper()
	e.swansea.NeedsFundingApproval = needsFunding
	e.swansea.SeparateAllocationRequests = separate
	require.NoError(t, e.institutions.Update(e.swansea))
}

func projectRequest(title string) *dto.CreateProjectRequest {
	return &dto.CreateProjectRequest{
		Title:              title,
		Description:        "Simulating coastal erosion",
		Department:         "Geography",
		SupervisorName:     "Dr Jones",
		SupervisorPosition: "Lecturer",
		SupervisorEmail:    "jones@swansea.ac.uk",
	}
}

func allocationRequest() *dto.CreateAllocationRequest {
	return &dto.CreateAllocationRequest{
		StartDate:                "2026-01-01",
		EndDate:                  "2026-12-31",
		AllocationCPUTime:        87695464,
		AllocationMemory:         1,
		AllocationStorageHome:    200,
		AllocationStorageScratch: 1,
		RequirementsSoftware:     "gromacs",
	}
}

func (e *env) createProject(t *testing.T, actor *model.User, title string) *dto.ProjectResponse {
	t.Helper()
	p, err := e.projectSvc.Create(context.Background(), actor, projectRequest(title))
	require.NoError(t, err)
	return p
}

func (e *env) countRows(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Count(&n).Error)
	return n
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

var tokenPattern = regexp.MustCompile(`token=([A-Za-z0-9._%-]+)`)

// linkToken 从审批邮件中取出令牌
func linkToken(t *testing.T, msg *notification.NotificationMessage) string {
	t.Helper()
	m := tokenPattern.FindStringSubmatch(msg.Content)
	require.Len(t, m, 2, "no approval link in %q", msg.Content)
	token, err := url.QueryUnescape(m[1])
	require.NoError(t, err)
	return token
}

// approveSupervisor 走一遍导师邮件审批
func (e *env) approveSupervisor(t *testing.T, projectID int64) {
	t.Helper()
	for _, msg := range e.notifier.ofType(notification.NotifySupervisorApproval) {
		token := linkToken(t, msg)
		claims, err := e.signer.ParseApprovalToken(token, constants.TokenPurposeSupervisorApproval)
		require.NoError(t, err)
		if claims.SubjectID != projectID {
			continue
		}
		_, err = e.approvals.ApproveSupervisor(context.Background(), token)
		require.NoError(t, err)
		return
	}
	t.Fatalf("no supervisor approval sent for project %d", projectID)
}
