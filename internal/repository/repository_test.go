package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/database"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	db   *gorm.DB
	inst *model.Institution
	seq  int
}

func newFixture(t *testing.T) *fixture {
	db := newDB(t)
	inst := &model.Institution{Name: "Swansea University", BaseDomain: "swansea.ac.uk"}
	require.NoError(t, db.Create(inst).Error)
	return &fixture{db: db, inst: inst}
}

func (f *fixture) user(t *testing.T, name string) *model.User {
	u := &model.User{Username: name + "@swansea.ac.uk", Email: name + "@swansea.ac.uk", SystemRoles: model.StringList{}}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) project(t *testing.T, lead *model.User) *model.Project {
	f.seq++
	p := &model.Project{
		Code:          fmt.Sprintf("scw%04d", f.seq),
		Title:         "Climate",
		Description:   "ocean model",
		TechLeadID:    lead.ID,
		InstitutionID: f.inst.ID,
	}
	require.NoError(t, NewProjectRepository(f.db).Create(p))
	return p
}

func TestApprovalRepository_ConsumeTokenOnce(t *testing.T) {
	repo := NewApprovalRepository(newDB(t))
	token := func(id string, expires time.Time) *model.UsedApprovalToken {
		return &model.UsedApprovalToken{TokenID: id, Purpose: constants.TokenPurposeSupervisorApproval, SubjectID: 1, ExpiresAt: expires}
	}

	require.NoError(t, repo.ConsumeToken(token("jti-1", time.Now().Add(-time.Hour))))
	assert.ErrorIs(t, repo.ConsumeToken(token("jti-1", time.Now().Add(-time.Hour))), pkgErrors.ErrTokenUsed)
	require.NoError(t, repo.ConsumeToken(token("jti-2", time.Now().Add(time.Hour))))

	n, err := repo.PurgeExpiredTokens(time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	// 清理后同一个 jti 可再次记录, 过期校验由签名层负责
	assert.NoError(t, repo.ConsumeToken(token("jti-1", time.Now())))
}

func TestApprovalRepository_HistoryInOrder(t *testing.T) {
	repo := NewApprovalRepository(newDB(t))
	for i, event := range []string{"created", "approved"} {
		require.NoError(t, repo.RecordHistory(&model.StatusHistory{
			ResourceType: "allocation", ResourceID: 9, Event: event, ToStatus: int8(i),
		}))
	}
	require.NoError(t, repo.RecordHistory(&model.StatusHistory{ResourceType: "project", ResourceID: 9, Event: "created"}))

	histories, total, err := repo.ListHistory("allocation", 9, dto.PageQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, histories, 2)
	assert.Equal(t, "created", histories[0].Event)
	assert.Equal(t, "approved", histories[1].Event)
}

func TestProjectRepository_ApproveBySupervisorOnce(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, f.user(t, "alice"))
	repo := NewProjectRepository(f.db)

	ok, err := repo.ApproveBySupervisor(p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ApproveBySupervisor(p.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByID(p.ID)
	require.NoError(t, err)
	assert.True(t, got.ApprovedBySupervisor)
	assert.NotNil(t, got.SupervisorApprovedAt)
}

func TestProjectRepository_DeleteKeepsCodeReserved(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "alice")
	p := f.project(t, lead)
	repo := NewProjectRepository(f.db)

	require.NoError(t, repo.Delete(p.ID))
	_, err := repo.FindByCode(p.Code)
	assert.ErrorIs(t, err, pkgErrors.ErrRecordNotFound)

	dup := &model.Project{Code: p.Code, Title: "again", Description: "x", TechLeadID: lead.ID, InstitutionID: f.inst.ID}
	err = repo.Create(dup)
	require.Error(t, err)
	appErr, ok := pkgErrors.As(err)
	require.True(t, ok)
	assert.Equal(t, pkgErrors.CodeConflict, appErr.Code)
}

func TestProjectRepository_ListByMember(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	owned := f.project(t, alice)
	joined := f.project(t, bob)
	f.project(t, bob)

	require.NoError(t, NewMembershipRepository(f.db).Create(&model.ProjectUserMembership{
		ProjectID: joined.ID, UserID: alice.ID, Status: constants.MembershipStatusAuthorised,
	}))

	repo := NewProjectRepository(f.db)
	projects, total, err := repo.List(ProjectListParam{MemberID: &alice.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, joined.ID, projects[0].ID)

	projects, total, err = repo.List(ProjectListParam{TechLeadID: &alice.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, owned.ID, projects[0].ID)

	ids, err := repo.ListIDsByTechLead(bob.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestMembershipRepository_RequestsForOwner(t *testing.T) {
	f := newFixture(t)
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	p := f.project(t, alice)
	repo := NewMembershipRepository(f.db)

	for _, m := range []*model.ProjectUserMembership{
		{ProjectID: p.ID, UserID: alice.ID, Role: constants.MemberRoleOwner, Status: constants.MembershipStatusAuthorised},
		{ProjectID: p.ID, UserID: bob.ID, InitiatedByUser: true, Status: constants.MembershipStatusAwaitingAuthorisation},
		{ProjectID: p.ID, UserID: carol.ID, Status: constants.MembershipStatusAwaitingAuthorisation},
	} {
		require.NoError(t, repo.Create(m))
	}

	awaiting := constants.MembershipStatusAwaitingAuthorisation
	requests, total, err := repo.List(MembershipListParam{
		PageQuery:         dto.PageQuery{Status: &awaiting},
		OwnerID:           &alice.ID,
		ExcludeMe:         true,
		OnlyUserInitiated: true,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, requests, 1)
	assert.Equal(t, bob.ID, requests[0].UserID)
	require.NotNil(t, requests[0].User)
	assert.Equal(t, bob.Username, requests[0].User.Username)

	err = repo.Create(&model.ProjectUserMembership{ProjectID: p.ID, UserID: bob.ID})
	assert.Error(t, err)

	got, err := repo.FindByProjectAndUser(p.ID, carol.ID)
	require.NoError(t, err)
	assert.False(t, got.InitiatedByUser)

	require.NoError(t, repo.DeleteByProject(p.ID))
	_, err = repo.FindByID(got.ID)
	assert.ErrorIs(t, err, pkgErrors.ErrRecordNotFound)
}
