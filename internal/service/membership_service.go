package service

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hpc-portal/internal/adapter/notification"
	"hpc-portal/internal/core/workflow"
	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/auth"
	"hpc-portal/internal/repository"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
)

type MembershipService interface {
	// Join 按项目编号申请加入, 同一 (project, user) 重复申请返回已有记录, 已拒绝或已撤销的重新进入待授权
	Join(ctx context.Context, actor *model.User, req *dto.JoinProjectRequest) (*dto.MembershipResponse, error)
	// Invite 负责人按邮箱邀请已有用户
	Invite(ctx context.Context, actor *model.User, projectID int64, req *dto.InviteMemberRequest) (*dto.MembershipResponse, error)
	Authorise(ctx context.Context, actor *model.User, id int64) (*dto.MembershipResponse, error)
	Decline(ctx context.Context, actor *model.User, id int64) (*dto.MembershipResponse, error)
	Revoke(ctx context.Context, actor *model.User, id int64) (*dto.MembershipResponse, error)
	ListMine(actor *model.User, query *dto.PageQuery) ([]*dto.MembershipResponse, int64, error)
	// ListRequests 我负责的项目上其他人的成员关系
	ListRequests(actor *model.User, query *dto.PageQuery) ([]*dto.MembershipResponse, int64, error)
}

type membershipService struct {
	db          *gorm.DB
	repo        repository.MembershipRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	notifier    notification.Notifier
	machine     *workflow.MembershipMachine
	access      accessChecker
	logger      *zap.Logger
}

func NewMembershipService(
	db *gorm.DB,
	repo repository.MembershipRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	grantRepo repository.RoleGrantRepository,
	notifier notification.Notifier,
	logger *zap.Logger,
) MembershipService {
	s := &membershipService{
		db:          db,
		repo:        repo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		access:      accessChecker{grantRepo: grantRepo},
		logger:      logger,
	}
	s.machine = workflow.NewMembershipMachine(db, logger, s.afterTransition)
	return s
}

func (s *membershipService) Join(ctx context.Context, actor *model.User, req *dto.JoinProjectRequest) (*dto.MembershipResponse, error) {
	project, err := s.projectRepo.FindByCode(strings.TrimSpace(req.ProjectCode))
	if err != nil {
		if err == pkgErrors.ErrRecordNotFound {
			return nil, pkgErrors.ErrInvalidProjectCode
		}
		return nil, err
	}

	membership, requested, err := s.ensure(ctx, actor, project, actor, true)
	if err != nil {
		return nil, err
	}
	if requested {
		s.notifyOwner(ctx, project, actor)
	}
	return toMembershipResponse(membership), nil
}

func (s *membershipService) Invite(ctx context.Context, actor *model.User, projectID int64, req *dto.InviteMemberRequest) (*dto.MembershipResponse, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.access.requireProject(actor, project, auth.PermProjectInvite); err != nil {
		return nil, err
	}

	invitee, err := s.userRepo.FindByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		if err == pkgErrors.ErrRecordNotFound {
			return nil, pkgErrors.Validation(map[string]string{"email": "No user with this email address exists."})
		}
		return nil, err
	}

	membership, requested, err := s.ensure(ctx, actor, project, invitee, false)
	if err != nil {
		return nil, err
	}
	if requested && invitee.Email != "" {
		msg := notification.MembershipRequestMessage(invitee.Email, project.Code, displayName(actor), true)
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.logger.Warn("邀请通知投递失败", zap.Int64("membership_id", membership.ID), zap.Error(err))
		}
	}
	return toMembershipResponse(membership), nil
}

// ensure 返回的 bool 表示产生了新的待授权申请.
// 待授权或已授权的直接返回, 已拒绝或已撤销的重新进入待授权, 并发创建撞上唯一索引时重新读取
func (s *membershipService) ensure(ctx context.Context, actor *model.User, project *model.Project, user *model.User, initiatedByUser bool) (*model.ProjectUserMembership, bool, error) {
	repo := s.repo.WithTx(s.db.WithContext(ctx))
	existing, err := repo.FindByProjectAndUser(project.ID, user.ID)
	if err == nil {
		if existing.Status != constants.MembershipStatusDeclined && existing.Status != constants.MembershipStatusRevoked {
			return existing, false, nil
		}
		return s.rerequest(ctx, actor, project, user, existing, initiatedByUser)
	}
	if err != pkgErrors.ErrRecordNotFound {
		return nil, false, err
	}

	membership := &model.ProjectUserMembership{
		ProjectID:       project.ID,
		UserID:          user.ID,
		Role:            constants.MemberRoleMember,
		InitiatedByUser: initiatedByUser,
		Status:          constants.MembershipStatusAwaitingAuthorisation,
	}
	if err := repo.Create(membership); err != nil {
		if isDuplicate(err) {
			existing, err := repo.FindByProjectAndUser(project.ID, user.ID)
			return existing, false, err
		}
		return nil, false, err
	}
	membership.Project = project
	membership.User = user

	s.logger.Info("成员关系已创建",
		zap.Int64("id", membership.ID),
		zap.String("project", project.Code),
		zap.String("user", user.Username),
		zap.Bool("initiated_by_user", initiatedByUser))
	return membership, true, nil
}

func (s *membershipService) rerequest(ctx context.Context, actor *model.User, project *model.Project, user *model.User, existing *model.ProjectUserMembership, initiatedByUser bool) (*model.ProjectUserMembership, bool, error) {
	updated, err := s.machine.ChangeStatus(ctx, existing.ID, constants.MembershipStatusAwaitingAuthorisation,
		workflow.WithOperator[*model.ProjectUserMembership](operatorName(actor)),
		workflow.WithDetail[*model.ProjectUserMembership]("project_code", project.Code),
		workflow.WithModelEffects(func(m *model.ProjectUserMembership) {
			m.InitiatedByUser = initiatedByUser
		}, "initiated_by_user"),
	)
	if err != nil {
		return nil, false, err
	}
	updated.Project = project
	updated.User = user

	s.logger.Info("成员关系重新申请",
		zap.Int64("id", updated.ID),
		zap.String("project", project.Code),
		zap.String("user", user.Username),
		zap.Bool("initiated_by_user", initiatedByUser))
	return updated, true, nil
}

func (s *membershipService) notifyOwner(ctx context.Context, project *model.Project, requester *model.User) {
	lead, err := s.userRepo.FindByID(project.TechLeadID)
	if err != nil || lead.Email == "" {
		return
	}
	msg := notification.MembershipRequestMessage(lead.Email, project.Code, displayName(requester), false)
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("成员申请通知投递失败", zap.String("project", project.Code), zap.Error(err))
	}
}

func (s *membershipService) Authorise(ctx context.Context, actor *model.User, id int64) (*dto.MembershipResponse, error) {
	return s.decide(ctx, actor, id, constants.MembershipStatusAuthorised)
}

func (s *membershipService) Decline(ctx context.Context, actor *model.User, id int64) (*dto.MembershipResponse, error) {
	return s.decide(ctx, actor, id, constants.MembershipStatusDeclined)
}

// decide 用户发起的申请由负责人处理, 邀请由被邀请人处理
func (s *membershipService) decide(ctx context.Context, actor *model.User, id int64, to int8) (*dto.MembershipResponse, error) {
	membership, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if membership.Project == nil {
		return nil, pkgErrors.ErrRecordNotFound
	}

	if membership.InitiatedByUser {
		if err := s.access.requireProject(actor, membership.Project, auth.PermMembershipDecide); err != nil {
			return nil, err
		}
	} else if membership.UserID != actor.ID && !isAdmin(actor) {
		return nil, pkgErrors.ErrForbidden
	}

	return s.transition(ctx, actor, membership, to)
}

func (s *membershipService) Revoke(ctx context.Context, actor *model.User, id int64) (*dto.MembershipResponse, error) {
	membership, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if membership.Project == nil {
		return nil, pkgErrors.ErrRecordNotFound
	}
	if err := s.access.requireProject(actor, membership.Project, auth.PermMembershipRevoke); err != nil {
		return nil, err
	}
	if membership.Role == constants.MemberRoleOwner {
		return nil, pkgErrors.New(pkgErrors.CodeForbidden, "The project owner cannot be revoked")
	}
	return s.transition(ctx, actor, membership, constants.MembershipStatusRevoked)
}

func (s *membershipService) transition(ctx context.Context, actor *model.User, membership *model.ProjectUserMembership, to int8) (*dto.MembershipResponse, error) {
	updated, err := s.machine.ChangeStatus(ctx, membership.ID, to,
		workflow.WithOperator[*model.ProjectUserMembership](operatorName(actor)),
		workflow.WithDetail[*model.ProjectUserMembership]("project_code", membership.Project.Code),
	)
	if err != nil {
		return nil, err
	}
	updated.Project = membership.Project
	updated.User = membership.User
	return toMembershipResponse(updated), nil
}

// afterTransition 通知另一方
func (s *membershipService) afterTransition(m *model.ProjectUserMembership, _, to int8, options *workflow.TransitionOptions[*model.ProjectUserMembership]) {
	recipientID := m.UserID
	if !m.InitiatedByUser && to != constants.MembershipStatusRevoked {
		if project, err := s.projectRepo.FindByID(m.ProjectID); err == nil {
			recipientID = project.TechLeadID
		}
	}
	recipient, err := s.userRepo.FindByID(recipientID)
	if err != nil || recipient.Email == "" {
		return
	}
	code, _ := options.Detail["project_code"].(string)
	msg := notification.MembershipDecidedMessage(recipient.Email, code, constants.MembershipStatusToString(to))
	if err := s.notifier.Send(context.Background(), msg); err != nil {
		s.logger.Warn("成员关系通知投递失败", zap.Int64("membership_id", m.ID), zap.Error(err))
	}
}

func (s *membershipService) ListMine(actor *model.User, query *dto.PageQuery) ([]*dto.MembershipResponse, int64, error) {
	memberships, total, err := s.repo.List(repository.MembershipListParam{PageQuery: *query, UserID: &actor.ID})
	if err != nil {
		return nil, 0, err
	}
	return lo.Map(memberships, func(m *model.ProjectUserMembership, _ int) *dto.MembershipResponse {
		return toMembershipResponse(m)
	}), total, nil
}

func (s *membershipService) ListRequests(actor *model.User, query *dto.PageQuery) ([]*dto.MembershipResponse, int64, error) {
	memberships, total, err := s.repo.List(repository.MembershipListParam{
		PageQuery: *query,
		OwnerID:   &actor.ID,
		ExcludeMe: true,
	})
	if err != nil {
		return nil, 0, err
	}
	return lo.Map(memberships, func(m *model.ProjectUserMembership, _ int) *dto.MembershipResponse {
		return toMembershipResponse(m)
	}), total, nil
}

func displayName(user *model.User) string {
	if user.DisplayName != nil && *user.DisplayName != "" {
		return *user.DisplayName
	}
	return user.Username
}
