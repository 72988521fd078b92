package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hpc-portal/internal/adapter/notification"
	"hpc-portal/internal/adapter/storage"
	"hpc-portal/internal/core/workflow"
	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/auth"
	"hpc-portal/internal/pkg/config"
	"hpc-portal/internal/repository"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
	"hpc-portal/pkg/utils"
)

type ProjectService interface {
	Create(ctx context.Context, actor *model.User, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error)
	// CreateWithAllocation 项目与首个资源申请同一事务提交
	CreateWithAllocation(ctx context.Context, actor *model.User, req *dto.CreateProjectWithAllocationRequest) (*dto.ProjectWithAllocationResponse, error)
	GetByID(actor *model.User, id int64) (*dto.ProjectResponse, error)
	List(actor *model.User, query *dto.ProjectListQuery) ([]*dto.ProjectResponse, int64, error)
	AttachFunding(ctx context.Context, actor *model.User, id int64, req *dto.AttachFundingRequest) (*dto.ProjectResponse, error)
	Decide(ctx context.Context, actor *model.User, id int64, req *dto.DecisionRequest) (*dto.ProjectResponse, error)
	Delete(ctx context.Context, actor *model.User, id int64) error
}

type projectService struct {
	db              *gorm.DB
	cfg             config.ProjectConfig
	repo            repository.ProjectRepository
	allocationRepo  repository.AllocationRepository
	membershipRepo  repository.MembershipRepository
	grantRepo       repository.RoleGrantRepository
	fundingRepo     repository.FundingRepository
	approvalRepo    repository.ApprovalRepository
	institutionRepo repository.InstitutionRepository
	userRepo        repository.UserRepository
	approvals       ApprovalService
	allocations     AllocationService
	store           storage.DocumentStore
	notifier        notification.Notifier
	machine         *workflow.ProjectMachine
	access          accessChecker
	logger          *zap.Logger
}

// ProjectDeps 项目服务依赖
type ProjectDeps struct {
	DB              *gorm.DB
	Config          config.ProjectConfig
	Projects        repository.ProjectRepository
	Allocations     repository.AllocationRepository
	Memberships     repository.MembershipRepository
	Grants          repository.RoleGrantRepository
	Funding         repository.FundingRepository
	Approvals       repository.ApprovalRepository
	Institutions    repository.InstitutionRepository
	Users           repository.UserRepository
	ApprovalService ApprovalService
	AllocationSvc   AllocationService
	Store           storage.DocumentStore
	Notifier        notification.Notifier
	Logger          *zap.Logger
}

func NewProjectService(d ProjectDeps) ProjectService {
	s := &projectService{
		db:              d.DB,
		cfg:             d.Config,
		repo:            d.Projects,
		allocationRepo:  d.Allocations,
		membershipRepo:  d.Memberships,
		grantRepo:       d.Grants,
		fundingRepo:     d.Funding,
		approvalRepo:    d.Approvals,
		institutionRepo: d.Institutions,
		userRepo:        d.Users,
		approvals:       d.ApprovalService,
		allocations:     d.AllocationSvc,
		store:           d.Store,
		notifier:        d.Notifier,
		access:          accessChecker{grantRepo: d.Grants},
		logger:          d.Logger,
	}
	s.machine = workflow.NewProjectMachine(d.DB, d.Logger, s.afterDecision)
	return s
}

func (s *projectService) Create(ctx context.Context, actor *model.User, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error) {
	inst, err := s.actorInstitution(actor)
	if err != nil {
		return nil, err
	}

	var project *model.Project
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err = s.createTx(tx, actor, inst, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.requestSupervisorApproval(ctx, actor, project)
	return s.GetByID(actor, project.ID)
}

func (s *projectService) CreateWithAllocation(ctx context.Context, actor *model.User, req *dto.CreateProjectWithAllocationRequest) (*dto.ProjectWithAllocationResponse, error) {
	inst, err := s.actorInstitution(actor)
	if err != nil {
		return nil, err
	}
	if inst.SeparateAllocationRequests {
		return nil, pkgErrors.ErrBundledNotAllowed
	}

	// 先校验申请, 任何一部分无效都不落库
	allocation, err := buildAllocation(0, actor.ID, &req.Allocation)
	if err != nil {
		return nil, err
	}

	var project *model.Project
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err = s.createTx(tx, actor, inst, &req.Project)
		if err != nil {
			return err
		}
		allocation.ProjectID = project.ID
		return s.allocationRepo.WithTx(tx).Create(allocation)
	})
	if err != nil {
		return nil, err
	}

	s.requestSupervisorApproval(ctx, actor, project)
	s.allocations.NotifyCreated(ctx, allocation, project)

	resp, err := s.GetByID(actor, project.ID)
	if err != nil {
		return nil, err
	}
	allocation.Project = project
	return &dto.ProjectWithAllocationResponse{Project: resp, Allocation: toAllocationResponse(allocation)}, nil
}

// actorInstitution 只有隶属机构的用户可以创建项目
func (s *projectService) actorInstitution(actor *model.User) (*model.Institution, error) {
	if actor == nil {
		return nil, pkgErrors.ErrUnauthorized
	}
	if actor.Profile.IsExternal() {
		return nil, pkgErrors.ErrExternalUser
	}
	return s.institutionRepo.FindByID(*actor.Profile.InstitutionID)
}

// createTx 项目, 负责人成员关系, 角色授予, 编号与资助关联在同一事务内完成
func (s *projectService) createTx(tx *gorm.DB, actor *model.User, inst *model.Institution, req *dto.CreateProjectRequest) (*model.Project, error) {
	if err := validateProjectText(req); err != nil {
		return nil, err
	}
	sources, publications, err := s.resolveAttachments(tx, req.FundingSourceIDs, req.PublicationIDs)
	if err != nil {
		return nil, err
	}

	projects := s.repo.WithTx(tx)
	project := &model.Project{
		// 占位编号, 拿到自增ID后改写
		Code:               strings.ReplaceAll(uuid.NewString(), "-", ""),
		Title:              strings.TrimSpace(req.Title),
		Description:        strings.TrimSpace(req.Description),
		Department:         strings.TrimSpace(req.Department),
		SupervisorName:     strings.TrimSpace(req.SupervisorName),
		SupervisorPosition: strings.TrimSpace(req.SupervisorPosition),
		SupervisorEmail:    strings.TrimSpace(req.SupervisorEmail),
		Status:             constants.ProjectStatusAwaitingApproval,
		TechLeadID:         actor.ID,
		InstitutionID:      inst.ID,
	}
	if err := projects.Create(project); err != nil {
		return nil, err
	}

	project.Code = projectCode(s.cfg.CodePrefix, project.ID)
	if err := projects.UpdateCode(project.ID, project.Code); err != nil {
		return nil, err
	}

	owner := &model.ProjectUserMembership{
		ProjectID:       project.ID,
		UserID:          actor.ID,
		Role:            constants.MemberRoleOwner,
		InitiatedByUser: false,
		Status:          constants.MembershipStatusAuthorised,
	}
	if err := s.membershipRepo.WithTx(tx).Create(owner); err != nil {
		return nil, err
	}
	if err := s.grantRepo.WithTx(tx).Grant(actor.ID, constants.RoleProjectOwner, project.ID); err != nil {
		return nil, err
	}

	if len(sources) > 0 {
		if err := projects.ReplaceFundingSources(project, sources); err != nil {
			return nil, err
		}
	}
	if len(publications) > 0 {
		if err := projects.ReplacePublications(project, publications); err != nil {
			return nil, err
		}
	}

	s.logger.Info("项目已创建",
		zap.Int64("id", project.ID),
		zap.String("code", project.Code),
		zap.String("tech_lead", actor.Username))
	return project, nil
}

// validateProjectText 去掉首尾空白后标题与描述仍须非空
func validateProjectText(req *dto.CreateProjectRequest) error {
	fields := make(map[string]string)
	if strings.TrimSpace(req.Title) == "" {
		fields["title"] = utils.RequiredMessage
	}
	if strings.TrimSpace(req.Description) == "" {
		fields["description"] = utils.RequiredMessage
	}
	if len(fields) > 0 {
		return pkgErrors.Validation(fields)
	}
	return nil
}

func projectCode(prefix string, id int64) string {
	if prefix == "" {
		prefix = "scw"
	}
	return fmt.Sprintf("%s%04d", prefix, id)
}

// resolveAttachments 所有ID都必须存在
func (s *projectService) resolveAttachments(tx *gorm.DB, sourceIDs, publicationIDs []int64) ([]*model.FundingSource, []*model.Publication, error) {
	funding := s.fundingRepo.WithTx(tx)
	fields := make(map[string]string)

	sourceIDs = lo.Uniq(sourceIDs)
	sources, err := funding.FindSourcesByIDs(sourceIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(sources) != len(sourceIDs) {
		fields["funding_source_ids"] = "Select a valid choice."
	}

	publicationIDs = lo.Uniq(publicationIDs)
	publications, err := funding.FindPublicationsByIDs(publicationIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(publications) != len(publicationIDs) {
		fields["publication_ids"] = "Select a valid choice."
	}

	if len(fields) > 0 {
		return nil, nil, pkgErrors.Validation(fields)
	}
	return sources, publications, nil
}

func (s *projectService) requestSupervisorApproval(ctx context.Context, actor *model.User, project *model.Project) {
	if project.SupervisorEmail == "" {
		return
	}
	link, err := s.approvals.SupervisorLink(project)
	if err != nil {
		s.logger.Error("生成导师审批链接失败", zap.Int64("project_id", project.ID), zap.Error(err))
		return
	}
	msg := notification.SupervisorApprovalMessage(project.SupervisorEmail, project.SupervisorName, project.Code, project.Title, displayName(actor), link)
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("导师审批通知投递失败", zap.Int64("project_id", project.ID), zap.Error(err))
	}
}

func (s *projectService) GetByID(actor *model.User, id int64) (*dto.ProjectResponse, error) {
	project, err := s.repo.FindByID(id,
		repository.WithPreload("TechLead"),
		repository.WithPreload("Institution"),
		repository.WithPreload("FundingSources.FundingBody"),
		repository.WithPreload("Publications"),
		repository.WithPreload("Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }),
	)
	if err != nil {
		return nil, err
	}
	if err := s.canView(actor, project); err != nil {
		return nil, err
	}
	return toProjectResponse(project), nil
}

// canView 审批人/负责人/已授权成员可见
func (s *projectService) canView(actor *model.User, project *model.Project) error {
	if actor == nil {
		return pkgErrors.ErrUnauthorized
	}
	roles, err := s.access.projectRoles(actor, project)
	if err != nil {
		return err
	}
	if auth.Allow(roles, auth.PermProjectViewAll) || auth.Allow(roles, auth.PermProjectView) {
		return nil
	}
	m, err := s.membershipRepo.FindByProjectAndUser(project.ID, actor.ID)
	if err == nil && m.Status == constants.MembershipStatusAuthorised {
		return nil
	}
	if err != nil && err != pkgErrors.ErrRecordNotFound {
		return err
	}
	return pkgErrors.ErrForbidden
}

func (s *projectService) List(actor *model.User, query *dto.ProjectListQuery) ([]*dto.ProjectResponse, int64, error) {
	param := repository.ProjectListParam{PageQuery: query.PageQuery}
	if query.Mine || !auth.Allow(actor.SystemRoles, auth.PermProjectViewAll) {
		param.TechLeadID = &actor.ID
	}

	projects, total, err := s.repo.List(param)
	if err != nil {
		return nil, 0, err
	}
	return lo.Map(projects, func(p *model.Project, _ int) *dto.ProjectResponse {
		return toProjectResponse(p)
	}), total, nil
}

func (s *projectService) AttachFunding(ctx context.Context, actor *model.User, id int64, req *dto.AttachFundingRequest) (*dto.ProjectResponse, error) {
	project, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.access.requireProject(actor, project, auth.PermFundingAttach); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sources, publications, err := s.resolveAttachments(tx, req.FundingSourceIDs, req.PublicationIDs)
		if err != nil {
			return err
		}
		projects := s.repo.WithTx(tx)
		if req.FundingSourceIDs != nil {
			if err := projects.ReplaceFundingSources(project, sources); err != nil {
				return err
			}
		}
		if req.PublicationIDs != nil {
			if err := projects.ReplacePublications(project, publications); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(actor, id)
}

func (s *projectService) Decide(ctx context.Context, actor *model.User, id int64, req *dto.DecisionRequest) (*dto.ProjectResponse, error) {
	if err := s.access.require(actor, auth.PermProjectDecide); err != nil {
		return nil, err
	}

	to := constants.ProjectStatusDeclined
	if req.Approved() {
		to = constants.ProjectStatusApproved
	}
	operator := operatorName(actor)
	reason := strings.TrimSpace(req.Reason)
	_, err := s.machine.ChangeStatus(ctx, id, to,
		workflow.WithOperator[*model.Project](operator),
		workflow.WithReason[*model.Project](reason),
		workflow.WithModelEffects(func(p *model.Project) {
			p.Record(operator, reason)
		}, model.DecisionColumns...),
	)
	if err != nil {
		return nil, err
	}
	return s.GetByID(actor, id)
}

func (s *projectService) afterDecision(p *model.Project, _, to int8, options *workflow.TransitionOptions[*model.Project]) {
	lead, err := s.userRepo.FindByID(p.TechLeadID)
	if err != nil || lead.Email == "" {
		s.logger.Warn("项目审批结果无法通知负责人", zap.Int64("project_id", p.ID), zap.Error(err))
		return
	}
	msg := notification.ProjectDecidedMessage(lead.Email, p.Code, constants.ProjectStatusToString(to), options.Reason)
	if err := s.notifier.Send(context.Background(), msg); err != nil {
		s.logger.Warn("项目审批结果通知投递失败", zap.Int64("project_id", p.ID), zap.Error(err))
	}
}

// Delete 级联删除成员关系, 资源申请, 资助关联与角色授予; 负责人没有剩余授予时失去 project_owner
func (s *projectService) Delete(ctx context.Context, actor *model.User, id int64) error {
	project, err := s.repo.FindByID(id)
	if err != nil {
		return err
	}
	if err := s.access.requireProject(actor, project, auth.PermProjectDelete); err != nil {
		return err
	}

	operator := operatorName(actor)
	var removed []*model.SystemAllocationRequest
	var revoked []int64

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		projects := s.repo.WithTx(tx)
		grants := s.grantRepo.WithTx(tx)
		history := s.approvalRepo.WithTx(tx)

		if err := s.membershipRepo.WithTx(tx).DeleteByProject(project.ID); err != nil {
			return err
		}
		if removed, err = s.allocationRepo.WithTx(tx).DeleteByProject(project.ID); err != nil {
			return err
		}
		if err := projects.ClearAssociations(project); err != nil {
			return err
		}

		granted, err := grants.ListByProject(project.ID)
		if err != nil {
			return err
		}
		if err := grants.DeleteByProject(project.ID); err != nil {
			return err
		}

		owners := lo.Uniq(lo.FilterMap(granted, func(g *model.RoleGrant, _ int) (int64, bool) {
			return g.UserID, g.Role == constants.RoleProjectOwner
		}))
		for _, userID := range owners {
			remaining, err := grants.Count(userID, constants.RoleProjectOwner)
			if err != nil {
				return err
			}
			if remaining > 0 {
				continue
			}
			revoked = append(revoked, userID)
			if err := history.RecordHistory(&model.StatusHistory{
				ResourceType: constants.ResourceUser,
				ResourceID:   userID,
				Event:        constants.EventRoleRevoked,
				Operator:     operator,
				Reason:       fmt.Sprintf("project %s deleted", project.Code),
				Detail:       map[string]interface{}{"role": constants.RoleProjectOwner, "project_id": project.ID},
			}); err != nil {
				return err
			}
		}

		if err := projects.Delete(project.ID); err != nil {
			return err
		}
		return history.RecordHistory(&model.StatusHistory{
			ResourceType: constants.ResourceProject,
			ResourceID:   project.ID,
			Event:        constants.EventProjectDeleted,
			FromStatus:   project.Status,
			ToStatus:     project.Status,
			Operator:     operator,
		})
	})
	if err != nil {
		return err
	}

	// 事务提交后再删附件
	for _, a := range removed {
		if a.DocumentPath == nil {
			continue
		}
		if err := s.store.Delete(*a.DocumentPath); err != nil {
			s.logger.Warn("删除附件失败", zap.String("path", *a.DocumentPath), zap.Error(err))
		}
	}

	s.logger.Info("项目已删除",
		zap.Int64("id", project.ID),
		zap.String("code", project.Code),
		zap.Int("allocations", len(removed)),
		zap.Int64s("role_revoked", revoked),
		zap.String("operator", operator))
	return nil
}
