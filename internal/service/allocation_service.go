package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"hpc-portal/internal/adapter/notification"
	"hpc-portal/internal/adapter/storage"
	"hpc-portal/internal/core/workflow"
	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/auth"
	"hpc-portal/internal/repository"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
	"hpc-portal/pkg/utils"
)

// DocumentUpload 申请附带的支撑文档
type DocumentUpload struct {
	Filename string
	Reader   io.Reader
}

type AllocationService interface {
	Create(ctx context.Context, actor *model.User, projectID int64, req *dto.CreateAllocationRequest, doc *DocumentUpload) (*dto.AllocationResponse, error)
	GetByID(actor *model.User, id int64) (*dto.AllocationResponse, error)
	List(actor *model.User, query *dto.AllocationListQuery) ([]*dto.AllocationResponse, int64, error)
	// Decide pending → approved | rejected, 决定后不可更改
	Decide(ctx context.Context, actor *model.User, id int64, req *dto.DecisionRequest) (*dto.AllocationResponse, error)
	// NotifyCreated 通知审批人有新申请, 投递失败只记日志
	NotifyCreated(ctx context.Context, a *model.SystemAllocationRequest, project *model.Project)
	// SendPendingDigest 汇总超过 olderThan 仍未处理的申请发给审批人
	SendPendingDigest(ctx context.Context, olderThan time.Duration) (int, error)
}

type allocationService struct {
	db          *gorm.DB
	repo        repository.AllocationRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	store       storage.DocumentStore
	notifier    notification.Notifier
	reviewers   []string
	machine     *workflow.AllocationMachine
	access      accessChecker
	logger      *zap.Logger
}

func NewAllocationService(
	db *gorm.DB,
	repo repository.AllocationRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	grantRepo repository.RoleGrantRepository,
	store storage.DocumentStore,
	notifier notification.Notifier,
	reviewers []string,
	logger *zap.Logger,
) AllocationService {
	s := &allocationService{
		db:          db,
		repo:        repo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		store:       store,
		notifier:    notifier,
		reviewers:   reviewers,
		access:      accessChecker{grantRepo: grantRepo},
		logger:      logger,
	}
	s.machine = workflow.NewAllocationMachine(db, logger, s.afterDecision)
	return s
}

func (s *allocationService) Create(ctx context.Context, actor *model.User, projectID int64, req *dto.CreateAllocationRequest, doc *DocumentUpload) (*dto.AllocationResponse, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.access.requireProject(actor, project, auth.PermAllocationCreate); err != nil {
		return nil, err
	}
	if project.Status == constants.ProjectStatusDeclined {
		return nil, pkgErrors.ErrProjectDeclined
	}

	allocation, err := buildAllocation(project.ID, actor.ID, req)
	if err != nil {
		return nil, err
	}

	// 先落盘, 事务失败再清理
	if doc != nil && doc.Reader != nil {
		stored, err := s.store.Save(project.ID, doc.Filename, doc.Reader)
		if err != nil {
			return nil, documentError(err)
		}
		allocation.DocumentPath = &stored.Path
		allocation.DocumentDigest = &stored.Digest
	}

	if err := s.repo.WithTx(s.db.WithContext(ctx)).Create(allocation); err != nil {
		if allocation.DocumentPath != nil {
			_ = s.store.Delete(*allocation.DocumentPath)
		}
		return nil, err
	}
	allocation.Project = project

	s.logger.Info("资源申请已提交",
		zap.Int64("id", allocation.ID),
		zap.String("project", project.Code),
		zap.String("operator", operatorName(actor)))
	s.NotifyCreated(ctx, allocation, project)
	return toAllocationResponse(allocation), nil
}

func (s *allocationService) GetByID(actor *model.User, id int64) (*dto.AllocationResponse, error) {
	allocation, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !auth.Allow(actor.SystemRoles, auth.PermAllocationView) {
		if allocation.Project == nil {
			return nil, pkgErrors.ErrRecordNotFound
		}
		if err := s.access.requireProject(actor, allocation.Project, auth.PermProjectView); err != nil {
			return nil, err
		}
	}
	return toAllocationResponse(allocation), nil
}

func (s *allocationService) List(actor *model.User, query *dto.AllocationListQuery) ([]*dto.AllocationResponse, int64, error) {
	param := repository.AllocationListParam{PageQuery: query.PageQuery, ProjectID: query.ProjectID}
	// 审批人可见全部, 其他人仅限自己负责的项目
	if !auth.Allow(actor.SystemRoles, auth.PermAllocationView) {
		ids, err := s.projectRepo.ListIDsByTechLead(actor.ID)
		if err != nil {
			return nil, 0, err
		}
		param.ProjectIDs = ids
	}

	allocations, total, err := s.repo.List(param)
	if err != nil {
		return nil, 0, err
	}
	return lo.Map(allocations, func(a *model.SystemAllocationRequest, _ int) *dto.AllocationResponse {
		return toAllocationResponse(a)
	}), total, nil
}

func (s *allocationService) Decide(ctx context.Context, actor *model.User, id int64, req *dto.DecisionRequest) (*dto.AllocationResponse, error) {
	if err := s.access.require(actor, auth.PermAllocationDecide); err != nil {
		return nil, err
	}

	to := constants.AllocationStatusRejected
	if req.Approved() {
		to = constants.AllocationStatusApproved
	}

	operator := operatorName(actor)
	reason := strings.TrimSpace(req.Reason)
	allocation, err := s.machine.ChangeStatus(ctx, id, to,
		workflow.WithOperator[*model.SystemAllocationRequest](operator),
		workflow.WithReason[*model.SystemAllocationRequest](reason),
		workflow.WithModelEffects(func(a *model.SystemAllocationRequest) {
			a.Record(operator, reason)
		}, model.DecisionColumns...),
	)
	if err != nil {
		return nil, err
	}
	return toAllocationResponse(allocation), nil
}

// afterDecision 事务提交后通知申请人
func (s *allocationService) afterDecision(a *model.SystemAllocationRequest, _, to int8, options *workflow.TransitionOptions[*model.SystemAllocationRequest]) {
	requester, err := s.userRepo.FindByID(a.RequestedBy)
	if err != nil || requester.Email == "" {
		s.logger.Warn("资源申请结果无法通知申请人", zap.Int64("id", a.ID), zap.Error(err))
		return
	}
	code := ""
	if project, err := s.projectRepo.FindByID(a.ProjectID); err == nil {
		code = project.Code
	}
	msg := notification.AllocationDecidedMessage(requester.Email, a.ID, code, constants.AllocationStatusToString(to), options.Reason)
	if err := s.notifier.Send(context.Background(), msg); err != nil {
		s.logger.Warn("资源申请结果通知投递失败", zap.Int64("id", a.ID), zap.Error(err))
	}
}

func (s *allocationService) NotifyCreated(ctx context.Context, a *model.SystemAllocationRequest, project *model.Project) {
	recipients, err := s.reviewerEmails()
	if err != nil {
		s.logger.Warn("查询审批人失败", zap.Error(err))
	}
	if len(recipients) == 0 {
		return
	}
	msg := notification.AllocationCreatedMessage(recipients, a.ID, project.Code, project.Title)
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("资源申请通知投递失败", zap.Int64("id", a.ID), zap.Error(err))
	}
}

// reviewerEmails 配置的审批邮箱加上持有审批角色的用户
func (s *allocationService) reviewerEmails() ([]string, error) {
	emails := append([]string{}, s.reviewers...)
	users, err := s.userRepo.ListBySystemRole(constants.RoleAllocationReviewer)
	if err != nil {
		return lo.Uniq(emails), err
	}
	for _, u := range users {
		if u.Email != "" && u.Status == constants.StatusEnabled {
			emails = append(emails, u.Email)
		}
	}
	return lo.Uniq(lo.Compact(emails)), nil
}

func (s *allocationService) SendPendingDigest(ctx context.Context, olderThan time.Duration) (int, error) {
	pending, err := s.repo.ListPendingBefore(time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}
	recipients, err := s.reviewerEmails()
	if err != nil {
		return 0, err
	}
	if len(recipients) == 0 {
		s.logger.Warn("没有配置审批人, 跳过待审批汇总", zap.Int("pending", len(pending)))
		return len(pending), nil
	}

	lines := lo.Map(pending, func(a *model.SystemAllocationRequest, _ int) string {
		code := ""
		if a.Project != nil {
			code = a.Project.Code
		}
		return fmt.Sprintf("#%d %s submitted %s", a.ID, code, a.CreatedAt.Format(constants.DateLayout))
	})
	if err := s.notifier.Send(ctx, notification.PendingDigestMessage(recipients, lines)); err != nil {
		return len(pending), err
	}
	return len(pending), nil
}

// buildAllocation 校验日期并构造申请, 开始日期须早于结束日期
func buildAllocation(projectID, requestedBy int64, req *dto.CreateAllocationRequest) (*model.SystemAllocationRequest, error) {
	fields := make(map[string]string)
	start, err := time.Parse(constants.DateLayout, strings.TrimSpace(req.StartDate))
	if err != nil {
		fields["start_date"] = requiredOrInvalid(req.StartDate, "Enter a valid date.")
	}
	end, err := time.Parse(constants.DateLayout, strings.TrimSpace(req.EndDate))
	if err != nil {
		fields["end_date"] = requiredOrInvalid(req.EndDate, "Enter a valid date.")
	}
	if len(fields) == 0 && !start.Before(end) {
		fields["end_date"] = "End date must be after the start date."
	}
	if len(fields) > 0 {
		return nil, pkgErrors.Validation(fields)
	}

	return &model.SystemAllocationRequest{
		ProjectID:                projectID,
		RequestedBy:              requestedBy,
		StartDate:                datatypes.Date(start),
		EndDate:                  datatypes.Date(end),
		AllocationCPUTime:        req.AllocationCPUTime,
		AllocationMemory:         req.AllocationMemory,
		AllocationStorageHome:    req.AllocationStorageHome,
		AllocationStorageScratch: req.AllocationStorageScratch,
		RequirementsSoftware:     req.RequirementsSoftware,
		RequirementsTraining:     req.RequirementsTraining,
		RequirementsOnboarding:   req.RequirementsOnboarding,
		Status:                   constants.AllocationStatusPending,
	}, nil
}

func requiredOrInvalid(value, invalid string) string {
	if strings.TrimSpace(value) == "" {
		return utils.RequiredMessage
	}
	return invalid
}

func documentError(err error) error {
	switch err {
	case storage.ErrFileTooLarge:
		return pkgErrors.Validation(map[string]string{"document": "The uploaded file is too large."})
	case storage.ErrEmptyFilename:
		return pkgErrors.Validation(map[string]string{"document": "The submitted file is empty."})
	default:
		return pkgErrors.Wrap(pkgErrors.CodeInternalError, "保存附件失败", err)
	}
}
