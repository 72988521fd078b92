package service

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hpc-portal/internal/adapter/notification"
	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/auth"
	"hpc-portal/internal/repository"
	pkgErrors "hpc-portal/pkg/errors"
)

type FundingService interface {
	CreateBody(actor *model.User, req *dto.CreateFundingBodyRequest) (*dto.FundingBodyResponse, error)
	ListBodies() ([]*dto.FundingBodyResponse, error)

	CreateSource(ctx context.Context, actor *model.User, req *dto.CreateFundingSourceRequest) (*dto.FundingSourceResponse, error)
	GetSource(actor *model.User, id int64) (*dto.FundingSourceResponse, error)
	ListSources(actor *model.User, query *dto.FundingSourceListQuery) ([]*dto.FundingSourceResponse, int64, error)
	// Approve 管理员或资助审批人确认
	Approve(ctx context.Context, actor *model.User, id int64) (*dto.FundingSourceResponse, error)
}

type fundingService struct {
	db           *gorm.DB
	repo         repository.FundingRepository
	approvalRepo repository.ApprovalRepository
	approvals    ApprovalService
	notifier     notification.Notifier
	access       accessChecker
	logger       *zap.Logger
}

func NewFundingService(
	db *gorm.DB,
	repo repository.FundingRepository,
	approvalRepo repository.ApprovalRepository,
	grantRepo repository.RoleGrantRepository,
	approvals ApprovalService,
	notifier notification.Notifier,
	logger *zap.Logger,
) FundingService {
	return &fundingService{
		db:           db,
		repo:         repo,
		approvalRepo: approvalRepo,
		approvals:    approvals,
		notifier:     notifier,
		access:       accessChecker{grantRepo: grantRepo},
		logger:       logger,
	}
}

func (s *fundingService) CreateBody(actor *model.User, req *dto.CreateFundingBodyRequest) (*dto.FundingBodyResponse, error) {
	if err := s.access.require(actor, auth.PermInstitutionManage); err != nil {
		return nil, err
	}
	body := &model.FundingBody{Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := s.repo.CreateBody(body); err != nil {
		return nil, err
	}
	return toFundingBodyResponse(body), nil
}

func (s *fundingService) ListBodies() ([]*dto.FundingBodyResponse, error) {
	bodies, err := s.repo.ListBodies()
	if err != nil {
		return nil, err
	}
	return lo.Map(bodies, func(b *model.FundingBody, _ int) *dto.FundingBodyResponse {
		return toFundingBodyResponse(b)
	}), nil
}

func (s *fundingService) CreateSource(ctx context.Context, actor *model.User, req *dto.CreateFundingSourceRequest) (*dto.FundingSourceResponse, error) {
	body, err := s.repo.FindBodyByID(req.FundingBodyID)
	if err != nil {
		if err == pkgErrors.ErrRecordNotFound {
			return nil, pkgErrors.Validation(map[string]string{"funding_body_id": "Select a valid choice."})
		}
		return nil, err
	}

	source := &model.FundingSource{
		Title:         strings.TrimSpace(req.Title),
		Identifier:    strings.TrimSpace(req.Identifier),
		PIEmail:       strings.TrimSpace(req.PIEmail),
		Amount:        req.Amount,
		FundingBodyID: body.ID,
		CreatedByID:   actor.ID,
	}

	// 机构不要求审批时创建即生效, 外部用户没有机构策略同样视为无需审批
	var inst *model.Institution
	if actor.Profile != nil {
		inst = actor.Profile.Institution
		source.InstitutionID = actor.Profile.InstitutionID
	}
	if inst == nil || !inst.NeedsFundingApproval {
		now := time.Now()
		source.Approved = true
		source.ApprovedAt = &now
	}

	if err := s.repo.WithTx(s.db.WithContext(ctx)).CreateSource(source); err != nil {
		if isDuplicate(err) {
			return nil, pkgErrors.Validation(map[string]string{"identifier": "Funding source with this identifier already exists."})
		}
		return nil, err
	}
	source.FundingBody = body

	if !source.Approved {
		s.requestPIApproval(ctx, source)
	}
	s.logger.Info("资助来源已创建",
		zap.Int64("id", source.ID),
		zap.String("identifier", source.Identifier),
		zap.Bool("approved", source.Approved))
	return toFundingSourceResponse(source), nil
}

func (s *fundingService) requestPIApproval(ctx context.Context, source *model.FundingSource) {
	link, err := s.approvals.FundingLink(source)
	if err != nil {
		s.logger.Error("生成资助审批链接失败", zap.Int64("id", source.ID), zap.Error(err))
		return
	}
	msg := notification.FundingApprovalMessage(source.PIEmail, source.Identifier, source.Title, link)
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("资助审批通知投递失败", zap.Int64("id", source.ID), zap.Error(err))
	}
}

func (s *fundingService) GetSource(actor *model.User, id int64) (*dto.FundingSourceResponse, error) {
	source, err := s.repo.FindSourceByID(id)
	if err != nil {
		return nil, err
	}
	if source.CreatedByID != actor.ID && !auth.Allow(actor.SystemRoles, auth.PermFundingApprove) {
		return nil, pkgErrors.ErrForbidden
	}
	return toFundingSourceResponse(source), nil
}

func (s *fundingService) ListSources(actor *model.User, query *dto.FundingSourceListQuery) ([]*dto.FundingSourceResponse, int64, error) {
	// 审批人可见全部, 其他人只看自己登记的
	var createdBy *int64
	if !auth.Allow(actor.SystemRoles, auth.PermFundingApprove) {
		createdBy = &actor.ID
	}
	sources, total, err := s.repo.ListSources(*query, createdBy)
	if err != nil {
		return nil, 0, err
	}
	return lo.Map(sources, func(f *model.FundingSource, _ int) *dto.FundingSourceResponse {
		return toFundingSourceResponse(f)
	}), total, nil
}

func (s *fundingService) Approve(ctx context.Context, actor *model.User, id int64) (*dto.FundingSourceResponse, error) {
	if err := s.access.require(actor, auth.PermFundingApprove); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).FindSourceByID(id); err != nil {
			return err
		}
		return approveSourceTx(tx, s.repo, s.approvalRepo, id, operatorName(actor))
	})
	if err != nil {
		return nil, err
	}

	source, err := s.repo.FindSourceByID(id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("资助来源已审批", zap.Int64("id", id), zap.String("operator", operatorName(actor)))
	return toFundingSourceResponse(source), nil
}
