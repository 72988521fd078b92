package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/config"
	"hpc-portal/internal/pkg/jwt"
	"hpc-portal/internal/repository"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
)

// ApprovalService 邮件审批链接的签发与消费, 不依赖登录会话
type ApprovalService interface {
	SupervisorLink(project *model.Project) (string, error)
	FundingLink(source *model.FundingSource) (string, error)
	ApproveSupervisor(ctx context.Context, token string) (*dto.ApprovalResult, error)
	ApproveFunding(ctx context.Context, token string) (*dto.ApprovalResult, error)
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

type approvalService struct {
	db           *gorm.DB
	cfg          config.ApprovalConfig
	signer       *jwt.Signer
	approvalRepo repository.ApprovalRepository
	projectRepo  repository.ProjectRepository
	fundingRepo  repository.FundingRepository
	logger       *zap.Logger
}

func NewApprovalService(
	db *gorm.DB,
	cfg config.ApprovalConfig,
	signer *jwt.Signer,
	approvalRepo repository.ApprovalRepository,
	projectRepo repository.ProjectRepository,
	fundingRepo repository.FundingRepository,
	logger *zap.Logger,
) ApprovalService {
	return &approvalService{
		db:           db,
		cfg:          cfg,
		signer:       signer,
		approvalRepo: approvalRepo,
		projectRepo:  projectRepo,
		fundingRepo:  fundingRepo,
		logger:       logger,
	}
}

func (s *approvalService) ttl() time.Duration {
	return time.Duration(s.cfg.TokenTTL) * time.Second
}

func (s *approvalService) link(path, token string) string {
	return strings.TrimRight(s.cfg.PublicURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func (s *approvalService) SupervisorLink(project *model.Project) (string, error) {
	token, _, err := s.signer.GenerateApprovalToken(constants.TokenPurposeSupervisorApproval, project.ID, project.SupervisorEmail, s.ttl())
	if err != nil {
		return "", pkgErrors.Wrap(pkgErrors.CodeInternalError, "生成审批链接失败", err)
	}
	return s.link("/approvals/supervisor", token), nil
}

func (s *approvalService) FundingLink(source *model.FundingSource) (string, error) {
	token, _, err := s.signer.GenerateApprovalToken(constants.TokenPurposeFundingApproval, source.ID, source.PIEmail, s.ttl())
	if err != nil {
		return "", pkgErrors.Wrap(pkgErrors.CodeInternalError, "生成审批链接失败", err)
	}
	return s.link("/approvals/funding", token), nil
}

func (s *approvalService) ApproveSupervisor(ctx context.Context, token string) (*dto.ApprovalResult, error) {
	claims, err := s.signer.ParseApprovalToken(token, constants.TokenPurposeSupervisorApproval)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		approvals := s.approvalRepo.WithTx(tx)
		projects := s.projectRepo.WithTx(tx)

		if err := approvals.ConsumeToken(usedToken(claims)); err != nil {
			return err
		}
		project, err := projects.FindByID(claims.SubjectID)
		if err != nil {
			return err
		}
		// 导师邮箱已变更的旧链接作废
		if !strings.EqualFold(project.SupervisorEmail, claims.Email) {
			return pkgErrors.ErrInvalidToken
		}
		ok, err := projects.ApproveBySupervisor(project.ID)
		if err != nil {
			return err
		}
		if !ok {
			return pkgErrors.ErrStateConflict
		}
		return approvals.RecordHistory(&model.StatusHistory{
			ResourceType: constants.ResourceProject,
			ResourceID:   project.ID,
			Event:        constants.EventSupervisorApprove,
			FromStatus:   project.Status,
			ToStatus:     project.Status,
			Operator:     claims.Email,
		})
	})
	if err != nil {
		s.logger.Warn("导师审批失败", zap.Int64("project_id", claims.SubjectID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("导师审批通过", zap.Int64("project_id", claims.SubjectID), zap.String("supervisor", claims.Email))
	return &dto.ApprovalResult{ResourceType: constants.ResourceProject, ResourceID: claims.SubjectID, Approved: true}, nil
}

func (s *approvalService) ApproveFunding(ctx context.Context, token string) (*dto.ApprovalResult, error) {
	claims, err := s.signer.ParseApprovalToken(token, constants.TokenPurposeFundingApproval)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		approvals := s.approvalRepo.WithTx(tx)
		if err := approvals.ConsumeToken(usedToken(claims)); err != nil {
			return err
		}
		source, err := s.fundingRepo.WithTx(tx).FindSourceByID(claims.SubjectID)
		if err != nil {
			return err
		}
		if !strings.EqualFold(source.PIEmail, claims.Email) {
			return pkgErrors.ErrInvalidToken
		}
		return approveSourceTx(tx, s.fundingRepo, s.approvalRepo, source.ID, claims.Email)
	})
	if err != nil {
		s.logger.Warn("资助来源审批失败", zap.Int64("funding_source_id", claims.SubjectID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("资助来源审批通过", zap.Int64("funding_source_id", claims.SubjectID), zap.String("pi", claims.Email))
	return &dto.ApprovalResult{ResourceType: constants.ResourceFundingSource, ResourceID: claims.SubjectID, Approved: true}, nil
}

func (s *approvalService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.approvalRepo.WithTx(s.db.WithContext(ctx)).PurgeExpiredTokens(time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("已清理过期审批令牌", zap.Int64("count", n))
	}
	return n, nil
}

// approveSourceTx 资助来源 false → true 条件更新并记录审计
func approveSourceTx(tx *gorm.DB, fundingRepo repository.FundingRepository, approvalRepo repository.ApprovalRepository, id int64, operator string) error {
	ok, err := fundingRepo.WithTx(tx).ApproveSource(id)
	if err != nil {
		return err
	}
	if !ok {
		return pkgErrors.ErrStateConflict
	}
	return approvalRepo.WithTx(tx).RecordHistory(&model.StatusHistory{
		ResourceType: constants.ResourceFundingSource,
		ResourceID:   id,
		Event:        constants.EventFundingApprove,
		FromStatus:   0,
		ToStatus:     1,
		Operator:     operator,
	})
}

func usedToken(claims *jwt.ApprovalClaims) *model.UsedApprovalToken {
	token := &model.UsedApprovalToken{
		TokenID:   claims.ID,
		Purpose:   claims.Purpose,
		SubjectID: claims.SubjectID,
	}
	if claims.ExpiresAt != nil {
		token.ExpiresAt = claims.ExpiresAt.Time
	}
	return token
}
