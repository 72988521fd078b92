package service

import (
	"github.com/samber/lo"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/auth"
	"hpc-portal/internal/repository"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
)

type HistoryService interface {
	List(actor *model.User, resourceType string, resourceID int64, query *dto.PageQuery) ([]*dto.StatusHistoryResponse, int64, error)
}

type historyService struct {
	repo repository.ApprovalRepository
}

func NewHistoryService(repo repository.ApprovalRepository) HistoryService {
	return &historyService{repo: repo}
}

var historyResources = []string{
	constants.ResourceProject,
	constants.ResourceAllocation,
	constants.ResourceMembership,
	constants.ResourceFundingSource,
	constants.ResourceUser,
}

func (s *historyService) List(actor *model.User, resourceType string, resourceID int64, query *dto.PageQuery) ([]*dto.StatusHistoryResponse, int64, error) {
	if !lo.Contains(historyResources, resourceType) {
		return nil, 0, pkgErrors.ErrNotFound
	}
	// 审计记录只对审批角色开放
	if !auth.Allow(actor.SystemRoles, auth.PermProjectViewAll) {
		return nil, 0, pkgErrors.ErrForbidden
	}
	histories, total, err := s.repo.ListHistory(resourceType, resourceID, *query)
	if err != nil {
		return nil, 0, err
	}
	return lo.Map(histories, func(h *model.StatusHistory, _ int) *dto.StatusHistoryResponse {
		return toHistoryResponse(h)
	}), total, nil
}
