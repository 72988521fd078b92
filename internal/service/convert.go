package service

import (
	"time"

	"github.com/samber/lo"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/pkg/constants"
)

func toUserBrief(user *model.User) *dto.UserBrief {
	if user == nil {
		return nil
	}
	return &dto.UserBrief{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: lo.FromPtr(user.DisplayName),
	}
}

func toInstitutionResponse(inst *model.Institution) *dto.InstitutionResponse {
	return &dto.InstitutionResponse{
		ID:                         inst.ID,
		Name:                       inst.Name,
		BaseDomain:                 inst.BaseDomain,
		IdentityProvider:           inst.IdentityProvider,
		LogoPath:                   inst.LogoPath,
		NeedsFundingApproval:       inst.NeedsFundingApproval,
		SeparateAllocationRequests: inst.SeparateAllocationRequests,
	}
}

func toFundingBodyResponse(body *model.FundingBody) *dto.FundingBodyResponse {
	return &dto.FundingBodyResponse{
		ID:          body.ID,
		Name:        body.Name,
		Description: body.Description,
	}
}

func toFundingSourceResponse(source *model.FundingSource) *dto.FundingSourceResponse {
	resp := &dto.FundingSourceResponse{
		ID:            source.ID,
		Title:         source.Title,
		Identifier:    source.Identifier,
		PIEmail:       source.PIEmail,
		Amount:        source.Amount,
		FundingBodyID: source.FundingBodyID,
		Approved:      source.Approved,
		CreatedAt:     source.CreatedAt.Format(time.RFC3339),
	}
	if source.FundingBody != nil {
		resp.FundingBodyName = source.FundingBody.Name
	}
	return resp
}

func toPublicationResponse(publication *model.Publication) *dto.PublicationResponse {
	return &dto.PublicationResponse{
		ID:        publication.ID,
		Title:     publication.Title,
		URL:       publication.URL,
		CreatedAt: publication.CreatedAt.Format(time.RFC3339),
	}
}

func toAllocationResponse(a *model.SystemAllocationRequest) *dto.AllocationResponse {
	resp := &dto.AllocationResponse{
		ID:                       a.ID,
		ProjectID:                a.ProjectID,
		StartDate:                time.Time(a.StartDate).Format(constants.DateLayout),
		EndDate:                  time.Time(a.EndDate).Format(constants.DateLayout),
		AllocationCPUTime:        a.AllocationCPUTime,
		AllocationMemory:         a.AllocationMemory,
		AllocationStorageHome:    a.AllocationStorageHome,
		AllocationStorageScratch: a.AllocationStorageScratch,
		RequirementsSoftware:     a.RequirementsSoftware,
		RequirementsTraining:     a.RequirementsTraining,
		RequirementsOnboarding:   a.RequirementsOnboarding,
		Document:                 a.DocumentPath,
		DocumentDigest:           a.DocumentDigest,
		Status:                   a.Status,
		StatusText:               constants.AllocationStatusToString(a.Status),
		DecisionReason:           a.DecisionReason,
		DecidedBy:                a.DecidedBy,
		CreatedAt:                a.CreatedAt.Format(time.RFC3339),
	}
	if a.Project != nil {
		resp.ProjectCode = a.Project.Code
	}
	return resp
}

func toProjectResponse(p *model.Project) *dto.ProjectResponse {
	resp := &dto.ProjectResponse{
		ID:                   p.ID,
		Code:                 p.Code,
		Title:                p.Title,
		Description:          p.Description,
		Department:           p.Department,
		SupervisorName:       p.SupervisorName,
		SupervisorPosition:   p.SupervisorPosition,
		SupervisorEmail:      p.SupervisorEmail,
		ApprovedBySupervisor: p.ApprovedBySupervisor,
		Status:               p.Status,
		StatusText:           constants.ProjectStatusToString(p.Status),
		DecisionReason:       p.DecisionReason,
		DecidedBy:            p.DecidedBy,
		TechLead:             toUserBrief(p.TechLead),
		InstitutionID:        p.InstitutionID,
		CreatedAt:            p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            p.UpdatedAt.Format(time.RFC3339),
	}
	if p.Institution != nil {
		resp.InstitutionName = p.Institution.Name
	}
	resp.FundingSources = lo.Map(p.FundingSources, func(f model.FundingSource, _ int) *dto.FundingSourceResponse {
		return toFundingSourceResponse(&f)
	})
	resp.Publications = lo.Map(p.Publications, func(pub model.Publication, _ int) *dto.PublicationResponse {
		return toPublicationResponse(&pub)
	})
	resp.Allocations = lo.Map(p.Allocations, func(a model.SystemAllocationRequest, _ int) *dto.AllocationResponse {
		r := toAllocationResponse(&a)
		r.ProjectCode = p.Code
		return r
	})
	return resp
}

func toMembershipResponse(m *model.ProjectUserMembership) *dto.MembershipResponse {
	resp := &dto.MembershipResponse{
		ID:              m.ID,
		ProjectID:       m.ProjectID,
		User:            toUserBrief(m.User),
		Role:            m.Role,
		RoleText:        lo.Ternary(m.Role == constants.MemberRoleOwner, "Owner", "Member"),
		InitiatedByUser: m.InitiatedByUser,
		Status:          m.Status,
		StatusText:      constants.MembershipStatusToString(m.Status),
		CreatedAt:       m.CreatedAt.Format(time.RFC3339),
	}
	if m.Project != nil {
		resp.ProjectCode = m.Project.Code
		resp.ProjectTitle = m.Project.Title
	}
	return resp
}

func toHistoryResponse(h *model.StatusHistory) *dto.StatusHistoryResponse {
	return &dto.StatusHistoryResponse{
		ID:           h.ID,
		ResourceType: h.ResourceType,
		ResourceID:   h.ResourceID,
		Event:        h.Event,
		FromStatus:   h.FromStatus,
		ToStatus:     h.ToStatus,
		Operator:     h.Operator,
		Reason:       h.Reason,
		Detail:       h.Detail,
		CreatedAt:    h.CreatedAt.Format(time.RFC3339),
	}
}
