package dto

// CreateInstitutionRequest 创建机构
type CreateInstitutionRequest struct {
	Name                       string  `json:"name" yaml:"name" binding:"required,max=255"`
	BaseDomain                 string  `json:"base_domain" yaml:"base_domain" binding:"required,fqdn,max=255"`
	IdentityProvider           *string `json:"identity_provider" yaml:"identity_provider" binding:"omitempty,url,max=255"`
	LogoPath                   *string `json:"logo_path" yaml:"logo_path" binding:"omitempty,max=255"`
	NeedsFundingApproval       bool    `json:"needs_funding_approval" yaml:"needs_funding_approval"`
	SeparateAllocationRequests bool    `json:"separate_allocation_requests" yaml:"separate_allocation_requests"`
}

// UpdateInstitutionPolicyRequest 更新机构策略
type UpdateInstitutionPolicyRequest struct {
	NeedsFundingApproval       *bool `json:"needs_funding_approval"`
	SeparateAllocationRequests *bool `json:"separate_allocation_requests"`
}

// InstitutionResponse 机构响应
type InstitutionResponse struct {
	ID                         int64   `json:"id"`
	Name                       string  `json:"name"`
	BaseDomain                 string  `json:"base_domain"`
	IdentityProvider           *string `json:"identity_provider,omitempty"`
	LogoPath                   *string `json:"logo_path,omitempty"`
	NeedsFundingApproval       bool    `json:"needs_funding_approval"`
	SeparateAllocationRequests bool    `json:"separate_allocation_requests"`
}
