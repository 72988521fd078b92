package dto

// CreateAllocationRequest 资源申请, 支持 JSON 与 multipart 表单
type CreateAllocationRequest struct {
	StartDate                string `json:"start_date" form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate                  string `json:"end_date" form:"end_date" binding:"required,datetime=2006-01-02"`
	AllocationCPUTime        uint   `json:"allocation_cputime" form:"allocation_cputime"`
	AllocationMemory         uint   `json:"allocation_memory" form:"allocation_memory"`
	AllocationStorageHome    uint   `json:"allocation_storage_home" form:"allocation_storage_home"`
	AllocationStorageScratch uint   `json:"allocation_storage_scratch" form:"allocation_storage_scratch"`
	RequirementsSoftware     string `json:"requirements_software" form:"requirements_software" binding:"omitempty,max=10000"`
	RequirementsTraining     string `json:"requirements_training" form:"requirements_training" binding:"omitempty,max=10000"`
	RequirementsOnboarding   string `json:"requirements_onboarding" form:"requirements_onboarding" binding:"omitempty,max=10000"`
}

// AllocationListQuery 资源申请列表
type AllocationListQuery struct {
	PageQuery
	ProjectID int64 `form:"project_id"`
}

// AllocationResponse 资源申请响应
type AllocationResponse struct {
	ID                       int64   `json:"id"`
	ProjectID                int64   `json:"project_id"`
	ProjectCode              string  `json:"project_code,omitempty"`
	StartDate                string  `json:"start_date"`
	EndDate                  string  `json:"end_date"`
	AllocationCPUTime        uint    `json:"allocation_cputime"`
	AllocationMemory         uint    `json:"allocation_memory"`
	AllocationStorageHome    uint    `json:"allocation_storage_home"`
	AllocationStorageScratch uint    `json:"allocation_storage_scratch"`
	RequirementsSoftware     string  `json:"requirements_software"`
	RequirementsTraining     string  `json:"requirements_training"`
	RequirementsOnboarding   string  `json:"requirements_onboarding"`
	Document                 *string `json:"document,omitempty"`
	DocumentDigest           *string `json:"document_digest,omitempty"`
	Status                   int8    `json:"status"`
	StatusText               string  `json:"status_text"`
	DecisionReason           *string `json:"decision_reason,omitempty"`
	DecidedBy                *string `json:"decided_by,omitempty"`
	CreatedAt                string  `json:"created_at"`
}
