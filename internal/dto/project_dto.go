package dto

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Title              string  `json:"title" binding:"required,max=255"`
	Description        string  `json:"description" binding:"required"`
	Department         string  `json:"department" binding:"omitempty,max=255"`
	SupervisorName     string  `json:"supervisor_name" binding:"required,max=255"`
	SupervisorPosition string  `json:"supervisor_position" binding:"omitempty,max=255"`
	SupervisorEmail    string  `json:"supervisor_email" binding:"required,email,max=254"`
	FundingSourceIDs   []int64 `json:"funding_source_ids" binding:"omitempty,dive,min=1"`
	PublicationIDs     []int64 `json:"publication_ids" binding:"omitempty,dive,min=1"`
}

// CreateProjectWithAllocationRequest 项目与资源申请一并提交
type CreateProjectWithAllocationRequest struct {
	Project    CreateProjectRequest    `json:"project"`
	Allocation CreateAllocationRequest `json:"allocation"`
}

// ProjectListQuery 项目列表查询参数
type ProjectListQuery struct {
	PageQuery
	Mine bool `form:"mine"` // 仅返回我负责的项目
}

// ProjectResponse 项目响应
type ProjectResponse struct {
	ID                   int64                    `json:"id"`
	Code                 string                   `json:"code"`
	Title                string                   `json:"title"`
	Description          string                   `json:"description"`
	Department           string                   `json:"department"`
	SupervisorName       string                   `json:"supervisor_name"`
	SupervisorPosition   string                   `json:"supervisor_position"`
	SupervisorEmail      string                   `json:"supervisor_email"`
	ApprovedBySupervisor bool                     `json:"approved_by_supervisor"`
	Status               int8                     `json:"status"`
	StatusText           string                   `json:"status_text"`
	DecisionReason       *string                  `json:"decision_reason,omitempty"`
	DecidedBy            *string                  `json:"decided_by,omitempty"`
	TechLead             *UserBrief               `json:"tech_lead,omitempty"`
	InstitutionID        int64                    `json:"institution_id"`
	InstitutionName      string                   `json:"institution_name,omitempty"`
	FundingSources       []*FundingSourceResponse `json:"funding_sources,omitempty"`
	Publications         []*PublicationResponse   `json:"publications,omitempty"`
	Allocations          []*AllocationResponse    `json:"allocations,omitempty"`
	CreatedAt            string                   `json:"created_at"`
	UpdatedAt            string                   `json:"updated_at"`
}

// ProjectWithAllocationResponse 一并提交的结果
type ProjectWithAllocationResponse struct {
	Project    *ProjectResponse    `json:"project"`
	Allocation *AllocationResponse `json:"allocation"`
}
