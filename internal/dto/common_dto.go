package dto

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// PageQuery 列表通用参数, status 含义随资源而定
type PageQuery struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Keyword  string `form:"keyword"`
	Status   *int8  `form:"status" binding:"omitempty,oneof=0 1 2 3"`
}

func (p *PageQuery) GetPage() int {
	return max(p.Page, 1)
}

// GetPageSize 未传时取默认值, 上限 100
func (p *PageQuery) GetPageSize() int {
	if p.PageSize < 1 {
		return defaultPageSize
	}
	return min(p.PageSize, maxPageSize)
}

func (p *PageQuery) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

type IDParam struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// DecisionRequest 管理员审批, decline 与 reject 等价
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject decline"`
	Reason   string `json:"reason" binding:"omitempty,max=1000"`
}

// Approved 是否为通过
func (r *DecisionRequest) Approved() bool {
	return r.Decision == "approve"
}
