package dto

// CreateFundingBodyRequest 创建资助机构
type CreateFundingBodyRequest struct {
	Name        string `json:"name" binding:"required,max=128"`
	Description string `json:"description"`
}

// FundingBodyResponse 资助机构响应
type FundingBodyResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateFundingSourceRequest 创建资助来源
type CreateFundingSourceRequest struct {
	Title         string `json:"title" binding:"required,max=128"`
	Identifier    string `json:"identifier" binding:"required,max=128"`
	PIEmail       string `json:"pi_email" binding:"required,email,max=254"`
	Amount        uint   `json:"amount"`
	FundingBodyID int64  `json:"funding_body_id" binding:"required,min=1"`
}

// FundingSourceResponse 资助来源响应
type FundingSourceResponse struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Identifier      string `json:"identifier"`
	PIEmail         string `json:"pi_email"`
	Amount          uint   `json:"amount"`
	FundingBodyID   int64  `json:"funding_body_id"`
	FundingBodyName string `json:"funding_body_name,omitempty"`
	Approved        bool   `json:"approved"`
	CreatedAt       string `json:"created_at"`
}

// FundingSourceListQuery 资助来源列表
type FundingSourceListQuery struct {
	PageQuery
	Approved *bool `form:"approved"`
}

// CreatePublicationRequest 创建成果
type CreatePublicationRequest struct {
	Title string `json:"title" binding:"required,max=256"`
	URL   string `json:"url" binding:"required,http_url,max=512"`
}

// PublicationResponse 成果响应
type PublicationResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}

// AttachFundingRequest 关联资助与成果
type AttachFundingRequest struct {
	FundingSourceIDs []int64 `json:"funding_source_ids" binding:"omitempty,dive,min=1"`
	PublicationIDs   []int64 `json:"publication_ids" binding:"omitempty,dive,min=1"`
}
