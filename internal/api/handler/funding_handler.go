package handler

import (
	"github.com/gin-gonic/gin"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/service"
	"hpc-portal/pkg/utils"
)

// FundingHandler 资助机构, 资助来源与成果
type FundingHandler struct {
	fundingService     service.FundingService
	publicationService service.PublicationService
}

func NewFundingHandler(fundingService service.FundingService, publicationService service.PublicationService) *FundingHandler {
	return &FundingHandler{
		fundingService:     fundingService,
		publicationService: publicationService,
	}
}

// CreateBody 创建资助机构
// @Summary 创建资助机构
// @Tags Funding
// @Accept json
// @Produce json
// @Param request body dto.CreateFundingBodyRequest true "资助机构"
// @Success 200 {object} utils.Response{data=dto.FundingBodyResponse}
// @Router /api/v1/funding-bodies [post]
// @Security BearerAuth
func (h *FundingHandler) CreateBody(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateFundingBodyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	body, err := h.fundingService.CreateBody(user, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, body)
}

// ListBodies 资助机构列表
// @Summary 资助机构列表
// @Tags Funding
// @Produce json
// @Success 200 {object} utils.Response{data=[]dto.FundingBodyResponse}
// @Router /api/v1/funding-bodies [get]
// @Security BearerAuth
func (h *FundingHandler) ListBodies(c *gin.Context) {
	bodies, err := h.fundingService.ListBodies()
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, bodies)
}

// CreateSource 登记资助来源
// @Summary 登记资助来源
// @Description 机构要求资助审批时向 PI 发送审批链接, 否则直接生效
// @Tags Funding
// @Accept json
// @Produce json
// @Param request body dto.CreateFundingSourceRequest true "资助来源"
// @Success 200 {object} utils.Response{data=dto.FundingSourceResponse}
// @Router /api/v1/funding-sources [post]
// @Security BearerAuth
func (h *FundingHandler) CreateSource(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateFundingSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	source, err := h.fundingService.CreateSource(c.Request.Context(), user, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, source)
}

// ListSources 资助来源列表
// @Summary 资助来源列表
// @Tags Funding
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param keyword query string false "标题或编号"
// @Param approved query bool false "是否已审批"
// @Success 200 {object} utils.PageResponse{data=[]dto.FundingSourceResponse}
// @Router /api/v1/funding-sources [get]
// @Security BearerAuth
func (h *FundingHandler) ListSources(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var query dto.FundingSourceListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BindError(c, err)
		return
	}

	sources, total, err := h.fundingService.ListSources(user, &query)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.PageSuccess(c, sources, total, query.GetPage(), query.GetPageSize())
}

// GetSource 资助来源详情
// @Summary 资助来源详情
// @Tags Funding
// @Produce json
// @Param id path int true "资助来源ID"
// @Success 200 {object} utils.Response{data=dto.FundingSourceResponse}
// @Router /api/v1/funding-sources/{id} [get]
// @Security BearerAuth
func (h *FundingHandler) GetSource(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	source, err := h.fundingService.GetSource(user, id)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, source)
}

// Approve 审批资助来源
// @Summary 管理员或资助审批人确认资助来源
// @Tags Funding
// @Produce json
// @Param id path int true "资助来源ID"
// @Success 200 {object} utils.Response{data=dto.FundingSourceResponse}
// @Router /api/v1/funding-sources/{id}/approve [post]
// @Security BearerAuth
func (h *FundingHandler) Approve(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	source, err := h.fundingService.Approve(c.Request.Context(), user, id)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, source)
}

// CreatePublication 登记成果
// @Summary 登记成果
// @Tags Funding
// @Accept json
// @Produce json
// @Param request body dto.CreatePublicationRequest true "成果"
// @Success 200 {object} utils.Response{data=dto.PublicationResponse}
// @Router /api/v1/publications [post]
// @Security BearerAuth
func (h *FundingHandler) CreatePublication(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreatePublicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	publication, err := h.publicationService.Create(user, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, publication)
}

// ListPublications 我的成果
// @Summary 成果列表
// @Tags Funding
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} utils.PageResponse{data=[]dto.PublicationResponse}
// @Router /api/v1/publications [get]
// @Security BearerAuth
func (h *FundingHandler) ListPublications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var query dto.PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BindError(c, err)
		return
	}

	publications, total, err := h.publicationService.List(user, &query)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.PageSuccess(c, publications, total, query.GetPage(), query.GetPageSize())
}
