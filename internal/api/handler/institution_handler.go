package handler

import (
	"github.com/gin-gonic/gin"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/service"
	"hpc-portal/pkg/utils"
)

type InstitutionHandler struct {
	institutionService service.InstitutionService
}

func NewInstitutionHandler(institutionService service.InstitutionService) *InstitutionHandler {
	return &InstitutionHandler{
		institutionService: institutionService,
	}
}

// Create 创建机构
// @Summary 创建机构
// @Tags Institution
// @Accept json
// @Produce json
// @Param request body dto.CreateInstitutionRequest true "机构"
// @Success 200 {object} utils.Response{data=dto.InstitutionResponse}
// @Router /api/v1/institutions [post]
// @Security BearerAuth
func (h *InstitutionHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateInstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	institution, err := h.institutionService.Create(user, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, institution)
}

// List 机构列表
// @Summary 机构列表
// @Tags Institution
// @Produce json
// @Success 200 {object} utils.Response{data=[]dto.InstitutionResponse}
// @Router /api/v1/institutions [get]
// @Security BearerAuth
func (h *InstitutionHandler) List(c *gin.Context) {
	institutions, err := h.institutionService.List()
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, institutions)
}

// GetByID 机构详情
// @Summary 机构详情
// @Tags Institution
// @Produce json
// @Param id path int true "机构ID"
// @Success 200 {object} utils.Response{data=dto.InstitutionResponse}
// @Router /api/v1/institutions/{id} [get]
// @Security BearerAuth
func (h *InstitutionHandler) GetByID(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	institution, err := h.institutionService.GetByID(id)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, institution)
}

// UpdatePolicy 更新机构策略
// @Summary 更新资助审批与单独提交策略
// @Tags Institution
// @Accept json
// @Produce json
// @Param id path int true "机构ID"
// @Param request body dto.UpdateInstitutionPolicyRequest true "策略"
// @Success 200 {object} utils.Response{data=dto.InstitutionResponse}
// @Router /api/v1/institutions/{id}/policy [put]
// @Security BearerAuth
func (h *InstitutionHandler) UpdatePolicy(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	var req dto.UpdateInstitutionPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	institution, err := h.institutionService.UpdatePolicy(user, id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, institution)
}
