package handler

import (
	"github.com/gin-gonic/gin"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/service"
	"hpc-portal/pkg/utils"
)

type AllocationHandler struct {
	allocationService service.AllocationService
}

func NewAllocationHandler(allocationService service.AllocationService) *AllocationHandler {
	return &AllocationHandler{
		allocationService: allocationService,
	}
}

// List 资源申请列表
// @Summary 资源申请列表
// @Description 审批人可见全部, 其他用户只能看到自己项目的申请
// @Tags Allocation
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param status query int false "0待审批 1通过 2拒绝"
// @Param project_id query int false "项目ID"
// @Success 200 {object} utils.PageResponse{data=[]dto.AllocationResponse}
// @Router /api/v1/allocations [get]
// @Security BearerAuth
func (h *AllocationHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var query dto.AllocationListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BindError(c, err)
		return
	}

	allocations, total, err := h.allocationService.List(user, &query)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.PageSuccess(c, allocations, total, query.GetPage(), query.GetPageSize())
}

// GetByID 资源申请详情
// @Summary 资源申请详情
// @Tags Allocation
// @Produce json
// @Param id path int true "申请ID"
// @Success 200 {object} utils.Response{data=dto.AllocationResponse}
// @Router /api/v1/allocations/{id} [get]
// @Security BearerAuth
func (h *AllocationHandler) GetByID(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	allocation, err := h.allocationService.GetByID(user, id)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, allocation)
}

// Decide 审批资源申请
// @Summary 审批资源申请
// @Description 仅待审批状态可操作, 决定后不可更改
// @Tags Allocation
// @Accept json
// @Produce json
// @Param id path int true "申请ID"
// @Param request body dto.DecisionRequest true "approve 或 reject"
// @Success 200 {object} utils.Response{data=dto.AllocationResponse}
// @Router /api/v1/allocations/{id}/decision [post]
// @Security BearerAuth
func (h *AllocationHandler) Decide(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	allocation, err := h.allocationService.Decide(c.Request.Context(), user, id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, allocation)
}
