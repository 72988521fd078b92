package handler

import (
	"github.com/gin-gonic/gin"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/service"
	"hpc-portal/pkg/utils"
)

type HistoryHandler struct {
	historyService service.HistoryService
}

func NewHistoryHandler(historyService service.HistoryService) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
	}
}

type historyParam struct {
	ResourceType string `uri:"resource_type" binding:"required"`
	ID           int64  `uri:"id" binding:"required,min=1"`
}

// List 状态变更记录
// @Summary 状态变更记录
// @Tags History
// @Produce json
// @Param resource_type path string true "project, allocation, membership, funding_source, user"
// @Param id path int true "资源ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} utils.PageResponse{data=[]dto.StatusHistoryResponse}
// @Router /api/v1/history/{resource_type}/{id} [get]
// @Security BearerAuth
func (h *HistoryHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var param historyParam
	if err := c.ShouldBindUri(&param); err != nil {
		utils.BindError(c, err)
		return
	}
	var query dto.PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BindError(c, err)
		return
	}

	histories, total, err := h.historyService.List(user, param.ResourceType, param.ID, &query)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.PageSuccess(c, histories, total, query.GetPage(), query.GetPageSize())
}
