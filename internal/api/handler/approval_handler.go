package handler

import (
	"github.com/gin-gonic/gin"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/service"
	"hpc-portal/pkg/utils"
)

// ApprovalHandler 审批链接, 持 Token 即可操作, 不需要登录
type ApprovalHandler struct {
	approvalService service.ApprovalService
}

func NewApprovalHandler(approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{
		approvalService: approvalService,
	}
}

// ApproveSupervisor 导师审批
// @Summary 导师确认项目
// @Tags Approval
// @Accept json
// @Produce json
// @Param request body dto.ApprovalTokenRequest true "邮件中的审批Token"
// @Success 200 {object} utils.Response{data=dto.ApprovalResult}
// @Router /api/v1/approvals/supervisor [post]
func (h *ApprovalHandler) ApproveSupervisor(c *gin.Context) {
	var req dto.ApprovalTokenRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	result, err := h.approvalService.ApproveSupervisor(c.Request.Context(), req.Token)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, result)
}

// ApproveFunding PI 审批资助来源
// @Summary PI 确认资助来源
// @Tags Approval
// @Accept json
// @Produce json
// @Param request body dto.ApprovalTokenRequest true "邮件中的审批Token"
// @Success 200 {object} utils.Response{data=dto.ApprovalResult}
// @Router /api/v1/approvals/funding [post]
func (h *ApprovalHandler) ApproveFunding(c *gin.Context) {
	var req dto.ApprovalTokenRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	result, err := h.approvalService.ApproveFunding(c.Request.Context(), req.Token)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, result)
}
