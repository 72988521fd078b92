package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/internal/service"
	"hpc-portal/pkg/utils"
)

type MembershipHandler struct {
	membershipService service.MembershipService
}

func NewMembershipHandler(membershipService service.MembershipService) *MembershipHandler {
	return &MembershipHandler{
		membershipService: membershipService,
	}
}

// Join 按项目编号申请加入
// @Summary 申请加入项目
// @Tags Membership
// @Accept json
// @Produce json
// @Param request body dto.JoinProjectRequest true "项目编号"
// @Success 200 {object} utils.Response{data=dto.MembershipResponse}
// @Router /api/v1/memberships [post]
// @Security BearerAuth
func (h *MembershipHandler) Join(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.JoinProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	membership, err := h.membershipService.Join(c.Request.Context(), user, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, membership)
}

// ListMine 我的成员关系
// @Summary 我的成员关系
// @Tags Membership
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param status query int false "状态"
// @Success 200 {object} utils.PageResponse{data=[]dto.MembershipResponse}
// @Router /api/v1/memberships [get]
// @Security BearerAuth
func (h *MembershipHandler) ListMine(c *gin.Context) {
	h.list(c, h.membershipService.ListMine)
}

// ListRequests 待我处理的成员申请
// @Summary 我负责项目的成员申请
// @Tags Membership
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param status query int false "状态"
// @Success 200 {object} utils.PageResponse{data=[]dto.MembershipResponse}
// @Router /api/v1/memberships/requests [get]
// @Security BearerAuth
func (h *MembershipHandler) ListRequests(c *gin.Context) {
	h.list(c, h.membershipService.ListRequests)
}

func (h *MembershipHandler) list(c *gin.Context, fn func(*model.User, *dto.PageQuery) ([]*dto.MembershipResponse, int64, error)) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var query dto.PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BindError(c, err)
		return
	}

	memberships, total, err := fn(user, &query)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.PageSuccess(c, memberships, total, query.GetPage(), query.GetPageSize())
}

// Authorise 通过成员申请
// @Summary 通过成员申请或接受邀请
// @Tags Membership
// @Produce json
// @Param id path int true "成员关系ID"
// @Success 200 {object} utils.Response{data=dto.MembershipResponse}
// @Router /api/v1/memberships/{id}/authorise [post]
// @Security BearerAuth
func (h *MembershipHandler) Authorise(c *gin.Context) {
	h.change(c, h.membershipService.Authorise)
}

// Decline 拒绝成员申请
// @Summary 拒绝成员申请或邀请
// @Tags Membership
// @Produce json
// @Param id path int true "成员关系ID"
// @Success 200 {object} utils.Response{data=dto.MembershipResponse}
// @Router /api/v1/memberships/{id}/decline [post]
// @Security BearerAuth
func (h *MembershipHandler) Decline(c *gin.Context) {
	h.change(c, h.membershipService.Decline)
}

// Revoke 移除成员
// @Summary 移除已授权成员
// @Tags Membership
// @Produce json
// @Param id path int true "成员关系ID"
// @Success 200 {object} utils.Response{data=dto.MembershipResponse}
// @Router /api/v1/memberships/{id}/revoke [post]
// @Security BearerAuth
func (h *MembershipHandler) Revoke(c *gin.Context) {
	h.change(c, h.membershipService.Revoke)
}

func (h *MembershipHandler) change(c *gin.Context, fn func(context.Context, *model.User, int64) (*dto.MembershipResponse, error)) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	membership, err := fn(c.Request.Context(), user, id)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, membership)
}
