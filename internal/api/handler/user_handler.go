package handler

import (
	"github.com/gin-gonic/gin"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/service"
	"hpc-portal/pkg/utils"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Provision 预建用户
// @Summary 管理员预建用户
// @Description 联邦用户默认不会自动创建, 由管理员预先登记
// @Tags User
// @Accept json
// @Produce json
// @Param request body dto.ProvisionUserRequest true "用户"
// @Success 200 {object} utils.Response{data=dto.UserInfo}
// @Router /api/v1/users [post]
// @Security BearerAuth
func (h *UserHandler) Provision(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.ProvisionUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	info, err := h.userService.Provision(c.Request.Context(), user, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, info)
}

// List 用户列表
// @Summary 用户列表
// @Tags User
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param keyword query string false "用户名或邮箱"
// @Success 200 {object} utils.PageResponse{data=[]dto.UserInfo}
// @Router /api/v1/users [get]
// @Security BearerAuth
func (h *UserHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var query dto.UserListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BindError(c, err)
		return
	}

	users, total, err := h.userService.List(user, &query)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.PageSuccess(c, users, total, query.GetPage(), query.GetPageSize())
}

// UpdateSystemRoles 更新系统角色
// @Summary 更新系统角色
// @Tags User
// @Accept json
// @Produce json
// @Param id path int true "用户ID"
// @Param request body dto.UpdateSystemRolesRequest true "系统角色"
// @Success 200 {object} utils.Response{data=dto.UserInfo}
// @Router /api/v1/users/{id}/roles [put]
// @Security BearerAuth
func (h *UserHandler) UpdateSystemRoles(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	var req dto.UpdateSystemRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	info, err := h.userService.UpdateSystemRoles(user, id, &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, info)
}
