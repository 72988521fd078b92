package handler

import (
	"github.com/gin-gonic/gin"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/service"
	"hpc-portal/pkg/utils"
)

type AuthHandler struct {
	authService service.AuthService
	identity    service.IdentityService
}

func NewAuthHandler(authService service.AuthService, identity service.IdentityService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		identity:    identity,
	}
}

// Login 登录
// @Summary 外部账号登录
// @Description 支持LDAP和本地用户登录, 联邦用户由 SP 注入身份无需登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "登录请求"
// @Success 200 {object} utils.Response{data=dto.LoginResponse}
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, resp)
}

// Refresh 刷新Token
// @Summary 刷新访问Token
// @Description 使用RefreshToken获取新的AccessToken
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "刷新Token请求"
// @Success 200 {object} utils.Response{data=dto.LoginResponse}
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	resp, err := h.authService.RefreshToken(req.RefreshToken)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, resp)
}

// GetMe 获取当前用户
// @Summary 获取当前用户信息
// @Tags 认证
// @Produce json
// @Success 200 {object} utils.Response{data=dto.UserInfo}
// @Router /api/v1/auth/me [get]
// @Security BearerAuth
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	info, err := h.identity.UserInfo(user)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, info)
}
