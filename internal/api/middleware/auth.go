package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/config"
	"hpc-portal/internal/pkg/jwt"
	"hpc-portal/internal/service"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
	"hpc-portal/pkg/utils"
)

// Authenticator 解析请求身份: 优先 Bearer Token, 否则读取 SP 注入的可信请求头
type Authenticator struct {
	signer   *jwt.Signer
	identity service.IdentityService
	cfg      config.ShibbolethConfig
	logger   *zap.Logger
}

func NewAuthenticator(signer *jwt.Signer, identity service.IdentityService, cfg config.ShibbolethConfig, logger *zap.Logger) *Authenticator {
	if cfg.Header == "" {
		cfg.Header = constants.HeaderRemoteUser
	}
	return &Authenticator{
		signer:   signer,
		identity: identity,
		cfg:      cfg,
		logger:   logger,
	}
}

// Required 认证中间件, 解析失败直接中断
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.resolve(c)
		if err != nil {
			utils.Error(c, err)
			c.Abort()
			return
		}

		// 将用户信息存入context
		c.Set(constants.CurrentUserKey, user)
		c.Next()
	}
}

func (a *Authenticator) resolve(c *gin.Context) (*model.User, error) {
	if authHeader := c.GetHeader(constants.HeaderAuthorization); authHeader != "" {
		// 检查Bearer前缀
		if !strings.HasPrefix(authHeader, constants.HeaderBearerPrefix) {
			return nil, pkgErrors.New(pkgErrors.CodeUnauthorized, "Authorization格式错误")
		}
		claims, err := a.signer.ValidateToken(strings.TrimPrefix(authHeader, constants.HeaderBearerPrefix))
		if err != nil {
			return nil, err
		}
		return a.identity.ResolveClaims(claims)
	}

	if !a.cfg.Enabled {
		return nil, pkgErrors.New(pkgErrors.CodeUnauthorized, "缺少Authorization Header")
	}
	username := c.GetHeader(a.cfg.Header)
	if username == "" {
		return nil, pkgErrors.New(pkgErrors.CodeUnauthorized, "缺少身份信息")
	}
	attrs := service.RemoteAttributes{Username: username}
	if a.cfg.EmailHeader != "" {
		attrs.Email = c.GetHeader(a.cfg.EmailHeader)
	}
	if a.cfg.DisplayNameHeader != "" {
		attrs.DisplayName = c.GetHeader(a.cfg.DisplayNameHeader)
	}
	user, err := a.identity.ResolveRemoteUser(c.Request.Context(), attrs)
	if err != nil {
		a.logger.Debug("联邦身份解析失败", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// CurrentUser 取出认证中间件写入的用户
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(constants.CurrentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
