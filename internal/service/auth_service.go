package service

import (
	"errors"

	"go.uber.org/zap"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/config"
	"hpc-portal/internal/pkg/crypto"
	"hpc-portal/internal/pkg/jwt"
	"hpc-portal/internal/repository"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
)

// AuthService 外部账号 (本地/LDAP) 登录, 联邦用户不经过这里
type AuthService interface {
	Login(req *dto.LoginRequest) (*dto.LoginResponse, error)
	RefreshToken(refreshToken string) (*dto.LoginResponse, error)
}

type authService struct {
	cfg         *config.AuthConfig
	signer      *jwt.Signer
	userRepo    repository.UserRepository
	ldapService LDAPService
	identity    IdentityService
	logger      *zap.Logger
}

func NewAuthService(
	cfg *config.AuthConfig,
	signer *jwt.Signer,
	userRepo repository.UserRepository,
	ldapService LDAPService,
	identity IdentityService,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:         cfg,
		signer:      signer,
		userRepo:    userRepo,
		ldapService: ldapService,
		identity:    identity,
		logger:      logger,
	}
}

func (s *authService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	var user *model.User
	var err error

	switch req.AuthType {
	case constants.AuthTypeLDAP:
		if !s.cfg.LDAP.Enabled {
			return nil, pkgErrors.New(pkgErrors.CodeAuthError, "LDAP认证未启用")
		}
		user, err = s.authenticateLDAP(req.Username, req.Password)
	case constants.AuthTypeLocal:
		if !s.cfg.Local.Enabled {
			return nil, pkgErrors.New(pkgErrors.CodeAuthError, "本地认证未启用")
		}
		user, err = s.authenticateLocal(req.Username, req.Password)
	default:
		return nil, pkgErrors.New(pkgErrors.CodeBadRequest, "不支持的认证类型")
	}
	if err != nil {
		s.logger.Warn("登录失败", zap.String("username", req.Username), zap.String("auth_type", req.AuthType), zap.Error(err))
		return nil, err
	}

	_ = s.userRepo.UpdateLastLogin(user.ID)
	return s.issue(user)
}

// findActive 按认证来源查找启用中的账号, 不存在时返回 notFound
func (s *authService) findActive(provider, username string, notFound error) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(provider, username)
	if errors.Is(err, pkgErrors.ErrRecordNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	if user.Status != constants.StatusEnabled {
		return nil, pkgErrors.ErrUserDisabled
	}
	return user, nil
}

func (s *authService) authenticateLocal(username, password string) (*model.User, error) {
	user, err := s.findActive(constants.AuthTypeLocal, username, pkgErrors.ErrInvalidCredentials)
	if err != nil {
		return nil, err
	}
	if !crypto.CheckPassword(password, user.Password) {
		return nil, pkgErrors.ErrInvalidCredentials
	}
	return user, nil
}

// authenticateLDAP 目录认证通过后仍要求门户中已有该账号, 与联邦用户一致不自动创建
func (s *authService) authenticateLDAP(username, password string) (*model.User, error) {
	entry, err := s.ldapService.Authenticate(username, password)
	if err != nil {
		return nil, err
	}
	user, err := s.findActive(constants.AuthTypeLDAP, entry.Username, pkgErrors.ErrUnknownUser)
	if err != nil {
		return nil, err
	}

	// 同步目录中的邮箱与显示名
	changed := false
	if entry.Email != "" && entry.Email != user.Email {
		user.Email = entry.Email
		changed = true
	}
	if entry.DisplayName != "" && (user.DisplayName == nil || *user.DisplayName != entry.DisplayName) {
		displayName := entry.DisplayName
		user.DisplayName = &displayName
		changed = true
	}
	if changed {
		if err := s.userRepo.Update(user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (s *authService) RefreshToken(refreshToken string) (*dto.LoginResponse, error) {
	claims, err := s.signer.ParseToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != constants.JWTTypeRefresh {
		return nil, pkgErrors.New(pkgErrors.CodeUnauthorized, "无效的RefreshToken")
	}

	user, err := s.identity.ResolveClaims(claims)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *authService) issue(user *model.User) (*dto.LoginResponse, error) {
	id := jwt.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		AuthType: user.AuthProvider,
	}
	if user.DisplayName != nil {
		id.DisplayName = *user.DisplayName
	}

	accessToken, err := s.signer.GenerateAccessToken(id)
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeInternalError, "生成AccessToken失败", err)
	}
	refreshToken, err := s.signer.GenerateRefreshToken(id)
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeInternalError, "生成RefreshToken失败", err)
	}

	info, err := s.identity.UserInfo(user)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.signer.AccessExpire(),
		User:         info,
	}, nil
}
