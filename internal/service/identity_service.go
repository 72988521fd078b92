package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/config"
	"hpc-portal/internal/pkg/crypto"
	"hpc-portal/internal/pkg/jwt"
	"hpc-portal/internal/repository"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
)

// RemoteAttributes 由 Shibboleth SP 通过可信请求头传入的身份属性
type RemoteAttributes struct {
	Username    string
	Email       string
	DisplayName string
}

// IdentityService 将请求身份解析为门户用户
type IdentityService interface {
	ResolveRemoteUser(ctx context.Context, attrs RemoteAttributes) (*model.User, error)
	ResolveClaims(claims *jwt.UserClaims) (*model.User, error)
	UserInfo(user *model.User) (*dto.UserInfo, error)
}

type identityService struct {
	db          *gorm.DB
	cfg         config.ShibbolethConfig
	userRepo    repository.UserRepository
	grantRepo   repository.RoleGrantRepository
	institution InstitutionService
	logger      *zap.Logger
}

func NewIdentityService(
	db *gorm.DB,
	cfg config.ShibbolethConfig,
	userRepo repository.UserRepository,
	grantRepo repository.RoleGrantRepository,
	institution InstitutionService,
	logger *zap.Logger,
) IdentityService {
	return &identityService{
		db:          db,
		cfg:         cfg,
		userRepo:    userRepo,
		grantRepo:   grantRepo,
		institution: institution,
		logger:      logger,
	}
}

func (s *identityService) ResolveRemoteUser(ctx context.Context, attrs RemoteAttributes) (*model.User, error) {
	username := strings.TrimSpace(attrs.Username)
	if username == "" {
		return nil, pkgErrors.ErrUnauthorized
	}

	user, err := s.userRepo.FindByUsername(constants.AuthTypeShibboleth, username)
	if err == nil {
		return checkEnabled(user)
	}
	if err != pkgErrors.ErrRecordNotFound {
		return nil, err
	}

	// 未知用户默认拒绝
	if !s.cfg.CreateUnknownUser {
		s.logger.Warn("拒绝未注册的联邦用户", zap.String("username", username))
		return nil, pkgErrors.ErrUnknownUser
	}

	user, err = s.provision(ctx, username, attrs)
	if err != nil {
		// 并发请求已创建
		if isDuplicate(err) {
			return s.userRepo.FindByUsername(constants.AuthTypeShibboleth, username)
		}
		return nil, err
	}
	return user, nil
}

func (s *identityService) provision(ctx context.Context, username string, attrs RemoteAttributes) (*model.User, error) {
	email := strings.TrimSpace(attrs.Email)
	if email == "" && strings.Contains(username, "@") {
		email = username
	}
	inst, err := s.institution.MatchEmail(email)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		AuthProvider: constants.AuthTypeShibboleth,
		Username:     username,
		Email:        email,
		Password:     crypto.UnusablePassword,
		SystemRoles:  model.StringList{},
		BaseStatus:   model.BaseStatus{Status: constants.StatusEnabled},
	}
	if attrs.DisplayName != "" {
		displayName := attrs.DisplayName
		user.DisplayName = &displayName
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		if err := users.Create(user); err != nil {
			return err
		}
		profile := &model.Profile{UserID: user.ID}
		if inst != nil {
			profile.InstitutionID = &inst.ID
			profile.Institution = inst
		}
		if err := users.CreateProfile(profile); err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("自动创建联邦用户",
		zap.String("username", username),
		zap.Bool("external", user.Profile.IsExternal()))
	return user, nil
}

func (s *identityService) ResolveClaims(claims *jwt.UserClaims) (*model.User, error) {
	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if err == pkgErrors.ErrRecordNotFound {
			return nil, pkgErrors.ErrInvalidToken
		}
		return nil, err
	}
	if user.Username != claims.Username || user.AuthProvider != claims.AuthType {
		return nil, pkgErrors.ErrInvalidToken
	}
	return checkEnabled(user)
}

func (s *identityService) UserInfo(user *model.User) (*dto.UserInfo, error) {
	roles, err := s.grantRepo.RolesOf(user.ID)
	if err != nil {
		return nil, err
	}
	info := &dto.UserInfo{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.Username,
		AuthType:    user.AuthProvider,
		IsExternal:  user.Profile.IsExternal(),
		SystemRoles: append([]string{}, user.SystemRoles...),
		Roles:       roles,
	}
	if user.DisplayName != nil {
		info.DisplayName = *user.DisplayName
	}
	if user.Profile != nil && user.Profile.InstitutionID != nil {
		info.InstitutionID = user.Profile.InstitutionID
		if user.Profile.Institution != nil {
			info.InstitutionName = user.Profile.Institution.Name
		}
	}
	return info, nil
}

func checkEnabled(user *model.User) (*model.User, error) {
	if user.Status != constants.StatusEnabled {
		return nil, pkgErrors.ErrUserDisabled
	}
	return user, nil
}

func isDuplicate(err error) bool {
	appErr, ok := pkgErrors.As(err)
	return ok && appErr.Code == pkgErrors.CodeConflict && appErr.Message == pkgErrors.ErrRecordExists.Message
}
