package service

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	"hpc-portal/internal/pkg/auth"
	"hpc-portal/internal/pkg/crypto"
	"hpc-portal/internal/repository"
	"hpc-portal/pkg/constants"
	pkgErrors "hpc-portal/pkg/errors"
	"hpc-portal/pkg/utils"
)

// UserService 管理员预建账号与系统角色
type UserService interface {
	Provision(ctx context.Context, actor *model.User, req *dto.ProvisionUserRequest) (*dto.UserInfo, error)
	List(actor *model.User, query *dto.UserListQuery) ([]*dto.UserInfo, int64, error)
	UpdateSystemRoles(actor *model.User, id int64, req *dto.UpdateSystemRolesRequest) (*dto.UserInfo, error)
}

type userService struct {
	db              *gorm.DB
	repo            repository.UserRepository
	institutionRepo repository.InstitutionRepository
	identity        IdentityService
	access          accessChecker
	logger          *zap.Logger
}

func NewUserService(
	db *gorm.DB,
	repo repository.UserRepository,
	institutionRepo repository.InstitutionRepository,
	grantRepo repository.RoleGrantRepository,
	identity IdentityService,
	logger *zap.Logger,
) UserService {
	return &userService{
		db:              db,
		repo:            repo,
		institutionRepo: institutionRepo,
		identity:        identity,
		access:          accessChecker{grantRepo: grantRepo},
		logger:          logger,
	}
}

func (s *userService) Provision(ctx context.Context, actor *model.User, req *dto.ProvisionUserRequest) (*dto.UserInfo, error) {
	if err := s.access.require(actor, auth.PermUserManage); err != nil {
		return nil, err
	}

	provider := lo.Ternary(req.AuthProvider == "", constants.AuthTypeShibboleth, req.AuthProvider)
	user := &model.User{
		AuthProvider: provider,
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		SystemRoles:  model.StringList(lo.Uniq(req.SystemRoles)),
		BaseStatus:   model.BaseStatus{Status: constants.StatusEnabled},
	}
	if req.DisplayName != "" {
		user.DisplayName = lo.ToPtr(req.DisplayName)
	}

	if provider == constants.AuthTypeLocal {
		if req.Password == "" {
			return nil, pkgErrors.Validation(map[string]string{"password": utils.RequiredMessage})
		}
		hash, err := crypto.HashPassword(req.Password)
		if err != nil {
			return nil, pkgErrors.Wrap(pkgErrors.CodeInternalError, "密码加密失败", err)
		}
		user.Password = hash
	} else {
		user.Password = crypto.UnusablePassword
	}

	profile := &model.Profile{}
	if req.InstitutionID != nil {
		inst, err := s.institutionRepo.FindByID(*req.InstitutionID)
		if err != nil {
			if err == pkgErrors.ErrRecordNotFound {
				return nil, pkgErrors.Validation(map[string]string{"institution_id": "Select a valid choice."})
			}
			return nil, err
		}
		profile.InstitutionID = &inst.ID
		profile.Institution = inst
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.repo.WithTx(tx)
		if err := users.Create(user); err != nil {
			return err
		}
		profile.UserID = user.ID
		return users.CreateProfile(profile)
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, pkgErrors.Validation(map[string]string{"username": "A user with that username already exists."})
		}
		return nil, err
	}
	user.Profile = profile

	s.logger.Info("管理员创建用户",
		zap.String("username", user.Username),
		zap.String("provider", provider),
		zap.String("operator", operatorName(actor)))
	return s.identity.UserInfo(user)
}

func (s *userService) List(actor *model.User, query *dto.UserListQuery) ([]*dto.UserInfo, int64, error) {
	if err := s.access.require(actor, auth.PermUserManage); err != nil {
		return nil, 0, err
	}
	users, total, err := s.repo.List(*query)
	if err != nil {
		return nil, 0, err
	}
	infos := make([]*dto.UserInfo, 0, len(users))
	for _, u := range users {
		info, err := s.identity.UserInfo(u)
		if err != nil {
			return nil, 0, err
		}
		infos = append(infos, info)
	}
	return infos, total, nil
}

func (s *userService) UpdateSystemRoles(actor *model.User, id int64, req *dto.UpdateSystemRolesRequest) (*dto.UserInfo, error) {
	if err := s.access.require(actor, auth.PermUserManage); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	roles := model.StringList(lo.Uniq(req.SystemRoles))
	// 不能移除自己的管理员角色
	if user.ID == actor.ID && user.HasSystemRole(constants.RoleSystemAdmin) && !roles.Contains(constants.RoleSystemAdmin) {
		return nil, pkgErrors.New(pkgErrors.CodeConflict, "不能移除自己的管理员角色")
	}
	if err := s.repo.UpdateSystemRoles(user.ID, roles); err != nil {
		return nil, err
	}
	user.SystemRoles = roles

	s.logger.Info("系统角色已更新",
		zap.String("username", user.Username),
		zap.Strings("roles", roles),
		zap.String("operator", operatorName(actor)))
	return s.identity.UserInfo(user)
}
