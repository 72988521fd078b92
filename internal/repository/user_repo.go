package repository

import (
	"time"

	"gorm.io/gorm"

	"hpc-portal/internal/dto"
	"hpc-portal/internal/model"
	pkgErrors "hpc-portal/pkg/errors"
)

type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	Create(user *model.User) error
	FindByUsername(provider, username string) (*model.User, error)
	FindByID(id int64) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	FindByIDs(ids []int64) ([]*model.User, error)
	ListBySystemRole(role string) ([]*model.User, error)
	List(query dto.UserListQuery) ([]*model.User, int64, error)
	Update(user *model.User) error
	UpdateSystemRoles(id int64, roles model.StringList) error
	UpdateLastLogin(id int64) error

	CreateProfile(profile *model.Profile) error
	FindProfile(userID int64) (*model.Profile, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

func (r *userRepository) Create(user *model.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return wrapWrite(err, "创建用户失败")
	}
	return nil
}

func (r *userRepository) FindByUsername(provider, username string) (*model.User, error) {
	var user model.User
	err := r.db.Preload("Profile.Institution").
		Where("auth_provider = ? AND username = ?", provider, username).
		First(&user).Error
	if err != nil {
		return nil, wrapFind(err, "查询用户失败")
	}
	return &user, nil
}

func (r *userRepository) FindByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.Preload("Profile.Institution").First(&user, id).Error
	if err != nil {
		return nil, wrapFind(err, "查询用户失败")
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("LOWER(email) = LOWER(?)", email).Order("id ASC").First(&user).Error
	if err != nil {
		return nil, wrapFind(err, "查询用户失败")
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(ids []int64) ([]*model.User, error) {
	var users []*model.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询用户失败", err)
	}
	return users, nil
}

// ListBySystemRole system_roles 为 JSON 数组, 用 LIKE 兼容各方言
func (r *userRepository) ListBySystemRole(role string) ([]*model.User, error) {
	var users []*model.User
	err := r.db.Where("system_roles LIKE ?", `%"`+role+`"%`).Find(&users).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询用户失败", err)
	}
	return users, nil
}

func (r *userRepository) List(query dto.UserListQuery) ([]*model.User, int64, error) {
	var users []*model.User
	var total int64

	db := r.db.Model(&model.User{})
	if query.Keyword != "" {
		like := "%" + query.Keyword + "%"
		db = db.Where("username LIKE ? OR email LIKE ? OR display_name LIKE ?", like, like, like)
	}
	if query.Status != nil {
		db = db.Where("status = ?", *query.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "统计用户数量失败", err)
	}
	err := db.Preload("Profile.Institution").
		Offset(query.GetOffset()).Limit(query.GetPageSize()).
		Order("id ASC").Find(&users).Error
	if err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询用户列表失败", err)
	}
	return users, total, nil
}

func (r *userRepository) Update(user *model.User) error {
	if err := r.db.Omit("Profile").Save(user).Error; err != nil {
		return wrapWrite(err, "更新用户失败")
	}
	return nil
}

func (r *userRepository) UpdateSystemRoles(id int64, roles model.StringList) error {
	if err := r.db.Model(&model.User{}).Where("id = ?", id).Update("system_roles", roles).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "更新用户角色失败", err)
	}
	return nil
}

func (r *userRepository) UpdateLastLogin(id int64) error {
	if err := r.db.Model(&model.User{}).Where("id = ?", id).Update("last_login_at", time.Now()).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "更新登录时间失败", err)
	}
	return nil
}

func (r *userRepository) CreateProfile(profile *model.Profile) error {
	if err := r.db.Create(profile).Error; err != nil {
		return wrapWrite(err, "创建用户档案失败")
	}
	return nil
}

func (r *userRepository) FindProfile(userID int64) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.Preload("Institution").Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, wrapFind(err, "查询用户档案失败")
	}
	return &profile, nil
}
