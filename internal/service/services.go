package service

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hpc-portal/internal/adapter/notification"
	"hpc-portal/internal/adapter/storage"
	"hpc-portal/internal/pkg/config"
	"hpc-portal/internal/pkg/jwt"
	"hpc-portal/internal/repository"
)

// Services 服务集合, 路由与定时任务共用同一份实例
type Services struct {
	Signer      *jwt.Signer
	Institution InstitutionService
	Identity    IdentityService
	Auth        AuthService
	User        UserService
	Approval    ApprovalService
	Funding     FundingService
	Publication PublicationService
	Allocation  AllocationService
	Project     ProjectService
	Membership  MembershipService
	History     HistoryService
}

// NewServices 初始化Repository与Service
func NewServices(db *gorm.DB, cfg *config.Config, store storage.DocumentStore, notifier notification.Notifier, logger *zap.Logger) *Services {
	// 初始化Repository
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	grantRepo := repository.NewRoleGrantRepository(db)
	fundingRepo := repository.NewFundingRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	institutionRepo := repository.NewInstitutionRepository(db)

	// 初始化Service
	s := &Services{Signer: jwt.NewSigner(cfg.Auth.JWT)}
	s.Institution = NewInstitutionService(institutionRepo, grantRepo, logger)
	s.Identity = NewIdentityService(db, cfg.Auth.Shibboleth, userRepo, grantRepo, s.Institution, logger)
	s.Auth = NewAuthService(&cfg.Auth, s.Signer, userRepo, NewLDAPService(&cfg.Auth.LDAP), s.Identity, logger)
	s.User = NewUserService(db, userRepo, institutionRepo, grantRepo, s.Identity, logger)
	s.Approval = NewApprovalService(db, cfg.Approval, s.Signer, approvalRepo, projectRepo, fundingRepo, logger)
	s.Funding = NewFundingService(db, fundingRepo, approvalRepo, grantRepo, s.Approval, notifier, logger)
	s.Publication = NewPublicationService(fundingRepo)
	s.Allocation = NewAllocationService(db, allocationRepo, projectRepo, userRepo, grantRepo, store, notifier, cfg.Notification.Reviewers, logger)
	s.Project = NewProjectService(ProjectDeps{
		DB:              db,
		Config:          cfg.Project,
		Projects:        projectRepo,
		Allocations:     allocationRepo,
		Memberships:     membershipRepo,
		Grants:          grantRepo,
		Funding:         fundingRepo,
		Approvals:       approvalRepo,
		Institutions:    institutionRepo,
		Users:           userRepo,
		ApprovalService: s.Approval,
		AllocationSvc:   s.Allocation,
		Store:           store,
		Notifier:        notifier,
		Logger:          logger,
	})
	s.Membership = NewMembershipService(db, membershipRepo, projectRepo, userRepo, grantRepo, notifier, logger)
	s.History = NewHistoryService(approvalRepo)
	return s
}
