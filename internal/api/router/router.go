package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"hpc-portal/internal/api/handler"
	"hpc-portal/internal/api/middleware"
	"hpc-portal/internal/pkg/config"
	"hpc-portal/internal/service"
)

// Setup 设置路由
func Setup(cfg *config.Config, services *service.Services, logger *zap.Logger) *gin.Engine {
	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigins))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Swagger API 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authenticator := middleware.NewAuthenticator(services.Signer, services.Identity, cfg.Auth.Shibboleth, logger)

	// 初始化Handler
	authHandler := handler.NewAuthHandler(services.Auth, services.Identity)
	userHandler := handler.NewUserHandler(services.User)
	institutionHandler := handler.NewInstitutionHandler(services.Institution)
	projectHandler := handler.NewProjectHandler(services.Project, services.Allocation, services.Membership)
	allocationHandler := handler.NewAllocationHandler(services.Allocation)
	membershipHandler := handler.NewMembershipHandler(services.Membership)
	fundingHandler := handler.NewFundingHandler(services.Funding, services.Publication)
	approvalHandler := handler.NewApprovalHandler(services.Approval)
	historyHandler := handler.NewHistoryHandler(services.History)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证相关(无需token)
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
		}

		// 审批链接(凭Token, 无需登录)
		approvalGroup := v1.Group("/approvals")
		{
			approvalGroup.POST("/supervisor", approvalHandler.ApproveSupervisor) // 导师确认
			approvalGroup.POST("/funding", approvalHandler.ApproveFunding)       // PI 确认资助来源
		}

		// 需要认证的路由
		authed := v1.Group("")
		authed.Use(authenticator.Required())
		{
			// 认证信息
			authed.GET("/auth/me", authHandler.GetMe)

			// 用户管理
			userGroup := authed.Group("/users")
			{
				userGroup.POST("", userHandler.Provision)                  // 预建用户
				userGroup.GET("", userHandler.List)                        // 用户列表
				userGroup.PUT("/:id/roles", userHandler.UpdateSystemRoles) // 更新系统角色
			}

			// 机构管理
			institutionGroup := authed.Group("/institutions")
			{
				institutionGroup.POST("", institutionHandler.Create)                 // 创建机构
				institutionGroup.GET("", institutionHandler.List)                    // 机构列表
				institutionGroup.GET("/:id", institutionHandler.GetByID)             // 机构详情
				institutionGroup.PUT("/:id/policy", institutionHandler.UpdatePolicy) // 更新策略
			}

			// 项目申请
			projectGroup := authed.Group("/projects")
			{
				projectGroup.POST("", projectHandler.Create)                               // 创建项目
				projectGroup.POST("/with-allocation", projectHandler.CreateWithAllocation) // 项目与资源申请一并提交
				projectGroup.GET("", projectHandler.List)                                  // 项目列表
				projectGroup.GET("/:id", projectHandler.GetByID)                           // 项目详情
				projectGroup.DELETE("/:id", projectHandler.Delete)                         // 删除项目
				projectGroup.POST("/:id/attributions", projectHandler.AttachFunding)       // 关联资助来源与成果
				projectGroup.POST("/:id/decision", projectHandler.Decide)                  // 管理员审批
				projectGroup.POST("/:id/invitations", projectHandler.Invite)               // 邀请成员
				projectGroup.POST("/:id/allocations", projectHandler.CreateAllocation)     // 提交资源申请
			}

			// 资源申请
			allocationGroup := authed.Group("/allocations")
			{
				allocationGroup.GET("", allocationHandler.List)                 // 列表, 支持 status 过滤
				allocationGroup.GET("/:id", allocationHandler.GetByID)          // 详情
				allocationGroup.POST("/:id/decision", allocationHandler.Decide) // 审批
			}

			// 成员关系
			membershipGroup := authed.Group("/memberships")
			{
				membershipGroup.POST("", membershipHandler.Join)                    // 按编号申请加入
				membershipGroup.GET("", membershipHandler.ListMine)                 // 我的成员关系
				membershipGroup.GET("/requests", membershipHandler.ListRequests)    // 待我处理的申请
				membershipGroup.POST("/:id/authorise", membershipHandler.Authorise) // 通过
				membershipGroup.POST("/:id/decline", membershipHandler.Decline)     // 拒绝
				membershipGroup.POST("/:id/revoke", membershipHandler.Revoke)       // 移除
			}

			// 资助与成果
			fundingBodyGroup := authed.Group("/funding-bodies")
			fundingSourceGroup := authed.Group("/funding-sources")
			publicationGroup := authed.Group("/publications")
			{
				fundingBodyGroup.POST("", fundingHandler.CreateBody)
				fundingBodyGroup.GET("", fundingHandler.ListBodies)
				fundingSourceGroup.POST("", fundingHandler.CreateSource)        // 登记资助来源
				fundingSourceGroup.GET("", fundingHandler.ListSources)          // 资助来源列表
				fundingSourceGroup.GET("/:id", fundingHandler.GetSource)        // 资助来源详情
				fundingSourceGroup.POST("/:id/approve", fundingHandler.Approve) // 管理员确认
				publicationGroup.POST("", fundingHandler.CreatePublication)     // 登记成果
				publicationGroup.GET("", fundingHandler.ListPublications)       // 成果列表
			}

			// 审计记录
			authed.GET("/history/:resource_type/:id", historyHandler.List)
		}
	}

	return r
}
