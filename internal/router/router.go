package router

import (
	"time"

	"adgp/internal/handlers"
	"adgp/internal/middleware"
	"adgp/pkg/response"

	"github.com/gin-gonic/gin"
)

// Dependencies 路由依赖的处理器与中间件
//
// 全部在main中构造后注入，router不自行创建任何服务。
type Dependencies struct {
	Auth *middleware.AuthMiddleware

	AuthHandler           *handlers.AuthHandler
	UserHandler           *handlers.UserHandler
	TenantHandler         *handlers.TenantHandler
	RoleHandler           *handlers.RoleHandler
	PermissionHandler     *handlers.PermissionHandler
	LLMConfigHandler      *handlers.LLMConfigHandler
	DatabaseConfigHandler *handlers.DatabaseConfigHandler
	ToolConfigHandler     *handlers.ToolConfigHandler
	SyncStrategyHandler   *handlers.SyncStrategyHandler
	ConfigHistoryHandler  *handlers.ConfigHistoryHandler
	QueryBuilderHandler   *handlers.QueryBuilderHandler
	ClassificationHandler *handlers.ClassificationHandler
	MaskingHandler        *handlers.MaskingHandler
	DataPermissionHandler *handlers.DataPermissionHandler
	ApprovalHandler       *handlers.ApprovalHandler
}

// SetupRouter 设置路由
func SetupRouter(deps *Dependencies) *gin.Engine {
	router := gin.New()

	handlers.RegisterValidators()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS())

	registerRoutes(router, deps)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine, deps *Dependencies) {

	auth := deps.Auth

	// API路由组
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		// JWT认证路由（无需认证）
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", deps.AuthHandler.Login)
			authGroup.POST("/logout", deps.AuthHandler.Logout)
			authGroup.POST("/refresh", deps.AuthHandler.RefreshToken)

			// 获取当前用户完整信息
			authGroup.GET("/me", auth.RequireLogin(), deps.AuthHandler.Me)

			// 租户切换
			authGroup.POST("/switch-tenant", auth.RequireLogin(), deps.AuthHandler.SwitchTenant)
		}

		// 用户路由
		users := api.Group("/users", auth.RequireLogin())
		{
			users.POST("", auth.RequirePermission("user:create"), deps.UserHandler.Create)
			users.GET("", auth.RequirePermission("user:list"), deps.UserHandler.GetAll)
			users.GET("/:id", auth.RequirePermission("user:read"), deps.UserHandler.GetByID)
			users.PUT("/:id", auth.RequirePermission("user:update"), deps.UserHandler.Update)
			users.DELETE("/:id", auth.RequirePermission("user:delete"), deps.UserHandler.Delete)

			// 快捷操作
			users.POST("/:id/activate", auth.RequirePermission("user:update"), deps.UserHandler.Activate)
			users.POST("/:id/deactivate", auth.RequirePermission("user:update"), deps.UserHandler.Deactivate)
			users.POST("/:id/lock", auth.RequirePermission("user:update"), deps.UserHandler.Lock)
			users.POST("/:id/reset-password", auth.RequirePermission("user:update"), deps.UserHandler.ResetPassword)

			// 用户角色管理
			users.POST("/:id/roles", auth.RequireTenantAdmin(), deps.UserHandler.AssignRoles)
			users.GET("/:id/roles", auth.RequirePermission("user:read"), deps.UserHandler.GetRoles)
			users.GET("/:id/permissions", auth.RequirePermission("user:read"), deps.UserHandler.GetPermissions)
		}

		// 租户路由（平台管理员专用）
		tenants := api.Group("/tenants", auth.RequireLogin(), auth.RequirePlatformAdmin())
		{
			tenants.POST("", deps.TenantHandler.Create)
			tenants.GET("", deps.TenantHandler.GetAll)
			tenants.GET("/:id", deps.TenantHandler.GetByID)
			tenants.PUT("/:id", deps.TenantHandler.Update)
			tenants.DELETE("/:id", deps.TenantHandler.Delete)
			tenants.GET("/stats", deps.TenantHandler.GetStats)
			tenants.POST("/:id/activate", deps.TenantHandler.Activate)
			tenants.POST("/:id/deactivate", deps.TenantHandler.Deactivate)
		}

		// 角色路由
		roles := api.Group("/roles", auth.RequireLogin())
		{
			roles.POST("", auth.RequirePermission("role:create"), deps.RoleHandler.Create)
			roles.GET("", auth.RequirePermission("role:list"), deps.RoleHandler.GetAll)
			roles.GET("/:id", auth.RequirePermission("role:read"), deps.RoleHandler.GetByID)
			roles.PUT("/:id", auth.RequirePermission("role:update"), deps.RoleHandler.Update)
			roles.DELETE("/:id", auth.RequirePermission("role:delete"), deps.RoleHandler.Delete)

			// 菜单权限分配（租户管理员及以上）
			roles.POST("/:id/permissions", auth.RequireTenantAdmin(), deps.RoleHandler.AssignPermissions)
			roles.GET("/:id/permissions", auth.RequirePermission("role:read"), deps.RoleHandler.GetPermissions)
		}

		// 权限目录路由（登录即可查看）
		permissions := api.Group("/permissions", auth.RequireLogin())
		{
			permissions.GET("", deps.PermissionHandler.GetAll)
			permissions.GET("/:id", deps.PermissionHandler.GetByID)
		}

		// LLM配置路由
		llmConfigs := api.Group("/llm-configs", auth.RequireLogin())
		{
			llmConfigs.POST("", auth.RequirePermission("llm_config:create"), deps.LLMConfigHandler.Create)
			llmConfigs.GET("", auth.RequirePermission("llm_config:list"), deps.LLMConfigHandler.GetAll)
			llmConfigs.GET("/:id", auth.RequirePermission("llm_config:read"), deps.LLMConfigHandler.GetByID)
			llmConfigs.PUT("/:id", auth.RequirePermission("llm_config:update"), deps.LLMConfigHandler.Update)
			llmConfigs.DELETE("/:id", auth.RequirePermission("llm_config:delete"), deps.LLMConfigHandler.Delete)
			llmConfigs.POST("/:id/set-default", auth.RequirePermission("llm_config:update"), deps.LLMConfigHandler.SetDefault)
			llmConfigs.POST("/:id/test", auth.RequirePermission("llm_config:read"), deps.LLMConfigHandler.TestConnection)
		}

		// 数据库配置路由
		dbConfigs := api.Group("/database-configs", auth.RequireLogin())
		{
			dbConfigs.POST("", auth.RequirePermission("database_config:create"), deps.DatabaseConfigHandler.Create)
			dbConfigs.GET("", auth.RequirePermission("database_config:list"), deps.DatabaseConfigHandler.GetAll)
			dbConfigs.GET("/:id", auth.RequirePermission("database_config:read"), deps.DatabaseConfigHandler.GetByID)
			dbConfigs.PUT("/:id", auth.RequirePermission("database_config:update"), deps.DatabaseConfigHandler.Update)
			dbConfigs.DELETE("/:id", auth.RequirePermission("database_config:delete"), deps.DatabaseConfigHandler.Delete)
		}

		// 工具配置路由
		toolConfigs := api.Group("/tool-configs", auth.RequireLogin())
		{
			toolConfigs.POST("", auth.RequirePermission("tool_config:create"), deps.ToolConfigHandler.Create)
			toolConfigs.GET("", auth.RequirePermission("tool_config:list"), deps.ToolConfigHandler.GetAll)
			toolConfigs.GET("/:id", auth.RequirePermission("tool_config:read"), deps.ToolConfigHandler.GetByID)
			toolConfigs.PUT("/:id", auth.RequirePermission("tool_config:update"), deps.ToolConfigHandler.Update)
			toolConfigs.DELETE("/:id", auth.RequirePermission("tool_config:delete"), deps.ToolConfigHandler.Delete)
		}

		// 同步策略路由
		syncStrategies := api.Group("/sync-strategies", auth.RequireLogin())
		{
			syncStrategies.POST("", auth.RequirePermission("sync_strategy:create"), deps.SyncStrategyHandler.Create)
			syncStrategies.GET("", auth.RequirePermission("sync_strategy:list"), deps.SyncStrategyHandler.GetAll)
			syncStrategies.GET("/:id", auth.RequirePermission("sync_strategy:read"), deps.SyncStrategyHandler.GetByID)
			syncStrategies.PUT("/:id", auth.RequirePermission("sync_strategy:update"), deps.SyncStrategyHandler.Update)
			syncStrategies.DELETE("/:id", auth.RequirePermission("sync_strategy:delete"), deps.SyncStrategyHandler.Delete)

			// 调度控制
			syncStrategies.POST("/:id/enable", auth.RequirePermission("sync_strategy:update"), deps.SyncStrategyHandler.Enable)
			syncStrategies.POST("/:id/disable", auth.RequirePermission("sync_strategy:update"), deps.SyncStrategyHandler.Disable)
			syncStrategies.POST("/:id/run", auth.RequirePermission("sync_strategy:run"), deps.SyncStrategyHandler.Run)
			syncStrategies.GET("/:id/runs", auth.RequirePermission("sync_strategy:read"), deps.SyncStrategyHandler.GetRuns)
		}

		// 配置变更历史路由
		configHistories := api.Group("/config-histories", auth.RequireLogin())
		{
			configHistories.GET("", auth.RequirePermission("config_history:list"), deps.ConfigHistoryHandler.GetAll)
			configHistories.GET("/version", auth.RequirePermission("config_history:read"), deps.ConfigHistoryHandler.GetVersion)
			configHistories.POST("/rollback", auth.RequirePermission("config_history:rollback"), deps.ConfigHistoryHandler.Rollback)
		}

		// 查询构建路由
		queryBuilder := api.Group("/query-builder", auth.RequireLogin())
		{
			queryBuilder.POST("/build", auth.RequirePermission("query_builder:build"), deps.QueryBuilderHandler.Build)
		}

		// 分级标注路由
		classifications := api.Group("/classifications", auth.RequireLogin())
		{
			classifications.POST("", auth.RequirePermission("classification:create"), deps.ClassificationHandler.Create)
			classifications.GET("", auth.RequirePermission("classification:list"), deps.ClassificationHandler.GetAll)
			classifications.GET("/:id", auth.RequirePermission("classification:read"), deps.ClassificationHandler.GetByID)
			classifications.PUT("/:id", auth.RequirePermission("classification:update"), deps.ClassificationHandler.Update)
			classifications.DELETE("/:id", auth.RequirePermission("classification:delete"), deps.ClassificationHandler.Delete)
		}

		// 脱敏规则路由
		maskingRules := api.Group("/masking-rules", auth.RequireLogin())
		{
			maskingRules.POST("", auth.RequirePermission("masking:create"), deps.MaskingHandler.Create)
			maskingRules.GET("", auth.RequirePermission("masking:list"), deps.MaskingHandler.GetAll)
			maskingRules.PUT("/:id", auth.RequirePermission("masking:update"), deps.MaskingHandler.Update)
			maskingRules.DELETE("/:id", auth.RequirePermission("masking:delete"), deps.MaskingHandler.Delete)
			maskingRules.POST("/preview", auth.RequirePermission("masking:read"), deps.MaskingHandler.Preview)
		}

		// 数据权限路由
		dataPermissions := api.Group("/data-permissions", auth.RequireLogin())
		{
			// 权限检查
			dataPermissions.POST("/check", auth.RequirePermission("data_permission:check"), deps.DataPermissionHandler.Check)
			dataPermissions.POST("/check-record", auth.RequirePermission("data_permission:check"), deps.DataPermissionHandler.CheckRecord)
			dataPermissions.POST("/check-field", auth.RequirePermission("data_permission:check"), deps.DataPermissionHandler.CheckField)
			dataPermissions.POST("/check-tags", auth.RequirePermission("data_permission:check"), deps.DataPermissionHandler.CheckTags)

			// 授权管理
			dataPermissions.POST("/grants", auth.RequirePermission("data_permission:grant"), deps.DataPermissionHandler.CreateGrant)
			dataPermissions.GET("/grants", auth.RequirePermission("data_permission:list"), deps.DataPermissionHandler.GetGrants)
			dataPermissions.POST("/revoke", auth.RequirePermission("data_permission:revoke"), deps.DataPermissionHandler.RevokeGrant)
		}

		// 审批流路由
		approvals := api.Group("/approvals", auth.RequireLogin())
		{
			approvals.POST("", auth.RequirePermission("approval:create"), deps.ApprovalHandler.Create)
			approvals.GET("", auth.RequirePermission("approval:list"), deps.ApprovalHandler.GetAll)
			approvals.GET("/:id", auth.RequirePermission("approval:read"), deps.ApprovalHandler.GetByID)
			approvals.POST("/:id/approve", auth.RequirePermission("approval:decide"), deps.ApprovalHandler.Approve)
			approvals.POST("/:id/reject", auth.RequirePermission("approval:decide"), deps.ApprovalHandler.Reject)
			approvals.POST("/:id/cancel", auth.RequirePermission("approval:create"), deps.ApprovalHandler.Cancel)
		}
	}
}

func healthCheck(c *gin.Context) {
	data := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"service":   "ADGP",
		"version":   "1.0.0",
	}
	response.Success(c, data)
}

func ping(c *gin.Context) {
	response.SuccessWithMessage(c, "pong", nil)
}
