package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adgp/internal/database"
	"adgp/internal/handlers"
	"adgp/internal/middleware"
	"adgp/internal/router"
	"adgp/internal/services"
	"adgp/pkg/cache"
	"adgp/pkg/config"
	"adgp/pkg/crypto"
	"adgp/pkg/jwt"
	"adgp/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting AI Data Governance Platform...")

	// 初始化数据库
	if err := database.Initialize(cfg); err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
		if err := database.CloseRedis(); err != nil {
			appLogger.Error("Failed to close Redis:", err)
		}
	}()

	// 执行数据库迁移
	if err := database.Migrate(); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	db := database.GetDB()

	// 执行种子数据初始化
	if err := seedData(db); err != nil {
		appLogger.Fatalf("Failed to initialize seed data: %v", err)
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 权限判定缓存（可选Redis二级缓存）
	var permCache *cache.PermissionCache
	if cfg.PermCache.Enabled {
		var redisClient *redis.Client
		if cfg.PermCache.UseRedis {
			redisClient = database.GetRedisClient()
		}
		permCache = cache.NewPermissionCache(
			time.Duration(cfg.PermCache.TTLSeconds)*time.Second,
			redisClient,
			cfg.Redis.Prefix,
		)
	}

	// 基础组件
	jwtManager := jwt.GetJWTManager()
	encryptor := crypto.NewEncryptor(cfg.Crypto.EncryptionKey)

	// 平台服务
	userService := services.NewUserService(db)
	tenantService := services.NewTenantService(db)
	roleService := services.NewRoleService(db)
	permissionService := services.NewPermissionService(db)

	// 配置管理服务
	historyService := services.NewConfigHistoryService(db)
	llmConfigService := services.NewLLMConfigService(db, encryptor, historyService)
	databaseConfigService := services.NewDatabaseConfigService(db, encryptor, historyService)
	toolConfigService := services.NewToolConfigService(db, encryptor, historyService)

	// 同步调度器（nil执行器使用默认连通性校验实现）
	syncScheduler := services.NewSyncScheduler(db, nil)
	syncStrategyService := services.NewSyncStrategyService(db, historyService, syncScheduler)

	// 数据治理服务
	grantStore := services.NewGormGrantStore(db)
	classificationStore := services.NewGormClassificationStore(db)
	roleStore := services.NewGormRoleStore(db)
	dataPermissionService := services.NewDataPermissionService(grantStore, classificationStore, roleStore, permCache)
	classificationService := services.NewClassificationService(db)
	maskingService := services.NewMaskingService(db, classificationStore)
	approvalService := services.NewApprovalService(db, dataPermissionService, classificationStore)
	queryBuilderService := services.NewQueryBuilderService()

	// 启动同步调度器（在路由初始化前）
	if err := syncScheduler.Start(); err != nil {
		appLogger.Errorf("Failed to start sync scheduler: %v", err)
		// 不影响主服务启动
	}
	defer syncScheduler.Stop()

	// 组装路由依赖
	auth := middleware.NewAuthMiddleware(userService, jwtManager)
	deps := &router.Dependencies{
		Auth: auth,

		AuthHandler:           handlers.NewAuthHandler(userService, tenantService, jwtManager),
		UserHandler:           handlers.NewUserHandler(userService),
		TenantHandler:         handlers.NewTenantHandler(tenantService),
		RoleHandler:           handlers.NewRoleHandler(roleService),
		PermissionHandler:     handlers.NewPermissionHandler(permissionService),
		LLMConfigHandler:      handlers.NewLLMConfigHandler(llmConfigService),
		DatabaseConfigHandler: handlers.NewDatabaseConfigHandler(databaseConfigService),
		ToolConfigHandler:     handlers.NewToolConfigHandler(toolConfigService),
		SyncStrategyHandler:   handlers.NewSyncStrategyHandler(syncStrategyService, syncScheduler),
		ConfigHistoryHandler:  handlers.NewConfigHistoryHandler(historyService),
		QueryBuilderHandler:   handlers.NewQueryBuilderHandler(queryBuilderService),
		ClassificationHandler: handlers.NewClassificationHandler(classificationService),
		MaskingHandler:        handlers.NewMaskingHandler(maskingService),
		DataPermissionHandler: handlers.NewDataPermissionHandler(dataPermissionService, grantStore),
		ApprovalHandler:       handlers.NewApprovalHandler(approvalService),
	}

	r := router.SetupRouter(deps)

	// 启动服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	if err := server.Close(); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}
