package database

import (
	"adgp/internal/models"
	"adgp/pkg/logger"
)

// Migrate 执行数据库迁移
func Migrate() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	err := DB.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.UserTenant{},
		&models.Permission{},
		&models.Role{},
		&models.RolePermission{},
		&models.UserRole{},
		// 配置管理
		&models.LLMConfig{},
		&models.DatabaseConfig{},
		&models.SyncStrategy{},
		&models.SyncRun{},
		&models.ToolConfig{},
		&models.ConfigHistory{},
		// 数据治理
		&models.PermissionGrant{},
		&models.ResourceClassification{},
		&models.MaskingRule{},
		&models.ApprovalRequest{},
		&models.ApprovalRecord{},
	)

	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")
	return nil
}
