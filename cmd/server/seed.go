package main

import (
	"fmt"
	"time"

	"adgp/internal/models"
	"adgp/pkg/logger"

	"gorm.io/gorm"
)

// seedData 初始化种子数据
func seedData(db *gorm.DB) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")

	// 1. 创建默认租户
	if err := createDefaultTenant(db); err != nil {
		return fmt.Errorf("创建默认租户失败: %v", err)
	}

	// 2. 初始化菜单权限目录
	if err := initializePermissions(db); err != nil {
		return fmt.Errorf("初始化权限失败: %v", err)
	}

	// 3. 创建平台管理员角色
	if err := createPlatformAdminRole(db); err != nil {
		return fmt.Errorf("创建平台管理员角色失败: %v", err)
	}

	// 4. 创建默认管理员用户
	if err := createDefaultAdmin(db); err != nil {
		return fmt.Errorf("创建默认管理员失败: %v", err)
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}

// createDefaultTenant 创建默认租户
func createDefaultTenant(db *gorm.DB) error {
	var count int64
	db.Model(&models.Tenant{}).Where("code = ?", "default").Count(&count)
	if count > 0 {
		logger.GetLogger().Info("默认租户已存在，跳过创建")
		return nil
	}

	tenant := &models.Tenant{
		Name:   "默认租户",
		Code:   "default",
		Status: models.TenantStatusActive,
	}

	if err := db.Create(tenant).Error; err != nil {
		return err
	}

	logger.GetLogger().Info("默认租户创建成功")
	return nil
}

// crudPermissions 生成一个模块的标准CRUD权限项
func crudPermissions(module, label string) []models.Permission {
	return []models.Permission{
		{Code: module + ":create", Name: "创建" + label, Module: module, Action: models.ActionCreate, Description: "创建" + label},
		{Code: module + ":read", Name: "查看" + label, Module: module, Action: models.ActionRead, Description: "查看" + label + "详情"},
		{Code: module + ":update", Name: "更新" + label, Module: module, Action: models.ActionUpdate, Description: "更新" + label},
		{Code: module + ":delete", Name: "删除" + label, Module: module, Action: models.ActionDelete, Description: "删除" + label},
		{Code: module + ":list", Name: label + "列表", Module: module, Action: models.ActionList, Description: "查看" + label + "列表"},
	}
}

// initializePermissions 初始化菜单权限目录
func initializePermissions(db *gorm.DB) error {
	var defaultPermissions []models.Permission

	// 各模块标准CRUD权限
	defaultPermissions = append(defaultPermissions, crudPermissions(models.ModuleTenant, "租户")...)
	defaultPermissions = append(defaultPermissions, crudPermissions(models.ModuleUser, "用户")...)
	defaultPermissions = append(defaultPermissions, crudPermissions(models.ModuleRole, "角色")...)
	defaultPermissions = append(defaultPermissions, crudPermissions(models.ModuleLLMConfig, "LLM配置")...)
	defaultPermissions = append(defaultPermissions, crudPermissions(models.ModuleDatabaseConfig, "数据库配置")...)
	defaultPermissions = append(defaultPermissions, crudPermissions(models.ModuleSyncStrategy, "同步策略")...)
	defaultPermissions = append(defaultPermissions, crudPermissions(models.ModuleToolConfig, "工具配置")...)
	defaultPermissions = append(defaultPermissions, crudPermissions(models.ModuleClassification, "分级标注")...)
	defaultPermissions = append(defaultPermissions, crudPermissions(models.ModuleMasking, "脱敏规则")...)

	// 模块特有权限
	defaultPermissions = append(defaultPermissions, []models.Permission{
		// 同步策略
		{Code: "sync_strategy:run", Name: "手动触发同步", Module: models.ModuleSyncStrategy, Action: "run", Description: "手动触发一次同步执行"},

		// 配置变更历史
		{Code: "config_history:list", Name: "变更历史列表", Module: models.ModuleConfigHistory, Action: models.ActionList, Description: "查看配置变更历史"},
		{Code: "config_history:read", Name: "查看历史版本", Module: models.ModuleConfigHistory, Action: models.ActionRead, Description: "查看指定历史版本快照"},
		{Code: "config_history:rollback", Name: "回滚配置", Module: models.ModuleConfigHistory, Action: "rollback", Description: "回滚配置到历史版本"},

		// 可视化查询构建
		{Code: "query_builder:build", Name: "构建查询", Module: models.ModuleQueryBuilder, Action: "build", Description: "构建参数化SQL查询"},

		// 数据权限管理
		{Code: "data_permission:check", Name: "权限检查", Module: models.ModuleDataPermission, Action: "check", Description: "检查数据访问权限"},
		{Code: "data_permission:grant", Name: "创建授权", Module: models.ModuleDataPermission, Action: "grant", Description: "创建数据权限授权"},
		{Code: "data_permission:revoke", Name: "撤销授权", Module: models.ModuleDataPermission, Action: "revoke", Description: "撤销数据权限授权"},
		{Code: "data_permission:list", Name: "授权列表", Module: models.ModuleDataPermission, Action: models.ActionList, Description: "查看授权记录"},

		// 审批流程
		{Code: "approval:create", Name: "发起审批", Module: models.ModuleApproval, Action: models.ActionCreate, Description: "发起数据访问审批申请"},
		{Code: "approval:read", Name: "查看审批", Module: models.ModuleApproval, Action: models.ActionRead, Description: "查看审批申请详情"},
		{Code: "approval:list", Name: "审批列表", Module: models.ModuleApproval, Action: models.ActionList, Description: "查看审批申请列表"},
		{Code: "approval:decide", Name: "审批决定", Module: models.ModuleApproval, Action: "decide", Description: "通过或驳回审批申请"},
	}...)

	for _, perm := range defaultPermissions {
		var count int64
		db.Model(&models.Permission{}).Where("code = ?", perm.Code).Count(&count)
		if count == 0 {
			if err := db.Create(&perm).Error; err != nil {
				return fmt.Errorf("创建权限 %s 失败: %v", perm.Code, err)
			}
		}
	}

	logger.GetLogger().Info("权限初始化完成")
	return nil
}

// createPlatformAdminRole 创建平台管理员角色
//
// 系统级角色，tenant_id为0，对所有租户可见。
func createPlatformAdminRole(db *gorm.DB) error {
	var count int64
	db.Model(&models.Role{}).Where("code = ?", models.RolePlatformAdmin).Count(&count)
	if count > 0 {
		logger.GetLogger().Info("平台管理员角色已存在，跳过创建")
		return nil
	}

	role := &models.Role{
		TenantID:    0,
		Name:        "平台管理员",
		Code:        models.RolePlatformAdmin,
		Description: "系统最高权限管理员",
		IsSystem:    true,
		Status:      models.RoleStatusActive,
	}

	if err := db.Create(role).Error; err != nil {
		return err
	}

	// 分配所有权限
	var permissions []models.Permission
	db.Find(&permissions)

	var rolePermissions []models.RolePermission
	for _, perm := range permissions {
		rolePermissions = append(rolePermissions, models.RolePermission{
			RoleID:       role.ID,
			PermissionID: perm.ID,
		})
	}

	if len(rolePermissions) > 0 {
		if err := db.Create(&rolePermissions).Error; err != nil {
			return err
		}
	}

	logger.GetLogger().Info("平台管理员角色创建成功")
	return nil
}

// createDefaultAdmin 创建默认管理员用户
func createDefaultAdmin(db *gorm.DB) error {
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		logger.GetLogger().Info("管理员用户已存在，跳过创建")
		return nil
	}

	// 获取默认租户
	var tenant models.Tenant
	if err := db.Where("code = ?", "default").First(&tenant).Error; err != nil {
		return fmt.Errorf("获取默认租户失败: %v", err)
	}

	user := &models.User{
		Username:        "admin",
		Email:           "admin@example.com",
		Name:            "系统管理员",
		Status:          models.UserStatusActive,
		IsPlatformAdmin: true,
	}

	if err := user.SetPassword("Admin@123"); err != nil {
		return fmt.Errorf("设置密码失败: %v", err)
	}

	if err := db.Create(user).Error; err != nil {
		return err
	}

	// 加入默认租户并设为租户管理员
	membership := &models.UserTenant{
		UserID:        user.ID,
		TenantID:      tenant.ID,
		IsTenantAdmin: true,
		JoinedAt:      time.Now(),
	}
	if err := db.Create(membership).Error; err != nil {
		return err
	}

	// 分配平台管理员角色
	var role models.Role
	if err := db.Where("code = ?", models.RolePlatformAdmin).First(&role).Error; err == nil {
		userRole := &models.UserRole{
			UserID:    user.ID,
			RoleID:    role.ID,
			CreatedBy: user.ID,
		}
		db.Create(userRole)
	}

	logger.GetLogger().Infof("默认管理员创建成功 - 用户名: admin, 密码: Admin@123")
	return nil
}
