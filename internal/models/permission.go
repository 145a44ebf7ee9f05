package models

// Permission 菜单权限模型（管理API的RBAC权限项，区别于数据权限授权）
type Permission struct {
	BaseModel
	Code        string `gorm:"uniqueIndex;size:100;not null" json:"code"` // 权限代码，如 "llm_config:create"
	Name        string `gorm:"size:100;not null" json:"name"`             // 权限名称，如 "创建LLM配置"
	Description string `gorm:"size:255" json:"description"`               // 权限描述
	Module      string `gorm:"size:50;not null" json:"module"`            // 所属模块，如 "llm_config"
	Action      string `gorm:"size:50;not null" json:"action"`            // 操作类型，如 "create", "read"
}

// 权限模块常量
const (
	ModuleTenant         = "tenant"          // 租户管理
	ModuleUser           = "user"            // 用户管理
	ModuleRole           = "role"            // 角色管理
	ModuleLLMConfig      = "llm_config"      // LLM配置管理
	ModuleDatabaseConfig = "database_config" // 数据库配置管理
	ModuleSyncStrategy   = "sync_strategy"   // 同步策略管理
	ModuleToolConfig     = "tool_config"     // 第三方工具配置管理
	ModuleConfigHistory  = "config_history"  // 配置变更历史
	ModuleQueryBuilder   = "query_builder"   // 可视化查询构建
	ModuleClassification = "classification"  // 数据分级分类
	ModuleMasking        = "masking"         // 数据脱敏
	ModuleDataPermission = "data_permission" // 数据权限管理
	ModuleApproval       = "approval"        // 审批流程
)

// 权限操作常量
const (
	ActionCreate = "create" // 创建
	ActionRead   = "read"   // 读取
	ActionUpdate = "update" // 更新
	ActionDelete = "delete" // 删除
	ActionList   = "list"   // 列表
)
