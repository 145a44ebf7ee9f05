package models

import (
	"gorm.io/datatypes"
)

// ConfigHistory 配置变更历史
//
// 每次配置写操作在变更前记录完整快照，版本号按配置逐条递增，
// 支持回滚到任意历史版本。加密字段在快照中保持密文。
type ConfigHistory struct {
	BaseModel
	TenantID   uint           `gorm:"not null;index;uniqueIndex:idx_config_version" json:"tenant_id"`
	ConfigType string         `gorm:"size:50;not null;uniqueIndex:idx_config_version" json:"config_type"` // 配置类型
	ConfigID   uint           `gorm:"not null;uniqueIndex:idx_config_version" json:"config_id"`           // 配置ID
	Version    int            `gorm:"not null;uniqueIndex:idx_config_version" json:"version"`             // 版本号（按配置递增）
	ChangeType string         `gorm:"size:20;not null" json:"change_type"`                                // 变更类型
	Snapshot   datatypes.JSON `gorm:"type:json;not null" json:"snapshot"`                                 // 变更前完整快照
	ChangedBy  uint           `gorm:"not null" json:"changed_by"`                                         // 操作人
	Remark     string         `gorm:"size:255" json:"remark"`                                             // 变更说明
}

// TableName 指定表名
func (ConfigHistory) TableName() string {
	return "config_histories"
}

// 配置类型常量
const (
	ConfigTypeLLM      = "llm_config"
	ConfigTypeDatabase = "database_config"
	ConfigTypeSync     = "sync_strategy"
	ConfigTypeTool     = "tool_config"
)

// 变更类型常量
const (
	ChangeTypeCreate   = "create"
	ChangeTypeUpdate   = "update"
	ChangeTypeDelete   = "delete"
	ChangeTypeRollback = "rollback"
)

// IsValidConfigType 检查配置类型是否合法
func IsValidConfigType(configType string) bool {
	switch configType {
	case ConfigTypeLLM, ConfigTypeDatabase, ConfigTypeSync, ConfigTypeTool:
		return true
	}
	return false
}
