package models

import (
	"gorm.io/datatypes"
)

// ToolConfig 第三方工具配置
type ToolConfig struct {
	BaseModel
	TenantID uint           `gorm:"not null;index" json:"tenant_id"`
	Name     string         `gorm:"size:100;not null" json:"name"`      // 配置名称
	ToolType string         `gorm:"size:50;not null" json:"tool_type"`  // 工具类型
	Endpoint string         `gorm:"size:255" json:"endpoint"`           // 接入地址
	Secret   string         `gorm:"size:512" json:"secret,omitempty"`   // 接入密钥（加密存储）
	Extra    datatypes.JSON `gorm:"type:json" json:"extra"`             // 额外配置
	Enabled  bool           `gorm:"default:true" json:"enabled"`        // 是否启用
	Remark   string         `gorm:"size:255" json:"remark"`             // 备注

	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

// TableName 指定表名
func (ToolConfig) TableName() string {
	return "tool_configs"
}

// 工具类型常量
const (
	ToolTypeWebhook  = "webhook"
	ToolTypeDingTalk = "dingtalk"
	ToolTypeWeCom    = "wecom"
	ToolTypeJira     = "jira"
	ToolTypeCustom   = "custom"
)

// IsValidToolType 检查工具类型是否合法
func IsValidToolType(toolType string) bool {
	switch toolType {
	case ToolTypeWebhook, ToolTypeDingTalk, ToolTypeWeCom, ToolTypeJira, ToolTypeCustom:
		return true
	}
	return false
}
