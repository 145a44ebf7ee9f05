package models

import (
	"gorm.io/datatypes"
)

// LLMConfig LLM模型配置
type LLMConfig struct {
	BaseModel
	TenantID  uint           `gorm:"not null;index" json:"tenant_id"`
	Name      string         `gorm:"size:100;not null" json:"name"`                  // 配置名称
	Provider  string         `gorm:"size:50;not null" json:"provider"`               // 提供商：openai, azure, anthropic, ollama, custom
	ModelName string         `gorm:"size:100;not null" json:"model_name"`            // 模型名称，如 gpt-4o
	APIBase   string         `gorm:"size:255" json:"api_base"`                       // API地址
	APIKey    string         `gorm:"size:512" json:"api_key,omitempty"`              // API密钥（加密存储）
	Params    datatypes.JSON `gorm:"type:json" json:"params"`                        // 模型参数：temperature、max_tokens等
	IsDefault bool           `gorm:"default:false" json:"is_default"`                // 是否租户默认模型
	Status    string         `gorm:"size:20;default:'active'" json:"status"`         // 状态：active, inactive
	Remark    string         `gorm:"size:255" json:"remark"`                         // 备注

	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

// TableName 指定表名
func (LLMConfig) TableName() string {
	return "llm_configs"
}

// LLM提供商常量
const (
	LLMProviderOpenAI    = "openai"
	LLMProviderAzure     = "azure"
	LLMProviderAnthropic = "anthropic"
	LLMProviderOllama    = "ollama"
	LLMProviderCustom    = "custom"
)

// IsValidLLMProvider 检查提供商是否合法
func IsValidLLMProvider(provider string) bool {
	switch provider {
	case LLMProviderOpenAI, LLMProviderAzure, LLMProviderAnthropic, LLMProviderOllama, LLMProviderCustom:
		return true
	}
	return false
}
