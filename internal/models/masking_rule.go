package models

// MaskingRule 数据脱敏规则
type MaskingRule struct {
	BaseModel
	TenantID    uint   `gorm:"not null;index;uniqueIndex:idx_tenant_ds_field_rule" json:"tenant_id"`
	DatasetID   string `gorm:"size:255;not null;uniqueIndex:idx_tenant_ds_field_rule" json:"dataset_id"`
	FieldName   string `gorm:"size:100;not null;uniqueIndex:idx_tenant_ds_field_rule" json:"field_name"`
	Strategy    string `gorm:"size:20;not null" json:"strategy"`    // 脱敏策略
	Pattern     string `gorm:"size:255" json:"pattern"`             // custom策略的正则
	Replacement string `gorm:"size:100" json:"replacement"`         // custom策略的替换串
	Enabled     bool   `gorm:"default:true" json:"enabled"`         // 是否启用
	Remark      string `gorm:"size:255" json:"remark"`              // 备注
}

// TableName 指定表名
func (MaskingRule) TableName() string {
	return "masking_rules"
}

// 脱敏策略常量
const (
	MaskStrategyPhone    = "phone"
	MaskStrategyEmail    = "email"
	MaskStrategyIDCard   = "id_card"
	MaskStrategyBankCard = "bank_card"
	MaskStrategyName     = "name"
	MaskStrategyFull     = "full"
	MaskStrategyCustom   = "custom"
)

// IsValidMaskStrategy 检查脱敏策略是否合法
func IsValidMaskStrategy(strategy string) bool {
	switch strategy {
	case MaskStrategyPhone, MaskStrategyEmail, MaskStrategyIDCard,
		MaskStrategyBankCard, MaskStrategyName, MaskStrategyFull, MaskStrategyCustom:
		return true
	}
	return false
}
