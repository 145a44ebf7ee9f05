package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ========== 资源层级与操作 ==========

// 资源层级常量（dataset -> record -> field 三级）
const (
	ResourceLevelDataset = "dataset"
	ResourceLevelRecord  = "record"
	ResourceLevelField   = "field"
)

// IsValidResourceLevel 检查资源层级是否合法
func IsValidResourceLevel(level string) bool {
	switch level {
	case ResourceLevelDataset, ResourceLevelRecord, ResourceLevelField:
		return true
	}
	return false
}

// 数据操作常量（闭集，必须精确匹配）
const (
	DataActionRead   = "read"
	DataActionWrite  = "write"
	DataActionDelete = "delete"
	DataActionExport = "export"
	DataActionAdmin  = "admin"
)

// IsValidDataAction 检查数据操作是否合法
func IsValidDataAction(action string) bool {
	switch action {
	case DataActionRead, DataActionWrite, DataActionDelete, DataActionExport, DataActionAdmin:
		return true
	}
	return false
}

// WildcardResource 资源通配符，匹配同层级任意资源
const WildcardResource = "*"

// ========== 数据权限授权 ==========

// PermissionGrant 数据权限授权记录
//
// 授权主体为用户或角色（二选一），作用于指定层级的资源。撤销采用
// 软删除（is_active置false），保留审计痕迹；过期在检查时被动过滤，
// 不做主动清理。
type PermissionGrant struct {
	BaseModel
	TenantID      uint           `gorm:"not null;index" json:"tenant_id"`
	ResourceLevel string         `gorm:"size:20;not null;index" json:"resource_level"` // dataset, record, field
	ResourceType  string         `gorm:"size:50;not null" json:"resource_type"`        // 与resource_level一致，独立存储
	ResourceID    string         `gorm:"size:255;not null;index" json:"resource_id"`   // "*"为通配
	FieldName     *string        `gorm:"size:100" json:"field_name"`                   // 仅field层级有意义
	UserID        *uint          `gorm:"index" json:"user_id"`                         // 授权用户（与role_id二选一）
	RoleID        *uint          `gorm:"index" json:"role_id"`                         // 授权角色（与user_id二选一）
	Action        string         `gorm:"size:20;not null;index" json:"action"`         // 操作（闭集）
	Conditions    datatypes.JSON `gorm:"type:json" json:"conditions"`                  // 检查时求值的条件谓词
	Tags          datatypes.JSON `gorm:"type:json" json:"tags"`                        // 标签集（ABAC匹配用）
	GrantedBy     uint           `gorm:"not null" json:"granted_by"`                   // 授权人
	GrantedAt     time.Time      `gorm:"not null" json:"granted_at"`                   // 授权时间
	ExpiresAt     *time.Time     `gorm:"index" json:"expires_at"`                      // 过期时间（null为永久）
	IsTemporary   bool           `gorm:"default:false" json:"is_temporary"`            // 是否临时授权
	IsActive      bool           `gorm:"default:true;index" json:"is_active"`          // 软删除标记
}

// TableName 指定表名
func (PermissionGrant) TableName() string {
	return "permission_grants"
}

// Validate 校验授权记录的数据完整性
func (g *PermissionGrant) Validate() error {
	if !IsValidResourceLevel(g.ResourceLevel) {
		return fmt.Errorf("非法的资源层级: %s", g.ResourceLevel)
	}
	if g.ResourceType != g.ResourceLevel {
		return fmt.Errorf("资源类型与资源层级不一致: %s != %s", g.ResourceType, g.ResourceLevel)
	}
	if !IsValidDataAction(g.Action) {
		return fmt.Errorf("非法的操作类型: %s", g.Action)
	}
	if g.ResourceID == "" {
		return fmt.Errorf("资源ID不能为空")
	}
	// 授权主体必须且只能设置用户或角色之一
	if (g.UserID == nil) == (g.RoleID == nil) {
		return fmt.Errorf("授权主体必须且只能指定用户或角色之一")
	}
	// field_name仅在field层级有意义
	if g.ResourceLevel != ResourceLevelField && g.FieldName != nil {
		return fmt.Errorf("非field层级授权不能指定字段名")
	}
	if g.IsTemporary && g.ExpiresAt == nil {
		return fmt.Errorf("临时授权必须指定过期时间")
	}
	return nil
}

// IsExpired 判断授权在指定时刻是否已过期
func (g *PermissionGrant) IsExpired(now time.Time) bool {
	return g.ExpiresAt != nil && !g.ExpiresAt.After(now)
}

// TagList 解析授权的标签集
func (g *PermissionGrant) TagList() []string {
	if len(g.Tags) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(g.Tags, &tags); err != nil {
		return nil
	}
	return tags
}

// GrantConditions 授权条件谓词
//
// time_start/time_end为"HH:MM"格式的每日时间窗（支持跨零点）；
// expression为expr表达式，求值环境包含user_id、tenant_id、action、
// resource_id、hour、weekday。
type GrantConditions struct {
	TimeStart  string `json:"time_start,omitempty"`
	TimeEnd    string `json:"time_end,omitempty"`
	Expression string `json:"expression,omitempty"`
}

// ParseConditions 解析授权条件，无条件时返回nil
func (g *PermissionGrant) ParseConditions() (*GrantConditions, error) {
	if len(g.Conditions) == 0 || string(g.Conditions) == "null" {
		return nil, nil
	}
	var cond GrantConditions
	if err := json.Unmarshal(g.Conditions, &cond); err != nil {
		return nil, fmt.Errorf("解析授权条件失败: %v", err)
	}
	if cond.TimeStart == "" && cond.TimeEnd == "" && cond.Expression == "" {
		return nil, nil
	}
	return &cond, nil
}

// ========== 数据分级 ==========

// 敏感级别常量（全序：public < internal < confidential < top_secret）
const (
	SensitivityPublic       = "public"
	SensitivityInternal     = "internal"
	SensitivityConfidential = "confidential"
	SensitivityTopSecret    = "top_secret"
)

// sensitivityRank 敏感级别的全序
var sensitivityRank = map[string]int{
	SensitivityPublic:       0,
	SensitivityInternal:     1,
	SensitivityConfidential: 2,
	SensitivityTopSecret:    3,
}

// SensitivityRank 返回敏感级别序号，未知级别按internal处理
func SensitivityRank(level string) int {
	if rank, ok := sensitivityRank[level]; ok {
		return rank
	}
	return sensitivityRank[SensitivityInternal]
}

// IsValidSensitivity 检查敏感级别是否合法
func IsValidSensitivity(level string) bool {
	_, ok := sensitivityRank[level]
	return ok
}

// RequiresApprovalLevel 该敏感级别的拒绝是否应升级为"待审批"
func RequiresApprovalLevel(level string) bool {
	return SensitivityRank(level) >= sensitivityRank[SensitivityConfidential]
}

// ResourceClassification 资源敏感级别标注
//
// 按（租户，数据集，可选字段）标注；字段级标注优先于数据集级。
type ResourceClassification struct {
	BaseModel
	TenantID     uint    `gorm:"not null;index;uniqueIndex:idx_tenant_ds_field" json:"tenant_id"`
	DatasetID    string  `gorm:"size:255;not null;uniqueIndex:idx_tenant_ds_field" json:"dataset_id"`
	FieldName    *string `gorm:"size:100;uniqueIndex:idx_tenant_ds_field" json:"field_name"`
	Level        string  `gorm:"size:20;not null" json:"level"` // 敏感级别
	ClassifiedBy uint    `gorm:"not null" json:"classified_by"` // 标注人
	Notes        string  `gorm:"size:255" json:"notes"`         // 标注说明
}

// TableName 指定表名
func (ResourceClassification) TableName() string {
	return "resource_classifications"
}

// ========== 权限判定结果 ==========

// PermissionResult 权限判定结果
//
// 拒绝永远以结果值表达，不作为error返回。requires_approval仅在
// 拒绝且资源敏感级别达到审批阈值时为true。
type PermissionResult struct {
	Allowed           bool             `json:"allowed"`
	Reason            string           `json:"reason"`
	RequiresApproval  bool             `json:"requires_approval,omitempty"`
	ConditionsApplied *GrantConditions `json:"conditions_applied,omitempty"`
}
