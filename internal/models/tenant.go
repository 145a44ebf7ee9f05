package models

// Tenant 租户模型。数据权限、密级、脱敏规则全部以租户为隔离边界
type Tenant struct {
	BaseModel
	Name      string `json:"name" gorm:"not null;size:100"`
	Code      string `json:"code" gorm:"unique;not null;size:50;index"`
	Status    string `json:"status" gorm:"default:'active';size:20"`
	UserCount int    `json:"user_count" gorm:"-"` // 用户数量，查询时聚合填充
}

// TableName 表名
func (t *Tenant) TableName() string {
	return "tenants"
}

// 租户状态常量，停用租户的用户无法登录
const (
	TenantStatusActive   = "active"
	TenantStatusInactive = "inactive"
)

// IsActive 租户是否启用
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}
