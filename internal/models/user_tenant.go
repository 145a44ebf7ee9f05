package models

import (
	"time"
)

// UserTenant 用户-租户关联表
type UserTenant struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_user_tenant" json:"user_id"`
	TenantID      uint      `gorm:"not null;uniqueIndex:idx_user_tenant" json:"tenant_id"`
	RoleID        *uint     `gorm:"index" json:"role_id"`                 // 在该租户的角色
	IsTenantAdmin bool      `gorm:"default:false" json:"is_tenant_admin"` // 是否为该租户管理员
	JoinedAt      time.Time `gorm:"not null" json:"joined_at"`            // 加入时间
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// 关联
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"tenant,omitempty"`
	Role   *Role  `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

// TableName 指定表名
func (UserTenant) TableName() string {
	return "user_tenants"
}
