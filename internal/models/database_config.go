package models

import (
	"gorm.io/datatypes"
)

// DatabaseConfig 数据库连接配置
type DatabaseConfig struct {
	BaseModel
	TenantID uint           `gorm:"not null;index" json:"tenant_id"`
	Name     string         `gorm:"size:100;not null" json:"name"`          // 配置名称
	DBType   string         `gorm:"size:50;not null" json:"db_type"`        // 数据库类型
	Host     string         `gorm:"size:255;not null" json:"host"`          // 主机地址
	Port     int            `gorm:"not null" json:"port"`                   // 端口
	Username string         `gorm:"size:100" json:"username"`               // 用户名
	Password string         `gorm:"size:512" json:"password,omitempty"`     // 密码（加密存储）
	Database string         `gorm:"size:100" json:"database"`               // 数据库名
	Params   datatypes.JSON `gorm:"type:json" json:"params"`                // 额外连接参数
	Status   string         `gorm:"size:20;default:'active'" json:"status"` // 状态：active, inactive
	Remark   string         `gorm:"size:255" json:"remark"`                 // 备注

	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

// TableName 指定表名
func (DatabaseConfig) TableName() string {
	return "database_configs"
}

// 数据库类型常量
const (
	DBTypeMySQL      = "mysql"
	DBTypePostgres   = "postgres"
	DBTypeOracle     = "oracle"
	DBTypeSQLServer  = "sqlserver"
	DBTypeClickHouse = "clickhouse"
)

// IsValidDBType 检查数据库类型是否合法
func IsValidDBType(dbType string) bool {
	switch dbType {
	case DBTypeMySQL, DBTypePostgres, DBTypeOracle, DBTypeSQLServer, DBTypeClickHouse:
		return true
	}
	return false
}
