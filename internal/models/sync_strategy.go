package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncStrategy 数据同步策略
type SyncStrategy struct {
	BaseModel
	TenantID       uint           `gorm:"not null;index" json:"tenant_id"`
	Name           string         `gorm:"size:100;not null" json:"name"`           // 策略名称
	SourceConfigID uint           `gorm:"not null;index" json:"source_config_id"`  // 源数据库配置
	TargetConfigID uint           `gorm:"not null;index" json:"target_config_id"`  // 目标数据库配置
	SyncMode       string         `gorm:"size:20;not null" json:"sync_mode"`       // 同步模式：full, incremental
	CronExpr       string         `gorm:"size:100;not null" json:"cron_expr"`      // 调度表达式
	TableMappings  datatypes.JSON `gorm:"type:json" json:"table_mappings"`         // 表映射配置
	MaxRetries     int            `gorm:"default:3" json:"max_retries"`            // 最大重试次数
	RetryInterval  int            `gorm:"default:30" json:"retry_interval"`        // 重试间隔（秒）
	Backoff        bool           `gorm:"default:true" json:"backoff"`             // 是否指数退避
	Enabled        bool           `gorm:"default:false" json:"enabled"`            // 是否启用
	LastRunAt      *time.Time     `json:"last_run_at"`                             // 上次执行时间
	LastRunStatus  string         `gorm:"size:20" json:"last_run_status"`          // 上次执行状态

	Tenant       *Tenant         `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	SourceConfig *DatabaseConfig `gorm:"foreignKey:SourceConfigID" json:"source_config,omitempty"`
	TargetConfig *DatabaseConfig `gorm:"foreignKey:TargetConfigID" json:"target_config,omitempty"`
}

// TableName 指定表名
func (SyncStrategy) TableName() string {
	return "sync_strategies"
}

// 同步模式常量
const (
	SyncModeFull        = "full"
	SyncModeIncremental = "incremental"
)

// SyncRun 同步执行记录
type SyncRun struct {
	BaseModel
	TenantID   uint       `gorm:"not null;index" json:"tenant_id"`
	StrategyID uint       `gorm:"not null;index" json:"strategy_id"`
	RunID      string     `gorm:"size:36;uniqueIndex;not null" json:"run_id"` // 执行标识（UUID）
	Trigger    string     `gorm:"size:20;not null" json:"trigger"`            // 触发方式：cron, manual
	Status     string     `gorm:"size:20;not null" json:"status"`             // 状态
	Attempts   int        `gorm:"default:0" json:"attempts"`                  // 实际尝试次数
	ErrorMsg   string     `gorm:"type:text" json:"error_msg"`                 // 失败原因
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`

	Strategy *SyncStrategy `gorm:"foreignKey:StrategyID" json:"strategy,omitempty"`
}

// TableName 指定表名
func (SyncRun) TableName() string {
	return "sync_runs"
}

// 同步执行状态常量
const (
	SyncRunStatusPending = "pending"
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusFailed  = "failed"
)

// 同步触发方式常量
const (
	SyncTriggerCron   = "cron"
	SyncTriggerManual = "manual"
)
