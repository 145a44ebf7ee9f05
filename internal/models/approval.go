package models

import (
	"time"
)

// ApprovalRequest 数据权限审批申请
//
// 权限检查返回requires_approval时由调用方创建；逐级审批通过后
// 通过权限引擎下发固定时窗的临时授权。
type ApprovalRequest struct {
	BaseModel
	TenantID      uint       `gorm:"not null;index" json:"tenant_id"`
	RequestNo     string     `gorm:"size:36;uniqueIndex;not null" json:"request_no"` // 申请编号（UUID）
	ApplicantID   uint       `gorm:"not null;index" json:"applicant_id"`             // 申请人
	ResourceLevel string     `gorm:"size:20;not null" json:"resource_level"`         // 资源层级
	DatasetID     string     `gorm:"size:255;not null" json:"dataset_id"`            // 所属数据集（敏感级别查询依据）
	ResourceID    string     `gorm:"size:255;not null" json:"resource_id"`           // 资源ID
	FieldName     *string    `gorm:"size:100" json:"field_name"`                     // 字段名（field层级）
	Action        string     `gorm:"size:20;not null" json:"action"`                 // 申请的操作
	Reason        string     `gorm:"size:500" json:"reason"`                         // 申请理由
	RequiredLevel int        `gorm:"not null" json:"required_level"`                 // 需要的审批级数
	CurrentLevel  int        `gorm:"default:0" json:"current_level"`                 // 已完成的审批级数
	Status        string     `gorm:"size:20;not null;index" json:"status"`           // 状态
	GrantID       *uint      `json:"grant_id"`                                       // 批准后下发的临时授权
	ExpiresAt     *time.Time `json:"expires_at"`                                     // 申请有效期

	Applicant *User            `gorm:"foreignKey:ApplicantID" json:"applicant,omitempty"`
	Records   []ApprovalRecord `gorm:"foreignKey:RequestID" json:"records,omitempty"`
}

// TableName 指定表名
func (ApprovalRequest) TableName() string {
	return "approval_requests"
}

// 审批状态常量
const (
	ApprovalStatusPending   = "pending"
	ApprovalStatusApproved  = "approved"
	ApprovalStatusRejected  = "rejected"
	ApprovalStatusCancelled = "cancelled"
)

// ApprovalRecord 单级审批记录
type ApprovalRecord struct {
	BaseModel
	RequestID  uint   `gorm:"not null;index" json:"request_id"`
	Level      int    `gorm:"not null" json:"level"`            // 审批级别（从1开始）
	ApproverID uint   `gorm:"not null" json:"approver_id"`      // 审批人
	Decision   string `gorm:"size:20;not null" json:"decision"` // approve, reject
	Comment    string `gorm:"size:500" json:"comment"`          // 审批意见

	Approver *User `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
}

// TableName 指定表名
func (ApprovalRecord) TableName() string {
	return "approval_records"
}

// 审批决定常量
const (
	ApprovalDecisionApprove = "approve"
	ApprovalDecisionReject  = "reject"
)
