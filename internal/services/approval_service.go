package services

import (
	"adgp/internal/models"
	"adgp/pkg/logger"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 临时授权时窗：终审通过后下发的授权有效期
const approvalGrantDuration = 24 * time.Hour

// ApprovalService 数据权限审批服务
//
// 权限检查返回requires_approval时由申请人发起申请，审批级数由
// 资源敏感级别决定：confidential一级，top_secret两级。
// 每级审批写一条ApprovalRecord，终审通过后通过权限引擎下发
// 24小时临时授权。
type ApprovalService struct {
	db              *gorm.DB
	permissions     *DataPermissionService
	classifications ClassificationStore
}

// NewApprovalService 创建审批服务
func NewApprovalService(db *gorm.DB, permissions *DataPermissionService, classifications ClassificationStore) *ApprovalService {
	return &ApprovalService{db: db, permissions: permissions, classifications: classifications}
}

// CreateRequest 发起审批申请
//
// 同一申请人对同一资源+操作存在pending申请时拒绝重复发起。
func (s *ApprovalService) CreateRequest(tenantID, applicantID uint, resourceLevel, datasetID, resourceID string, fieldName *string, action, reason string) (*models.ApprovalRequest, error) {
	if tenantID == 0 || applicantID == 0 {
		return nil, fmt.Errorf("租户和申请人不能为空")
	}
	switch resourceLevel {
	case models.ResourceLevelDataset, models.ResourceLevelRecord, models.ResourceLevelField:
	default:
		return nil, fmt.Errorf("非法的资源层级: %s", resourceLevel)
	}
	if resourceID == "" {
		return nil, fmt.Errorf("资源ID不能为空")
	}
	// dataset和field层级的资源本身就是数据集；record层级必须单独指明所属数据集
	if datasetID == "" {
		if resourceLevel == models.ResourceLevelRecord {
			return nil, fmt.Errorf("record层级申请必须指定所属数据集")
		}
		datasetID = resourceID
	}
	if !models.IsValidDataAction(action) {
		return nil, fmt.Errorf("非法的操作类型: %s", action)
	}
	if resourceLevel == models.ResourceLevelField && (fieldName == nil || *fieldName == "") {
		return nil, fmt.Errorf("field层级申请必须指定字段名")
	}

	// 重复pending申请拒绝
	dupQuery := s.db.Model(&models.ApprovalRequest{}).
		Where("tenant_id = ? AND applicant_id = ? AND resource_level = ? AND resource_id = ? AND action = ? AND status = ?",
			tenantID, applicantID, resourceLevel, resourceID, action, models.ApprovalStatusPending)
	if fieldName != nil {
		dupQuery = dupQuery.Where("field_name = ?", *fieldName)
	}
	var dup int64
	if err := dupQuery.Count(&dup).Error; err != nil {
		return nil, err
	}
	if dup > 0 {
		return nil, fmt.Errorf("已存在待审批的相同申请")
	}

	// 审批级数由所属数据集（field层级细化到字段）的敏感级别决定
	var classifyField *string
	if resourceLevel == models.ResourceLevelField {
		classifyField = fieldName
	}
	level, err := s.classifications.GetLevel(tenantID, datasetID, classifyField)
	if err != nil {
		return nil, err
	}
	requiredLevel := 1
	if level == models.SensitivityTopSecret {
		requiredLevel = 2
	}

	expiresAt := time.Now().Add(7 * 24 * time.Hour)
	request := &models.ApprovalRequest{
		TenantID:      tenantID,
		RequestNo:     uuid.New().String(),
		ApplicantID:   applicantID,
		ResourceLevel: resourceLevel,
		DatasetID:     datasetID,
		ResourceID:    resourceID,
		FieldName:     fieldName,
		Action:        action,
		Reason:        reason,
		RequiredLevel: requiredLevel,
		CurrentLevel:  0,
		Status:        models.ApprovalStatusPending,
		ExpiresAt:     &expiresAt,
	}
	if err := s.db.Create(request).Error; err != nil {
		return nil, err
	}

	logger.GetLogger().Infof("用户 %d 发起数据权限审批 %s: %s %s %s",
		applicantID, request.RequestNo, resourceLevel, resourceID, action)
	return request, nil
}

// Approve 通过一级审批
//
// 终审通过时下发24小时临时授权并把授权ID回写到申请。
func (s *ApprovalService) Approve(requestID, tenantID, approverID uint, comment string) (*models.ApprovalRequest, error) {
	request, err := s.loadPending(requestID, tenantID)
	if err != nil {
		return nil, err
	}
	if request.ApplicantID == approverID {
		return nil, fmt.Errorf("不允许审批自己的申请")
	}

	nextLevel := request.CurrentLevel + 1
	finalApproved := nextLevel >= request.RequiredLevel
	err = s.db.Transaction(func(tx *gorm.DB) error {
		record := &models.ApprovalRecord{
			RequestID:  request.ID,
			Level:      nextLevel,
			ApproverID: approverID,
			Decision:   models.ApprovalDecisionApprove,
			Comment:    comment,
		}
		if err := tx.Create(record).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"current_level": nextLevel}
		if finalApproved {
			updates["status"] = models.ApprovalStatusApproved
		}
		return tx.Model(request).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	request.CurrentLevel = nextLevel

	// 终审通过：下发临时授权。授权失败不回滚审批结论，记日志人工介入。
	if finalApproved {
		request.Status = models.ApprovalStatusApproved
		grant, err := s.issueGrant(request, approverID)
		if err != nil {
			logger.GetLogger().WithError(err).Errorf("审批 %s 通过但临时授权下发失败", request.RequestNo)
			return request, nil
		}
		s.db.Model(request).Update("grant_id", grant.ID)
		request.GrantID = &grant.ID
	}
	return request, nil
}

// Reject 驳回申请，任意一级驳回即终态
func (s *ApprovalService) Reject(requestID, tenantID, approverID uint, comment string) (*models.ApprovalRequest, error) {
	request, err := s.loadPending(requestID, tenantID)
	if err != nil {
		return nil, err
	}
	if request.ApplicantID == approverID {
		return nil, fmt.Errorf("不允许审批自己的申请")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		record := &models.ApprovalRecord{
			RequestID:  request.ID,
			Level:      request.CurrentLevel + 1,
			ApproverID: approverID,
			Decision:   models.ApprovalDecisionReject,
			Comment:    comment,
		}
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Model(request).Update("status", models.ApprovalStatusRejected).Error
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// Cancel 申请人撤回pending申请
func (s *ApprovalService) Cancel(requestID, tenantID, applicantID uint) error {
	result := s.db.Model(&models.ApprovalRequest{}).
		Where("id = ? AND tenant_id = ? AND applicant_id = ? AND status = ?",
			requestID, tenantID, applicantID, models.ApprovalStatusPending).
		Update("status", models.ApprovalStatusCancelled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("申请不存在或不可撤回")
	}
	return nil
}

// GetByID 查询申请详情（含审批记录）
func (s *ApprovalService) GetByID(requestID, tenantID uint) (*models.ApprovalRequest, error) {
	var request models.ApprovalRequest
	err := s.db.Preload("Records").
		Where("id = ? AND tenant_id = ?", requestID, tenantID).First(&request).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("审批申请不存在")
		}
		return nil, err
	}
	return &request, nil
}

// List 分页查询审批申请
func (s *ApprovalService) List(tenantID uint, status string, applicantID uint, page, pageSize int) ([]models.ApprovalRequest, int64, error) {
	query := s.db.Model(&models.ApprovalRequest{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if applicantID != 0 {
		query = query.Where("applicant_id = ?", applicantID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []models.ApprovalRequest
	offset := (page - 1) * pageSize
	err := query.Order("id DESC").Offset(offset).Limit(pageSize).Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// loadPending 加载pending状态的申请，过期的顺手标记取消
func (s *ApprovalService) loadPending(requestID, tenantID uint) (*models.ApprovalRequest, error) {
	var request models.ApprovalRequest
	err := s.db.Where("id = ? AND tenant_id = ?", requestID, tenantID).First(&request).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("审批申请不存在")
		}
		return nil, err
	}
	if request.Status != models.ApprovalStatusPending {
		return nil, fmt.Errorf("申请已处于%s状态", request.Status)
	}
	if request.ExpiresAt != nil && request.ExpiresAt.Before(time.Now()) {
		s.db.Model(&request).Update("status", models.ApprovalStatusCancelled)
		return nil, fmt.Errorf("申请已过期")
	}
	return &request, nil
}

// issueGrant 终审通过后下发临时授权
func (s *ApprovalService) issueGrant(request *models.ApprovalRequest, approverID uint) (*models.PermissionGrant, error) {
	resource := request.ResourceLevel + ":" + request.ResourceID
	if request.ResourceLevel == models.ResourceLevelField && request.FieldName != nil {
		resource = fmt.Sprintf("field:%s:%s", request.DatasetID, *request.FieldName)
	}
	expiresAt := time.Now().Add(approvalGrantDuration)
	return s.permissions.GrantTemporaryPermission(
		request.TenantID, request.ApplicantID, resource, request.Action, approverID, expiresAt)
}
