package services

import (
	"adgp/internal/models"
	"adgp/pkg/crypto"
	"adgp/pkg/logger"
	"fmt"

	"gorm.io/gorm"
)

// MaskingService 数据脱敏服务
//
// 按脱敏规则处理数据行；敏感级别达到confidential且没有显式规则的
// 字段做全量脱敏兜底。
type MaskingService struct {
	db              *gorm.DB
	classifications ClassificationStore
}

// NewMaskingService 创建数据脱敏服务
func NewMaskingService(db *gorm.DB, classifications ClassificationStore) *MaskingService {
	return &MaskingService{db: db, classifications: classifications}
}

// ========== 规则CRUD ==========

// CreateRule 创建脱敏规则
func (s *MaskingService) CreateRule(rule *models.MaskingRule) error {
	if rule.TenantID == 0 {
		return fmt.Errorf("租户ID不能为空")
	}
	if rule.DatasetID == "" || rule.FieldName == "" {
		return fmt.Errorf("数据集ID和字段名不能为空")
	}
	if !models.IsValidMaskStrategy(rule.Strategy) {
		return fmt.Errorf("非法的脱敏策略: %s", rule.Strategy)
	}
	if rule.Strategy == models.MaskStrategyCustom && rule.Pattern == "" {
		return fmt.Errorf("custom策略必须指定正则")
	}
	return s.db.Create(rule).Error
}

// UpdateRule 更新脱敏规则
func (s *MaskingService) UpdateRule(id, tenantID uint, updates map[string]interface{}) error {
	if strategy, ok := updates["strategy"]; ok {
		if str, ok := strategy.(string); !ok || !models.IsValidMaskStrategy(str) {
			return fmt.Errorf("非法的脱敏策略")
		}
	}

	result := s.db.Model(&models.MaskingRule{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("脱敏规则不存在")
	}
	return nil
}

// DeleteRule 删除脱敏规则
func (s *MaskingService) DeleteRule(id, tenantID uint) error {
	result := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&models.MaskingRule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("脱敏规则不存在")
	}
	return nil
}

// ListRules 分页查询脱敏规则
func (s *MaskingService) ListRules(tenantID uint, datasetID string, page, pageSize int) ([]models.MaskingRule, int64, error) {
	query := s.db.Model(&models.MaskingRule{}).Where("tenant_id = ?", tenantID)
	if datasetID != "" {
		query = query.Where("dataset_id = ?", datasetID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rules []models.MaskingRule
	offset := (page - 1) * pageSize
	err := query.Order("dataset_id, field_name").Offset(offset).Limit(pageSize).Find(&rules).Error
	if err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

// ========== 脱敏执行 ==========

// ApplyRow 对一行数据按规则脱敏
//
// 规则显式命中按策略处理；无规则但字段级敏感级别达到审批阈值的
// 字段做全量脱敏。非字符串值不处理。
func (s *MaskingService) ApplyRow(tenantID uint, datasetID string, row map[string]interface{}) (map[string]interface{}, error) {
	var rules []models.MaskingRule
	err := s.db.Where("tenant_id = ? AND dataset_id = ? AND enabled = ?", tenantID, datasetID, true).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}

	ruleByField := make(map[string]*models.MaskingRule, len(rules))
	for i := range rules {
		ruleByField[rules[i].FieldName] = &rules[i]
	}

	masked := make(map[string]interface{}, len(row))
	for field, value := range row {
		strVal, isStr := value.(string)
		if !isStr {
			masked[field] = value
			continue
		}

		if rule, ok := ruleByField[field]; ok {
			masked[field] = s.applyStrategy(rule, strVal)
			continue
		}

		// 无显式规则：高敏感字段兜底全量脱敏
		level, err := s.classifications.GetLevel(tenantID, datasetID, &field)
		if err != nil {
			return nil, err
		}
		if models.RequiresApprovalLevel(level) {
			masked[field] = crypto.MaskFull(strVal)
		} else {
			masked[field] = strVal
		}
	}
	return masked, nil
}

// applyStrategy 按策略脱敏单个值
func (s *MaskingService) applyStrategy(rule *models.MaskingRule, value string) string {
	switch rule.Strategy {
	case models.MaskStrategyPhone:
		return crypto.MaskPhone(value)
	case models.MaskStrategyEmail:
		return crypto.MaskEmail(value)
	case models.MaskStrategyIDCard:
		return crypto.MaskIDCard(value)
	case models.MaskStrategyBankCard:
		return crypto.MaskBankCard(value)
	case models.MaskStrategyName:
		return crypto.MaskName(value)
	case models.MaskStrategyCustom:
		masked, err := crypto.MaskCustom(value, rule.Pattern, rule.Replacement)
		if err != nil {
			logger.GetLogger().Warnf("脱敏规则 %d 正则错误，退化为全量脱敏: %v", rule.ID, err)
			return crypto.MaskFull(value)
		}
		return masked
	default:
		return crypto.MaskFull(value)
	}
}
