package services

import (
	"adgp/internal/models"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ConfigHistoryService 配置变更历史服务
//
// 每次配置写操作在变更前记录完整快照；回滚把历史快照作为一次
// 更新写回，回滚本身也会留下一条change_type=rollback的历史。
// 快照中的加密字段保持密文，回滚过程不解密。
type ConfigHistoryService struct {
	db *gorm.DB
}

// NewConfigHistoryService 创建配置历史服务
func NewConfigHistoryService(db *gorm.DB) *ConfigHistoryService {
	return &ConfigHistoryService{db: db}
}

// Record 记录一条配置变更历史（变更前快照）
//
// 版本号按(tenant, config_type, config_id)逐条递增。
// 在配置写事务内调用，tx为事务句柄。
func (s *ConfigHistoryService) Record(tx *gorm.DB, tenantID uint, configType string, configID uint, changeType string, snapshot interface{}, changedBy uint, remark string) error {
	if !models.IsValidConfigType(configType) {
		return fmt.Errorf("非法的配置类型: %s", configType)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("快照序列化失败: %v", err)
	}

	var maxVersion int
	err = tx.Model(&models.ConfigHistory{}).
		Where("tenant_id = ? AND config_type = ? AND config_id = ?", tenantID, configType, configID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error
	if err != nil {
		return err
	}

	history := &models.ConfigHistory{
		TenantID:   tenantID,
		ConfigType: configType,
		ConfigID:   configID,
		Version:    maxVersion + 1,
		ChangeType: changeType,
		Snapshot:   datatypes.JSON(data),
		ChangedBy:  changedBy,
		Remark:     remark,
	}
	return tx.Create(history).Error
}

// List 分页查询某配置的变更历史（新版本在前）
func (s *ConfigHistoryService) List(tenantID uint, configType string, configID uint, page, pageSize int) ([]models.ConfigHistory, int64, error) {
	query := s.db.Model(&models.ConfigHistory{}).Where("tenant_id = ?", tenantID)
	if configType != "" {
		query = query.Where("config_type = ?", configType)
	}
	if configID != 0 {
		query = query.Where("config_id = ?", configID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var histories []models.ConfigHistory
	offset := (page - 1) * pageSize
	err := query.Order("version DESC").Offset(offset).Limit(pageSize).Find(&histories).Error
	if err != nil {
		return nil, 0, err
	}
	return histories, total, nil
}

// GetVersion 查询某配置的指定版本
func (s *ConfigHistoryService) GetVersion(tenantID uint, configType string, configID uint, version int) (*models.ConfigHistory, error) {
	var history models.ConfigHistory
	err := s.db.Where("tenant_id = ? AND config_type = ? AND config_id = ? AND version = ?",
		tenantID, configType, configID, version).First(&history).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("历史版本不存在")
		}
		return nil, err
	}
	return &history, nil
}

// Rollback 回滚配置到指定历史版本
//
// 把历史快照作为更新写回配置表，并记录一条rollback历史。
// 快照里的加密字段原样写回。
func (s *ConfigHistoryService) Rollback(tenantID uint, configType string, configID uint, version int, operatorID uint) error {
	history, err := s.GetVersion(tenantID, configType, configID, version)
	if err != nil {
		return err
	}

	model, err := configModelFor(configType)
	if err != nil {
		return err
	}

	var snapshot map[string]interface{}
	if err := json.Unmarshal(history.Snapshot, &snapshot); err != nil {
		return fmt.Errorf("快照解析失败: %v", err)
	}
	// 主键与审计字段不回写
	delete(snapshot, "id")
	delete(snapshot, "created_at")
	delete(snapshot, "updated_at")
	delete(snapshot, "tenant_id")

	return s.db.Transaction(func(tx *gorm.DB) error {
		// 回滚前先留存当前状态
		current, err := loadConfigRecord(tx, configType, tenantID, configID)
		if err != nil {
			return err
		}
		remark := fmt.Sprintf("回滚到版本%d", version)
		if err := s.Record(tx, tenantID, configType, configID, models.ChangeTypeRollback, current, operatorID, remark); err != nil {
			return err
		}

		result := tx.Model(model).
			Where("id = ? AND tenant_id = ?", configID, tenantID).
			Updates(snapshot)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("配置不存在")
		}
		return nil
	})
}

// configModelFor 返回配置类型对应的模型
func configModelFor(configType string) (interface{}, error) {
	switch configType {
	case models.ConfigTypeLLM:
		return &models.LLMConfig{}, nil
	case models.ConfigTypeDatabase:
		return &models.DatabaseConfig{}, nil
	case models.ConfigTypeSync:
		return &models.SyncStrategy{}, nil
	case models.ConfigTypeTool:
		return &models.ToolConfig{}, nil
	default:
		return nil, fmt.Errorf("非法的配置类型: %s", configType)
	}
}

// loadConfigRecord 读取配置当前记录
func loadConfigRecord(tx *gorm.DB, configType string, tenantID, configID uint) (interface{}, error) {
	model, err := configModelFor(configType)
	if err != nil {
		return nil, err
	}
	err = tx.Where("id = ? AND tenant_id = ?", configID, tenantID).First(model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("配置不存在")
		}
		return nil, err
	}
	return model, nil
}
