package services

import (
	"adgp/internal/models"
	"adgp/pkg/crypto"
	"fmt"

	"gorm.io/gorm"
)

// ToolConfigService 第三方工具配置服务
type ToolConfigService struct {
	db        *gorm.DB
	encryptor *crypto.Encryptor
	history   *ConfigHistoryService
}

// NewToolConfigService 创建工具配置服务
func NewToolConfigService(db *gorm.DB, encryptor *crypto.Encryptor, history *ConfigHistoryService) *ToolConfigService {
	return &ToolConfigService{db: db, encryptor: encryptor, history: history}
}

// Create 创建工具配置
func (s *ToolConfigService) Create(config *models.ToolConfig, operatorID uint) error {
	if config.TenantID == 0 {
		return fmt.Errorf("租户ID不能为空")
	}
	if !models.IsValidToolType(config.ToolType) {
		return fmt.Errorf("非法的工具类型: %s", config.ToolType)
	}
	if config.Name == "" {
		return fmt.Errorf("配置名称不能为空")
	}

	var count int64
	s.db.Model(&models.ToolConfig{}).
		Where("tenant_id = ? AND name = ?", config.TenantID, config.Name).
		Count(&count)
	if count > 0 {
		return fmt.Errorf("配置名称已存在")
	}

	if config.Secret != "" {
		encrypted, err := s.encryptor.Encrypt(config.Secret)
		if err != nil {
			return fmt.Errorf("密钥加密失败: %v", err)
		}
		config.Secret = encrypted
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(config).Error; err != nil {
			return err
		}
		return s.history.Record(tx, config.TenantID, models.ConfigTypeTool, config.ID,
			models.ChangeTypeCreate, config, operatorID, "创建工具配置")
	})
}

// Update 更新工具配置
func (s *ToolConfigService) Update(id, tenantID uint, updates map[string]interface{}, operatorID uint) error {
	var config models.ToolConfig
	if err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&config).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("工具配置不存在")
		}
		return err
	}

	if toolType, ok := updates["tool_type"]; ok {
		if str, ok := toolType.(string); !ok || !models.IsValidToolType(str) {
			return fmt.Errorf("非法的工具类型")
		}
	}
	if secret, ok := updates["secret"]; ok {
		secretStr, _ := secret.(string)
		if secretStr == "" {
			delete(updates, "secret")
		} else {
			encrypted, err := s.encryptor.Encrypt(secretStr)
			if err != nil {
				return fmt.Errorf("密钥加密失败: %v", err)
			}
			updates["secret"] = encrypted
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.history.Record(tx, tenantID, models.ConfigTypeTool, config.ID,
			models.ChangeTypeUpdate, &config, operatorID, "更新工具配置"); err != nil {
			return err
		}
		return tx.Model(&config).Updates(updates).Error
	})
}

// Delete 删除工具配置
func (s *ToolConfigService) Delete(id, tenantID, operatorID uint) error {
	var config models.ToolConfig
	if err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&config).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("工具配置不存在")
		}
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.history.Record(tx, tenantID, models.ConfigTypeTool, config.ID,
			models.ChangeTypeDelete, &config, operatorID, "删除工具配置"); err != nil {
			return err
		}
		return tx.Delete(&config).Error
	})
}

// GetByID 查询工具配置详情（密钥脱敏显示）
func (s *ToolConfigService) GetByID(id, tenantID uint) (*models.ToolConfig, error) {
	var config models.ToolConfig
	err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&config).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("工具配置不存在")
		}
		return nil, err
	}
	s.maskSecret(&config)
	return &config, nil
}

// List 分页查询工具配置
func (s *ToolConfigService) List(tenantID uint, toolType string, page, pageSize int) ([]models.ToolConfig, int64, error) {
	query := s.db.Model(&models.ToolConfig{}).Where("tenant_id = ?", tenantID)
	if toolType != "" {
		query = query.Where("tool_type = ?", toolType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var configs []models.ToolConfig
	offset := (page - 1) * pageSize
	err := query.Order("id DESC").Offset(offset).Limit(pageSize).Find(&configs).Error
	if err != nil {
		return nil, 0, err
	}
	for i := range configs {
		s.maskSecret(&configs[i])
	}
	return configs, total, nil
}

func (s *ToolConfigService) maskSecret(config *models.ToolConfig) {
	if config.Secret == "" {
		return
	}
	plain, err := s.encryptor.Decrypt(config.Secret)
	if err != nil {
		config.Secret = ""
		return
	}
	config.Secret = crypto.MaskSecret(plain)
}
