package services

import (
	"adgp/internal/models"
	"adgp/pkg/crypto"
	"fmt"

	"gorm.io/gorm"
)

// LLMConfigService LLM模型配置服务
//
// API密钥AES-GCM加密存储，查询响应不回传明文；
// 每次写操作通过ConfigHistoryService记录变更前快照。
type LLMConfigService struct {
	db        *gorm.DB
	encryptor *crypto.Encryptor
	history   *ConfigHistoryService
}

// NewLLMConfigService 创建LLM配置服务
func NewLLMConfigService(db *gorm.DB, encryptor *crypto.Encryptor, history *ConfigHistoryService) *LLMConfigService {
	return &LLMConfigService{db: db, encryptor: encryptor, history: history}
}

// Create 创建LLM配置
func (s *LLMConfigService) Create(config *models.LLMConfig, operatorID uint) error {
	if config.TenantID == 0 {
		return fmt.Errorf("租户ID不能为空")
	}
	if !models.IsValidLLMProvider(config.Provider) {
		return fmt.Errorf("非法的LLM提供商: %s", config.Provider)
	}
	if config.Name == "" || config.ModelName == "" {
		return fmt.Errorf("配置名称和模型名称不能为空")
	}

	// 同租户配置名称唯一
	var count int64
	s.db.Model(&models.LLMConfig{}).
		Where("tenant_id = ? AND name = ?", config.TenantID, config.Name).
		Count(&count)
	if count > 0 {
		return fmt.Errorf("配置名称已存在")
	}

	if config.APIKey != "" {
		encrypted, err := s.encryptor.Encrypt(config.APIKey)
		if err != nil {
			return fmt.Errorf("密钥加密失败: %v", err)
		}
		config.APIKey = encrypted
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		// 新默认配置需要取消旧默认
		if config.IsDefault {
			if err := tx.Model(&models.LLMConfig{}).
				Where("tenant_id = ? AND is_default = ?", config.TenantID, true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(config).Error; err != nil {
			return err
		}
		return s.history.Record(tx, config.TenantID, models.ConfigTypeLLM, config.ID,
			models.ChangeTypeCreate, config, operatorID, "创建LLM配置")
	})
}

// Update 更新LLM配置
func (s *LLMConfigService) Update(id, tenantID uint, updates map[string]interface{}, operatorID uint) error {
	var config models.LLMConfig
	if err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&config).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("LLM配置不存在")
		}
		return err
	}

	if provider, ok := updates["provider"]; ok {
		if str, ok := provider.(string); !ok || !models.IsValidLLMProvider(str) {
			return fmt.Errorf("非法的LLM提供商")
		}
	}
	// 新密钥加密后落库
	if apiKey, ok := updates["api_key"]; ok {
		keyStr, _ := apiKey.(string)
		if keyStr == "" {
			delete(updates, "api_key")
		} else {
			encrypted, err := s.encryptor.Encrypt(keyStr)
			if err != nil {
				return fmt.Errorf("密钥加密失败: %v", err)
			}
			updates["api_key"] = encrypted
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.history.Record(tx, tenantID, models.ConfigTypeLLM, config.ID,
			models.ChangeTypeUpdate, &config, operatorID, "更新LLM配置"); err != nil {
			return err
		}
		if isDefault, ok := updates["is_default"]; ok && isDefault == true {
			if err := tx.Model(&models.LLMConfig{}).
				Where("tenant_id = ? AND is_default = ? AND id != ?", tenantID, true, id).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Model(&config).Updates(updates).Error
	})
}

// Delete 删除LLM配置
func (s *LLMConfigService) Delete(id, tenantID, operatorID uint) error {
	var config models.LLMConfig
	if err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&config).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("LLM配置不存在")
		}
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.history.Record(tx, tenantID, models.ConfigTypeLLM, config.ID,
			models.ChangeTypeDelete, &config, operatorID, "删除LLM配置"); err != nil {
			return err
		}
		return tx.Delete(&config).Error
	})
}

// GetByID 查询LLM配置详情（密钥脱敏显示）
func (s *LLMConfigService) GetByID(id, tenantID uint) (*models.LLMConfig, error) {
	var config models.LLMConfig
	err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&config).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("LLM配置不存在")
		}
		return nil, err
	}
	s.maskAPIKey(&config)
	return &config, nil
}

// List 分页查询LLM配置
func (s *LLMConfigService) List(tenantID uint, provider, status string, page, pageSize int) ([]models.LLMConfig, int64, error) {
	query := s.db.Model(&models.LLMConfig{}).Where("tenant_id = ?", tenantID)
	if provider != "" {
		query = query.Where("provider = ?", provider)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var configs []models.LLMConfig
	offset := (page - 1) * pageSize
	err := query.Order("is_default DESC, id DESC").Offset(offset).Limit(pageSize).Find(&configs).Error
	if err != nil {
		return nil, 0, err
	}
	for i := range configs {
		s.maskAPIKey(&configs[i])
	}
	return configs, total, nil
}

// SetDefault 设置租户默认LLM配置
func (s *LLMConfigService) SetDefault(id, tenantID, operatorID uint) error {
	var config models.LLMConfig
	if err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&config).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("LLM配置不存在")
		}
		return err
	}
	if config.IsDefault {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.history.Record(tx, tenantID, models.ConfigTypeLLM, config.ID,
			models.ChangeTypeUpdate, &config, operatorID, "设为默认配置"); err != nil {
			return err
		}
		if err := tx.Model(&models.LLMConfig{}).
			Where("tenant_id = ? AND is_default = ?", tenantID, true).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&config).Update("is_default", true).Error
	})
}

// TestConnection 测试LLM配置连通性
//
// TODO: 按provider发起一次最小探活请求，目前只校验配置完整性
func (s *LLMConfigService) TestConnection(id, tenantID uint) error {
	var config models.LLMConfig
	if err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&config).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("LLM配置不存在")
		}
		return err
	}
	if config.APIKey == "" && config.Provider != models.LLMProviderOllama {
		return fmt.Errorf("API密钥未配置")
	}
	if _, err := s.encryptor.Decrypt(config.APIKey); config.APIKey != "" && err != nil {
		return fmt.Errorf("API密钥解密失败")
	}
	return nil
}

// maskAPIKey 密钥脱敏：响应里不出现密文或明文
func (s *LLMConfigService) maskAPIKey(config *models.LLMConfig) {
	if config.APIKey == "" {
		return
	}
	plain, err := s.encryptor.Decrypt(config.APIKey)
	if err != nil {
		config.APIKey = ""
		return
	}
	config.APIKey = crypto.MaskSecret(plain)
}
