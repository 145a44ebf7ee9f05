package services

import (
	"adgp/internal/models"
	"adgp/pkg/crypto"
	"fmt"

	"gorm.io/gorm"
)

// DatabaseConfigService 数据库连接配置服务
//
// 密码加密存储，任何查询响应都不回传密码；写操作记录历史快照。
type DatabaseConfigService struct {
	db        *gorm.DB
	encryptor *crypto.Encryptor
	history   *ConfigHistoryService
}

// NewDatabaseConfigService 创建数据库配置服务
func NewDatabaseConfigService(db *gorm.DB, encryptor *crypto.Encryptor, history *ConfigHistoryService) *DatabaseConfigService {
	return &DatabaseConfigService{db: db, encryptor: encryptor, history: history}
}

// Create 创建数据库配置
func (s *DatabaseConfigService) Create(config *models.DatabaseConfig, operatorID uint) error {
	if config.TenantID == 0 {
		return fmt.Errorf("租户ID不能为空")
	}
	if !models.IsValidDBType(config.DBType) {
		return fmt.Errorf("非法的数据库类型: %s", config.DBType)
	}
	if config.Name == "" || config.Host == "" || config.Port == 0 {
		return fmt.Errorf("配置名称、主机和端口不能为空")
	}

	var count int64
	s.db.Model(&models.DatabaseConfig{}).
		Where("tenant_id = ? AND name = ?", config.TenantID, config.Name).
		Count(&count)
	if count > 0 {
		return fmt.Errorf("配置名称已存在")
	}

	if config.Password != "" {
		encrypted, err := s.encryptor.Encrypt(config.Password)
		if err != nil {
			return fmt.Errorf("密码加密失败: %v", err)
		}
		config.Password = encrypted
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(config).Error; err != nil {
			return err
		}
		return s.history.Record(tx, config.TenantID, models.ConfigTypeDatabase, config.ID,
			models.ChangeTypeCreate, config, operatorID, "创建数据库配置")
	})
}

// Update 更新数据库配置
func (s *DatabaseConfigService) Update(id, tenantID uint, updates map[string]interface{}, operatorID uint) error {
	var config models.DatabaseConfig
	if err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&config).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("数据库配置不存在")
		}
		return err
	}

	if dbType, ok := updates["db_type"]; ok {
		if str, ok := dbType.(string); !ok || !models.IsValidDBType(str) {
			return fmt.Errorf("非法的数据库类型")
		}
	}
	if password, ok := updates["password"]; ok {
		pwdStr, _ := password.(string)
		if pwdStr == "" {
			// 空密码视为不修改
			delete(updates, "password")
		} else {
			encrypted, err := s.encryptor.Encrypt(pwdStr)
			if err != nil {
				return fmt.Errorf("密码加密失败: %v", err)
			}
			updates["password"] = encrypted
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.history.Record(tx, tenantID, models.ConfigTypeDatabase, config.ID,
			models.ChangeTypeUpdate, &config, operatorID, "更新数据库配置"); err != nil {
			return err
		}
		return tx.Model(&config).Updates(updates).Error
	})
}

// Delete 删除数据库配置
func (s *DatabaseConfigService) Delete(id, tenantID, operatorID uint) error {
	var config models.DatabaseConfig
	if err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&config).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("数据库配置不存在")
		}
		return err
	}

	// 被同步策略引用的配置不允许删除
	var refs int64
	s.db.Model(&models.SyncStrategy{}).
		Where("tenant_id = ? AND (source_config_id = ? OR target_config_id = ?)", tenantID, id, id).
		Count(&refs)
	if refs > 0 {
		return fmt.Errorf("配置正被%d个同步策略引用，无法删除", refs)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.history.Record(tx, tenantID, models.ConfigTypeDatabase, config.ID,
			models.ChangeTypeDelete, &config, operatorID, "删除数据库配置"); err != nil {
			return err
		}
		return tx.Delete(&config).Error
	})
}

// GetByID 查询数据库配置详情（不回传密码）
func (s *DatabaseConfigService) GetByID(id, tenantID uint) (*models.DatabaseConfig, error) {
	var config models.DatabaseConfig
	err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&config).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("数据库配置不存在")
		}
		return nil, err
	}
	config.Password = ""
	return &config, nil
}

// List 分页查询数据库配置
func (s *DatabaseConfigService) List(tenantID uint, dbType, status string, page, pageSize int) ([]models.DatabaseConfig, int64, error) {
	query := s.db.Model(&models.DatabaseConfig{}).Where("tenant_id = ?", tenantID)
	if dbType != "" {
		query = query.Where("db_type = ?", dbType)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var configs []models.DatabaseConfig
	offset := (page - 1) * pageSize
	err := query.Order("id DESC").Offset(offset).Limit(pageSize).Find(&configs).Error
	if err != nil {
		return nil, 0, err
	}
	for i := range configs {
		configs[i].Password = ""
	}
	return configs, total, nil
}

// GetPlainPassword 取配置的明文密码，仅供同步执行器内部使用
func (s *DatabaseConfigService) GetPlainPassword(id, tenantID uint) (string, error) {
	var config models.DatabaseConfig
	err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&config).Error
	if err != nil {
		return "", err
	}
	if config.Password == "" {
		return "", nil
	}
	return s.encryptor.Decrypt(config.Password)
}
