package services

import (
	"adgp/internal/models"
	"fmt"

	"gorm.io/gorm"
)

// ClassificationService 数据分级标注服务
type ClassificationService struct {
	db *gorm.DB
}

// NewClassificationService 创建数据分级标注服务
func NewClassificationService(db *gorm.DB) *ClassificationService {
	return &ClassificationService{db: db}
}

// Create 创建分级标注
func (s *ClassificationService) Create(classification *models.ResourceClassification) error {
	if classification.TenantID == 0 {
		return fmt.Errorf("租户ID不能为空")
	}
	if classification.DatasetID == "" {
		return fmt.Errorf("数据集ID不能为空")
	}
	if !models.IsValidSensitivity(classification.Level) {
		return fmt.Errorf("非法的敏感级别: %s", classification.Level)
	}

	// 同一（数据集，字段）只允许一条标注
	query := s.db.Model(&models.ResourceClassification{}).
		Where("tenant_id = ? AND dataset_id = ?", classification.TenantID, classification.DatasetID)
	if classification.FieldName != nil {
		query = query.Where("field_name = ?", *classification.FieldName)
	} else {
		query = query.Where("field_name IS NULL")
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("该资源已有分级标注，请使用更新接口")
	}

	return s.db.Create(classification).Error
}

// Update 更新分级标注的级别与说明
func (s *ClassificationService) Update(id, tenantID uint, level, notes string, classifiedBy uint) (*models.ResourceClassification, error) {
	if !models.IsValidSensitivity(level) {
		return nil, fmt.Errorf("非法的敏感级别: %s", level)
	}

	var classification models.ResourceClassification
	if err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&classification).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("分级标注不存在")
		}
		return nil, err
	}

	classification.Level = level
	classification.Notes = notes
	classification.ClassifiedBy = classifiedBy
	if err := s.db.Save(&classification).Error; err != nil {
		return nil, err
	}
	return &classification, nil
}

// Delete 删除分级标注
func (s *ClassificationService) Delete(id, tenantID uint) error {
	result := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.ResourceClassification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("分级标注不存在")
	}
	return nil
}

// GetByID 查询单条分级标注
func (s *ClassificationService) GetByID(id, tenantID uint) (*models.ResourceClassification, error) {
	var classification models.ResourceClassification
	err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&classification).Error
	if err != nil {
		return nil, err
	}
	return &classification, nil
}

// List 分页查询分级标注
func (s *ClassificationService) List(tenantID uint, datasetID, level string, page, pageSize int) ([]models.ResourceClassification, int64, error) {
	query := s.db.Model(&models.ResourceClassification{}).Where("tenant_id = ?", tenantID)

	if datasetID != "" {
		query = query.Where("dataset_id = ?", datasetID)
	}
	if level != "" {
		query = query.Where("level = ?", level)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var classifications []models.ResourceClassification
	offset := (page - 1) * pageSize
	err := query.Order("dataset_id, field_name").Offset(offset).Limit(pageSize).Find(&classifications).Error
	if err != nil {
		return nil, 0, err
	}
	return classifications, total, nil
}
