package services

import (
	"adgp/internal/models"

	"gorm.io/gorm"
)

// PermissionService 菜单权限服务
type PermissionService struct {
	db *gorm.DB
}

// NewPermissionService 创建菜单权限服务
func NewPermissionService(db *gorm.DB) *PermissionService {
	return &PermissionService{db: db}
}

// GetWithPage 分页获取权限
func (s *PermissionService) GetWithPage(module string, page, pageSize int) ([]*models.Permission, int64, error) {
	var permissions []*models.Permission
	var total int64

	query := s.db.Model(&models.Permission{})
	if module != "" {
		query = query.Where("module = ?", module)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Find(&permissions).Error
	if err != nil {
		return nil, 0, err
	}
	return permissions, total, nil
}

// GetByID 根据ID获取权限
func (s *PermissionService) GetByID(id uint) (*models.Permission, error) {
	var permission models.Permission
	err := s.db.First(&permission, id).Error
	return &permission, err
}

// Create 创建权限（系统级操作，一般由种子数据预设）
func (s *PermissionService) Create(code, name, description, module, action string) (*models.Permission, error) {
	permission := &models.Permission{
		Code:        code,
		Name:        name,
		Description: description,
		Module:      module,
		Action:      action,
	}
	err := s.db.Create(permission).Error
	return permission, err
}
