package services

import (
	"adgp/internal/models"
	"fmt"
	"unicode/utf8"

	"gorm.io/gorm"
)

// TenantService 租户服务
type TenantService struct {
	db *gorm.DB
}

// TenantStats 租户统计信息
type TenantStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

// NewTenantService 创建租户服务
func NewTenantService(db *gorm.DB) *TenantService {
	return &TenantService{db: db}
}

// Create 创建租户
func (s *TenantService) Create(name, code string) (*models.Tenant, error) {
	if err := s.ValidateCreateParams(name, code); err != nil {
		return nil, err
	}

	var count int64
	s.db.Model(&models.Tenant{}).Where("code = ?", code).Count(&count)
	if count > 0 {
		return nil, gorm.ErrDuplicatedKey
	}

	tenant := &models.Tenant{
		Name:   name,
		Code:   code,
		Status: models.TenantStatusActive,
	}
	err := s.db.Create(tenant).Error
	return tenant, err
}

// GetByID 根据ID获取租户
func (s *TenantService) GetByID(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.First(&tenant, id).Error
	return &tenant, err
}

// GetWithFiltersAndPage 组合查询（分页版本）
func (s *TenantService) GetWithFiltersAndPage(status, keyword string, page, pageSize int) ([]*models.Tenant, int64, error) {
	var tenants []*models.Tenant
	var total int64

	query := s.db.Model(&models.Tenant{})

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword != "" {
		searchPattern := fmt.Sprintf("%%%s%%", keyword)
		query = query.Where("name LIKE ? OR code LIKE ?", searchPattern, searchPattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Find(&tenants).Error
	if err != nil {
		return nil, 0, err
	}
	return tenants, total, nil
}

// GetAllActive 获取所有激活的租户（附成员数）
func (s *TenantService) GetAllActive() ([]*models.Tenant, error) {
	var tenants []*models.Tenant
	err := s.db.Model(&models.Tenant{}).
		Where("status = ?", models.TenantStatusActive).
		Order("created_at DESC").
		Find(&tenants).Error
	if err != nil {
		return nil, err
	}

	for i := range tenants {
		var userCount int64
		s.db.Model(&models.UserTenant{}).Where("tenant_id = ?", tenants[i].ID).Count(&userCount)
		tenants[i].UserCount = int(userCount)
	}
	return tenants, nil
}

// Update 更新租户
func (s *TenantService) Update(id uint, name, status string) (*models.Tenant, error) {
	if !s.ValidateName(name) {
		return nil, fmt.Errorf("租户名称长度必须在2-50个字符之间")
	}
	if !s.IsValidStatus(status) {
		return nil, fmt.Errorf("状态只能是active或inactive")
	}

	var tenant models.Tenant
	err := s.db.First(&tenant, id).Error
	if err != nil {
		return nil, err
	}

	tenant.Name = name
	tenant.Status = status

	err = s.db.Save(&tenant).Error
	return &tenant, err
}

// Delete 删除租户
func (s *TenantService) Delete(id uint) error {
	// 还有成员的租户不允许删除
	var memberCount int64
	s.db.Model(&models.UserTenant{}).Where("tenant_id = ?", id).Count(&memberCount)
	if memberCount > 0 {
		return fmt.Errorf("租户还有%d个成员，无法删除", memberCount)
	}
	return s.db.Delete(&models.Tenant{}, id).Error
}

// Activate 激活租户
func (s *TenantService) Activate(id uint) (*models.Tenant, error) {
	return s.setStatus(id, models.TenantStatusActive)
}

// Deactivate 停用租户
func (s *TenantService) Deactivate(id uint) (*models.Tenant, error) {
	return s.setStatus(id, models.TenantStatusInactive)
}

func (s *TenantService) setStatus(id uint, status string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.First(&tenant, id).Error
	if err != nil {
		return nil, err
	}
	tenant.Status = status
	err = s.db.Save(&tenant).Error
	return &tenant, err
}

// GetStats 获取租户统计
func (s *TenantService) GetStats() (*TenantStats, error) {
	stats := &TenantStats{}

	s.db.Model(&models.Tenant{}).Count(&stats.Total)
	s.db.Model(&models.Tenant{}).Where("status = ?", models.TenantStatusActive).Count(&stats.Active)
	s.db.Model(&models.Tenant{}).Where("status = ?", models.TenantStatusInactive).Count(&stats.Inactive)

	return stats, nil
}

// IsValidStatus 检查租户状态是否有效
func (s *TenantService) IsValidStatus(status string) bool {
	switch status {
	case models.TenantStatusActive, models.TenantStatusInactive:
		return true
	default:
		return false
	}
}

// ========== 验证相关方法 ==========

// ValidateName 验证租户名称
func (s *TenantService) ValidateName(name string) bool {
	runeCount := utf8.RuneCountInString(name)
	return runeCount >= 2 && runeCount <= 50
}

// ValidateCode 验证租户代码
func (s *TenantService) ValidateCode(code string) bool {
	if len(code) < 2 || len(code) > 20 {
		return false
	}
	for _, r := range code {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// ValidateCreateParams 验证创建租户的参数
func (s *TenantService) ValidateCreateParams(name, code string) error {
	if !s.ValidateName(name) {
		return fmt.Errorf("租户名称长度必须在2-50个字符之间")
	}
	if !s.ValidateCode(code) {
		return fmt.Errorf("租户代码长度必须在2-20个字符之间，且只能包含字母和数字")
	}
	return nil
}
