package services

import (
	"adgp/internal/models"
	"time"

	"gorm.io/gorm"
)

// GrantFilter 授权查询的组合过滤条件
//
// 语义约定：resource_id按目标值或"*"通配匹配；field层级下field_name
// 按目标值、"*"或空匹配；仅返回is_active且未过期（以Now为基准）的授权；
// 授权主体为指定用户或其任一角色。
type GrantFilter struct {
	TenantID      uint
	ResourceLevel string
	ResourceType  string
	ResourceID    string
	FieldName     *string // 仅field层级使用
	Action        string
	UserID        uint
	RoleIDs       []uint
	Now           time.Time
}

// GrantStore 授权持久化协作方
//
// 权限引擎不关心底层是关系库、文档库还是内存实现，只要求保持
// GrantFilter约定的匹配语义。
type GrantStore interface {
	// FindGrants 按组合过滤条件查询候选授权
	FindGrants(filter GrantFilter) ([]models.PermissionGrant, error)
	// CreateGrant 持久化新授权
	CreateGrant(grant *models.PermissionGrant) error
	// DeactivateGrants 软删除匹配的活跃授权，返回受影响条数
	DeactivateGrants(tenantID uint, userID, roleID *uint, resourceType, resourceID, action string, fieldName *string) (int64, error)
	// FindTagGrants 查询主体的带标签活跃授权（ABAC匹配用）
	FindTagGrants(tenantID, userID uint, roleIDs []uint, action string, now time.Time) ([]models.PermissionGrant, error)
}

// ClassificationStore 分级标注协作方
type ClassificationStore interface {
	// GetLevel 查询资源敏感级别；字段级标注优先于数据集级，
	// 无标注时返回internal
	GetLevel(tenantID uint, datasetID string, fieldName *string) (string, error)
}

// RoleStore 用户角色协作方
type RoleStore interface {
	// GetUserRoleIDs 查询用户在租户内的活跃角色（含系统级角色）
	GetUserRoleIDs(tenantID, userID uint) ([]uint, error)
}

// ========== GORM实现 ==========

// GormGrantStore 基于GORM的授权存储
type GormGrantStore struct {
	db *gorm.DB
}

// NewGormGrantStore 创建授权存储
func NewGormGrantStore(db *gorm.DB) *GormGrantStore {
	return &GormGrantStore{db: db}
}

// FindGrants 按组合过滤条件查询候选授权
func (s *GormGrantStore) FindGrants(filter GrantFilter) ([]models.PermissionGrant, error) {
	query := s.db.Model(&models.PermissionGrant{}).
		Where("tenant_id = ? AND is_active = ?", filter.TenantID, true).
		Where("resource_level = ? AND resource_type = ?", filter.ResourceLevel, filter.ResourceType).
		Where("resource_id IN ?", []string{filter.ResourceID, models.WildcardResource}).
		Where("action = ?", filter.Action).
		Where("expires_at IS NULL OR expires_at > ?", filter.Now)

	// 授权主体：用户本人或其任一角色
	if len(filter.RoleIDs) > 0 {
		query = query.Where("(user_id = ? OR role_id IN ?)", filter.UserID, filter.RoleIDs)
	} else {
		query = query.Where("user_id = ?", filter.UserID)
	}

	// field层级：字段名精确、通配或未指定均可匹配
	if filter.ResourceLevel == models.ResourceLevelField && filter.FieldName != nil {
		query = query.Where("(field_name = ? OR field_name = ? OR field_name IS NULL)",
			*filter.FieldName, models.WildcardResource)
	}

	var grants []models.PermissionGrant
	if err := query.Order("id").Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

// CreateGrant 持久化新授权
func (s *GormGrantStore) CreateGrant(grant *models.PermissionGrant) error {
	return s.db.Create(grant).Error
}

// DeactivateGrants 软删除匹配的活跃授权
//
// 授权从不物理删除，保留完整审计痕迹。
func (s *GormGrantStore) DeactivateGrants(tenantID uint, userID, roleID *uint, resourceType, resourceID, action string, fieldName *string) (int64, error) {
	query := s.db.Model(&models.PermissionGrant{}).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Where("resource_type = ? AND resource_id = ? AND action = ?", resourceType, resourceID, action)

	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if roleID != nil {
		query = query.Where("role_id = ?", *roleID)
	}
	if fieldName != nil {
		query = query.Where("field_name = ?", *fieldName)
	}

	result := query.Updates(map[string]interface{}{
		"is_active":  false,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListGrants 管理端分页查询授权记录
//
// 不走GrantFilter的匹配语义，按原始过滤条件返回，含已失效授权
// 供审计查看。
func (s *GormGrantStore) ListGrants(tenantID uint, userID *uint, resourceType, resourceID string, activeOnly bool, page, pageSize int) ([]models.PermissionGrant, int64, error) {
	query := s.db.Model(&models.PermissionGrant{}).Where("tenant_id = ?", tenantID)

	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if resourceType != "" {
		query = query.Where("resource_type = ?", resourceType)
	}
	if resourceID != "" {
		query = query.Where("resource_id = ?", resourceID)
	}
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var grants []models.PermissionGrant
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&grants).Error; err != nil {
		return nil, 0, err
	}
	return grants, total, nil
}

// FindTagGrants 查询主体的带标签活跃授权
func (s *GormGrantStore) FindTagGrants(tenantID, userID uint, roleIDs []uint, action string, now time.Time) ([]models.PermissionGrant, error) {
	query := s.db.Model(&models.PermissionGrant{}).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Where("action = ?", action).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Where("tags IS NOT NULL")

	if len(roleIDs) > 0 {
		query = query.Where("(user_id = ? OR role_id IN ?)", userID, roleIDs)
	} else {
		query = query.Where("user_id = ?", userID)
	}

	var grants []models.PermissionGrant
	if err := query.Order("id").Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

// GormClassificationStore 基于GORM的分级标注查询
type GormClassificationStore struct {
	db *gorm.DB
}

// NewGormClassificationStore 创建分级标注查询
func NewGormClassificationStore(db *gorm.DB) *GormClassificationStore {
	return &GormClassificationStore{db: db}
}

// GetLevel 查询资源敏感级别
func (s *GormClassificationStore) GetLevel(tenantID uint, datasetID string, fieldName *string) (string, error) {
	var classification models.ResourceClassification

	// 字段级标注优先
	if fieldName != nil {
		err := s.db.Where("tenant_id = ? AND dataset_id = ? AND field_name = ?",
			tenantID, datasetID, *fieldName).First(&classification).Error
		if err == nil {
			return classification.Level, nil
		}
		if err != gorm.ErrRecordNotFound {
			return "", err
		}
	}

	err := s.db.Where("tenant_id = ? AND dataset_id = ? AND field_name IS NULL",
		tenantID, datasetID).First(&classification).Error
	if err == gorm.ErrRecordNotFound {
		// 未标注的资源默认internal
		return models.SensitivityInternal, nil
	}
	if err != nil {
		return "", err
	}
	return classification.Level, nil
}

// GormRoleStore 基于GORM的用户角色查询
type GormRoleStore struct {
	db *gorm.DB
}

// NewGormRoleStore 创建用户角色查询
func NewGormRoleStore(db *gorm.DB) *GormRoleStore {
	return &GormRoleStore{db: db}
}

// GetUserRoleIDs 查询用户在租户内的活跃角色
func (s *GormRoleStore) GetUserRoleIDs(tenantID, userID uint) ([]uint, error) {
	var roleIDs []uint
	err := s.db.Model(&models.Role{}).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Where("roles.tenant_id IN ?", []uint{0, tenantID}).
		Where("roles.status = ?", models.RoleStatusActive).
		Pluck("roles.id", &roleIDs).Error
	if err != nil {
		return nil, err
	}
	return roleIDs, nil
}
