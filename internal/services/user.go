package services

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"adgp/internal/models"

	"gorm.io/gorm"
)

// UserService 用户服务
//
// 用户与租户多对多，通过UserTenant关联；租户管理员身份按租户记录。
type UserService struct {
	db *gorm.DB
}

// UserStats 用户统计信息
type UserStats struct {
	Total          int64 `json:"total"`
	Active         int64 `json:"active"`
	Inactive       int64 `json:"inactive"`
	Locked         int64 `json:"locked"`
	PlatformAdmins int64 `json:"platform_admins"`
}

// NewUserService 创建用户服务
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// ========== 基础CRUD方法 ==========

// Create 创建用户并加入租户
func (s *UserService) Create(tenantID uint, username, email, password, name string, phone *string, isTenantAdmin bool) (*models.User, error) {
	if err := s.ValidateCreateParams(username, email, password, name); err != nil {
		return nil, err
	}

	var tenantCount int64
	s.db.Model(&models.Tenant{}).Where("id = ?", tenantID).Count(&tenantCount)
	if tenantCount == 0 {
		return nil, fmt.Errorf("租户不存在")
	}

	var usernameCount int64
	s.db.Model(&models.User{}).Where("username = ?", username).Count(&usernameCount)
	if usernameCount > 0 {
		return nil, fmt.Errorf("用户名已存在")
	}

	var emailCount int64
	s.db.Model(&models.User{}).Where("email = ?", email).Count(&emailCount)
	if emailCount > 0 {
		return nil, fmt.Errorf("邮箱已存在")
	}

	user := &models.User{
		Username:        username,
		Email:           email,
		Name:            name,
		Phone:           phone,
		Status:          models.UserStatusActive,
		IsPlatformAdmin: false,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, fmt.Errorf("密码加密失败: %v", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		membership := &models.UserTenant{
			UserID:        user.ID,
			TenantID:      tenantID,
			IsTenantAdmin: isTenantAdmin,
			JoinedAt:      time.Now(),
		}
		return tx.Create(membership).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByID 根据ID获取用户
func (s *UserService) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := s.db.Preload("Tenants").First(&user, id).Error
	return &user, err
}

// GetByUsername 根据用户名获取用户
func (s *UserService) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	return &user, err
}

// GetWithFiltersAndPage 组合查询（分页版本）
func (s *UserService) GetWithFiltersAndPage(tenantID *uint, status, keyword string, page, pageSize int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	query := s.db.Model(&models.User{})

	if tenantID != nil {
		query = query.Where("id IN (?)",
			s.db.Model(&models.UserTenant{}).Select("user_id").Where("tenant_id = ?", *tenantID))
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword != "" {
		searchPattern := fmt.Sprintf("%%%s%%", keyword)
		query = query.Where("username LIKE ? OR email LIKE ? OR name LIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update 更新用户
func (s *UserService) Update(id uint, name, email string, phone *string, status string) (*models.User, error) {
	if err := s.ValidateUpdateParams(name, email, status); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}

	if user.Email != email {
		var emailCount int64
		s.db.Model(&models.User{}).Where("email = ? AND id != ?", email, id).Count(&emailCount)
		if emailCount > 0 {
			return nil, fmt.Errorf("邮箱已存在")
		}
	}

	user.Name = name
	user.Email = email
	user.Phone = phone
	user.Status = status

	err = s.db.Save(&user).Error
	return &user, err
}

// Delete 删除用户
func (s *UserService) Delete(id uint) error {
	return s.db.Delete(&models.User{}, id).Error
}

// ========== 快捷操作方法 ==========

// Activate 激活用户
func (s *UserService) Activate(id uint) (*models.User, error) {
	return s.setStatus(id, models.UserStatusActive)
}

// Deactivate 停用用户
func (s *UserService) Deactivate(id uint) (*models.User, error) {
	return s.setStatus(id, models.UserStatusInactive)
}

// Lock 锁定用户
func (s *UserService) Lock(id uint) (*models.User, error) {
	return s.setStatus(id, models.UserStatusLocked)
}

func (s *UserService) setStatus(id uint, status string) (*models.User, error) {
	var user models.User
	err := s.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	user.Status = status
	err = s.db.Save(&user).Error
	return &user, err
}

// ResetPassword 重置密码
func (s *UserService) ResetPassword(id uint, newPassword string) (*models.User, error) {
	if err := s.ValidatePassword(newPassword); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}

	if err := user.SetPassword(newPassword); err != nil {
		return nil, fmt.Errorf("密码加密失败: %v", err)
	}

	err = s.db.Save(&user).Error
	return &user, err
}

// UpdateLastLogin 更新最后登录时间
func (s *UserService) UpdateLastLogin(id uint) error {
	now := time.Now()
	return s.db.Model(&models.User{}).Where("id = ?", id).Update("last_login_at", now).Error
}

// ========== 租户成员管理 ==========

// AddToTenant 把用户加入租户
func (s *UserService) AddToTenant(userID, tenantID uint, isTenantAdmin bool) error {
	var count int64
	s.db.Model(&models.UserTenant{}).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).Count(&count)
	if count > 0 {
		return fmt.Errorf("用户已在该租户中")
	}

	membership := &models.UserTenant{
		UserID:        userID,
		TenantID:      tenantID,
		IsTenantAdmin: isTenantAdmin,
		JoinedAt:      time.Now(),
	}
	return s.db.Create(membership).Error
}

// RemoveFromTenant 把用户移出租户
func (s *UserService) RemoveFromTenant(userID, tenantID uint) error {
	result := s.db.Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		Delete(&models.UserTenant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("用户不在该租户中")
	}
	return nil
}

// InTenant 检查用户是否属于租户
func (s *UserService) InTenant(userID, tenantID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.UserTenant{}).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).Count(&count).Error
	return count > 0, err
}

// IsTenantAdmin 检查用户是否为租户管理员
func (s *UserService) IsTenantAdmin(userID, tenantID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.UserTenant{}).
		Where("user_id = ? AND tenant_id = ? AND is_tenant_admin = ?", userID, tenantID, true).
		Count(&count).Error
	return count > 0, err
}

// ========== 角色管理方法 ==========

// AssignRoles 为用户分配角色（全量替换）
func (s *UserService) AssignRoles(userID, tenantID uint, roleIDs []uint) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return err
	}

	var roles []models.Role
	err := s.db.Where("id IN ? AND tenant_id IN ?", roleIDs, []uint{0, tenantID}).Find(&roles).Error
	if err != nil {
		return err
	}
	if len(roles) != len(roleIDs) {
		return fmt.Errorf("部分角色不存在或不属于该租户")
	}

	return s.db.Model(&user).Association("Roles").Replace(roles)
}

// AddRole 为用户添加单个角色
func (s *UserService) AddRole(userID, tenantID, roleID uint) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return err
	}

	var role models.Role
	err := s.db.Where("id = ? AND tenant_id IN ?", roleID, []uint{0, tenantID}).First(&role).Error
	if err != nil {
		return fmt.Errorf("角色不存在或不属于该租户")
	}
	if !role.IsActive() {
		return fmt.Errorf("角色已停用，不能分配")
	}

	var count int64
	s.db.Table("user_roles").Where("user_id = ? AND role_id = ?", userID, roleID).Count(&count)
	if count > 0 {
		return fmt.Errorf("用户已拥有该角色")
	}

	return s.db.Model(&user).Association("Roles").Append(&role)
}

// RemoveRole 移除用户的角色
func (s *UserService) RemoveRole(userID, roleID uint) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return err
	}

	var role models.Role
	if err := s.db.First(&role, roleID).Error; err != nil {
		return err
	}

	return s.db.Model(&user).Association("Roles").Delete(&role)
}

// GetUserRoles 获取用户在租户内的角色列表
func (s *UserService) GetUserRoles(userID, tenantID uint) ([]models.Role, error) {
	var roles []models.Role
	err := s.db.Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ? AND roles.tenant_id IN ? AND roles.status = ?",
			userID, []uint{0, tenantID}, models.RoleStatusActive).
		Preload("Permissions").
		Find(&roles).Error
	return roles, err
}

// GetUserPermissions 获取用户在租户内的所有菜单权限（去重）
func (s *UserService) GetUserPermissions(userID, tenantID uint) ([]models.Permission, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, err
	}

	// 平台管理员拥有所有权限
	if user.IsPlatformAdmin {
		var allPermissions []models.Permission
		err := s.db.Find(&allPermissions).Error
		return allPermissions, err
	}

	permissionMap := make(map[string]models.Permission)

	// 租户管理员拥有本租户内除平台级之外的全部权限
	isAdmin, err := s.IsTenantAdmin(userID, tenantID)
	if err != nil {
		return nil, err
	}
	if isAdmin {
		var allPermissions []models.Permission
		if err := s.db.Find(&allPermissions).Error; err != nil {
			return nil, err
		}
		for _, permission := range allPermissions {
			if !strings.HasPrefix(permission.Code, "tenant:") {
				permissionMap[permission.Code] = permission
			}
		}
	}

	roles, err := s.GetUserRoles(userID, tenantID)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		for _, permission := range role.Permissions {
			permissionMap[permission.Code] = permission
		}
	}

	permissions := make([]models.Permission, 0, len(permissionMap))
	for _, permission := range permissionMap {
		permissions = append(permissions, permission)
	}
	return permissions, nil
}

// HasPermission 检查用户在租户内是否有特定菜单权限
func (s *UserService) HasPermission(userID, tenantID uint, permissionCode string) (bool, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return false, err
	}

	// 平台管理员拥有所有权限
	if user.IsPlatformAdmin {
		return true, nil
	}

	// 租户管理员拥有本租户内的管理权限，平台级权限除外
	isAdmin, err := s.IsTenantAdmin(userID, tenantID)
	if err != nil {
		return false, err
	}
	if isAdmin {
		if strings.HasPrefix(permissionCode, "tenant:") {
			return false, nil
		}
		return true, nil
	}

	roles, err := s.GetUserRoles(userID, tenantID)
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		for _, permission := range role.Permissions {
			if permission.Code == permissionCode {
				return true, nil
			}
		}
	}
	return false, nil
}

// ========== 统计相关方法 ==========

// GetStats 获取用户统计
func (s *UserService) GetStats() (*UserStats, error) {
	stats := &UserStats{}

	s.db.Model(&models.User{}).Count(&stats.Total)
	s.db.Model(&models.User{}).Where("status = ?", models.UserStatusActive).Count(&stats.Active)
	s.db.Model(&models.User{}).Where("status = ?", models.UserStatusInactive).Count(&stats.Inactive)
	s.db.Model(&models.User{}).Where("status = ?", models.UserStatusLocked).Count(&stats.Locked)
	s.db.Model(&models.User{}).Where("is_platform_admin = ?", true).Count(&stats.PlatformAdmins)

	return stats, nil
}

// ========== 验证相关方法 ==========

// ValidateUsername 验证用户名
func (s *UserService) ValidateUsername(username string) bool {
	if len(username) < 3 || len(username) > 50 {
		return false
	}
	for _, r := range username {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_') {
			return false
		}
	}
	return true
}

// ValidateEmail 验证邮箱
func (s *UserService) ValidateEmail(email string) bool {
	return strings.Contains(email, "@") && strings.Contains(email, ".") && len(email) >= 5 && len(email) <= 100
}

// ValidatePassword 验证密码
func (s *UserService) ValidatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("密码长度不能少于6位")
	}
	if len(password) > 50 {
		return fmt.Errorf("密码长度不能超过50位")
	}
	return nil
}

// ValidateName 验证姓名
func (s *UserService) ValidateName(name string) bool {
	runeCount := utf8.RuneCountInString(name)
	return runeCount >= 2 && runeCount <= 50
}

// ValidateCreateParams 验证创建用户的参数
func (s *UserService) ValidateCreateParams(username, email, password, name string) error {
	if !s.ValidateUsername(username) {
		return fmt.Errorf("用户名长度必须在3-50个字符之间，且只能包含字母、数字和下划线")
	}
	if !s.ValidateEmail(email) {
		return fmt.Errorf("邮箱格式不正确")
	}
	if err := s.ValidatePassword(password); err != nil {
		return err
	}
	if !s.ValidateName(name) {
		return fmt.Errorf("姓名长度必须在2-50个字符之间")
	}
	return nil
}

// ValidateUpdateParams 验证更新用户的参数
func (s *UserService) ValidateUpdateParams(name, email, status string) error {
	if !s.ValidateName(name) {
		return fmt.Errorf("姓名长度必须在2-50个字符之间")
	}
	if !s.ValidateEmail(email) {
		return fmt.Errorf("邮箱格式不正确")
	}
	if !s.IsValidStatus(status) {
		return fmt.Errorf("状态只能是active、inactive或locked")
	}
	return nil
}

// IsValidStatus 检查用户状态是否有效
func (s *UserService) IsValidStatus(status string) bool {
	switch status {
	case models.UserStatusActive, models.UserStatusInactive, models.UserStatusLocked:
		return true
	default:
		return false
	}
}
