package services

import (
	"adgp/internal/models"
	"adgp/pkg/cache"
	"adgp/pkg/logger"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DataPermissionService 数据权限解析引擎
//
// 负责解析（用户，操作，资源）三元组的访问判定：授权查询、层级继承、
// 标签匹配与敏感级别驱动的审批升级。缓存是纯优化——禁用、为空或
// 命中时判定结果必须一致。
//
// 引擎在应用启动时构造一次，通过依赖注入传给各消费方。
type DataPermissionService struct {
	grants          GrantStore
	classifications ClassificationStore
	roles           RoleStore
	cache           *cache.PermissionCache

	// 时间源，测试时可替换
	now func() time.Time
}

// NewDataPermissionService 创建数据权限引擎
//
// permCache 为nil时禁用缓存，判定逻辑不受影响。
func NewDataPermissionService(grants GrantStore, classifications ClassificationStore, roles RoleStore, permCache *cache.PermissionCache) *DataPermissionService {
	return &DataPermissionService{
		grants:          grants,
		classifications: classifications,
		roles:           roles,
		cache:           permCache,
		now:             time.Now,
	}
}

// ========== 权限检查 ==========

// CheckDatasetPermission 检查数据集层级权限
func (s *DataPermissionService) CheckDatasetPermission(tenantID, userID uint, datasetID, action string) (*models.PermissionResult, error) {
	if result := s.validateCheckInput(tenantID, datasetID, action); result != nil {
		return result, nil
	}
	return s.resolve(tenantID, userID, models.ResourceLevelDataset, datasetID, datasetID, nil, action, false)
}

// CheckRecordPermission 检查记录层级权限
//
// 先执行数据集检查：数据集被无条件拒绝（而非"待审批"）时直接返回该
// 结果；否则以数据集判定的allowed作为继承种子继续记录层级解析。
func (s *DataPermissionService) CheckRecordPermission(tenantID, userID uint, datasetID, recordID, action string) (*models.PermissionResult, error) {
	if result := s.validateCheckInput(tenantID, recordID, action); result != nil {
		return result, nil
	}

	datasetResult, err := s.CheckDatasetPermission(tenantID, userID, datasetID, action)
	if err != nil {
		return nil, err
	}
	if !datasetResult.Allowed && !datasetResult.RequiresApproval {
		return datasetResult, nil
	}

	return s.resolve(tenantID, userID, models.ResourceLevelRecord, datasetID, recordID, nil, action, datasetResult.Allowed)
}

// CheckFieldPermission 检查字段层级权限
//
// 与记录检查对称，继承种子同样来自数据集判定。
func (s *DataPermissionService) CheckFieldPermission(tenantID, userID uint, datasetID, fieldName, action string) (*models.PermissionResult, error) {
	if result := s.validateCheckInput(tenantID, fieldName, action); result != nil {
		return result, nil
	}

	datasetResult, err := s.CheckDatasetPermission(tenantID, userID, datasetID, action)
	if err != nil {
		return nil, err
	}
	if !datasetResult.Allowed && !datasetResult.RequiresApproval {
		return datasetResult, nil
	}

	return s.resolve(tenantID, userID, models.ResourceLevelField, datasetID, datasetID, &fieldName, action, datasetResult.Allowed)
}

// CheckTagPermission 标签ABAC检查
//
// 独立于资源层级结构：主体的任一活跃授权带有与资源标签相交的非空
// 标签集即通过。该检查不走缓存。
func (s *DataPermissionService) CheckTagPermission(tenantID, userID uint, resourceTags []string, action string) (bool, error) {
	if tenantID == 0 || !models.IsValidDataAction(action) || len(resourceTags) == 0 {
		return false, nil
	}

	roleIDs, err := s.roles.GetUserRoleIDs(tenantID, userID)
	if err != nil {
		return false, err
	}

	now := s.now()
	grants, err := s.grants.FindTagGrants(tenantID, userID, roleIDs, action, now)
	if err != nil {
		return false, err
	}

	tagSet := make(map[string]struct{}, len(resourceTags))
	for _, tag := range resourceTags {
		tagSet[tag] = struct{}{}
	}

	for i := range grants {
		grant := &grants[i]
		overlap := false
		for _, tag := range grant.TagList() {
			if _, ok := tagSet[tag]; ok {
				overlap = true
				break
			}
		}
		if !overlap {
			continue
		}

		cond, err := grant.ParseConditions()
		if err != nil {
			logger.GetLogger().Warnf("授权 %d 条件解析失败，已跳过: %v", grant.ID, err)
			continue
		}
		if evaluateConditions(cond, conditionEnv{
			TenantID: tenantID, UserID: userID, Action: action, Now: now,
		}) {
			return true, nil
		}
	}
	return false, nil
}

// ========== 授权与撤销 ==========

// GrantPermission 创建授权并失效相关缓存
//
// 授权先落库，再发出缓存失效，避免过期判定在失效窗口内复活。
func (s *DataPermissionService) GrantPermission(grant *models.PermissionGrant) error {
	if grant.TenantID == 0 {
		return fmt.Errorf("租户ID不能为空")
	}
	if grant.GrantedAt.IsZero() {
		grant.GrantedAt = s.now()
	}
	grant.IsActive = true
	if err := grant.Validate(); err != nil {
		return err
	}

	if err := s.grants.CreateGrant(grant); err != nil {
		return err
	}

	s.invalidateFor(grant.TenantID, grant.UserID)
	return nil
}

// GrantTemporaryPermission 下发临时授权
//
// resource格式为"type:id"（field层级为"field:dataset:字段名"），
// 必须指定过期时间。
func (s *DataPermissionService) GrantTemporaryPermission(tenantID, userID uint, resource, action string, grantedBy uint, expiresAt time.Time) (*models.PermissionGrant, error) {
	if expiresAt.IsZero() {
		return nil, fmt.Errorf("临时授权必须指定过期时间")
	}

	parts := strings.SplitN(resource, ":", 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("资源格式错误，应为 type:id: %s", resource)
	}
	level, resourceID := parts[0], parts[1]

	var fieldName *string
	if level == models.ResourceLevelField && len(parts) == 3 {
		fieldName = &parts[2]
	}

	grant := &models.PermissionGrant{
		TenantID:      tenantID,
		ResourceLevel: level,
		ResourceType:  level,
		ResourceID:    resourceID,
		FieldName:     fieldName,
		UserID:        &userID,
		Action:        action,
		GrantedBy:     grantedBy,
		GrantedAt:     s.now(),
		ExpiresAt:     &expiresAt,
		IsTemporary:   true,
	}
	if err := s.GrantPermission(grant); err != nil {
		return nil, err
	}
	return grant, nil
}

// RevokePermission 撤销（软删除）所有匹配的活跃授权
//
// 可能同时命中多条重叠授权；没有任何活跃授权匹配时返回false。
func (s *DataPermissionService) RevokePermission(tenantID uint, userID, roleID *uint, resourceType, resourceID, action string, fieldName *string) (bool, error) {
	if tenantID == 0 {
		return false, fmt.Errorf("租户ID不能为空")
	}

	affected, err := s.grants.DeactivateGrants(tenantID, userID, roleID, resourceType, resourceID, action, fieldName)
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	s.invalidateFor(tenantID, userID)
	return true, nil
}

// invalidateFor 按授权主体失效缓存
//
// 用户授权失效该用户的全部判定；角色授权无法逐用户定位成员，
// 退化为租户级整体失效。
func (s *DataPermissionService) invalidateFor(tenantID uint, userID *uint) {
	if userID != nil {
		s.cache.Invalidate(fmt.Sprintf("*:%d:%d:*", tenantID, *userID))
	} else {
		s.cache.Invalidate(fmt.Sprintf("*:%d:*", tenantID))
	}
}

// ========== 核心解析 ==========

// validateCheckInput 检查入参，非法输入以拒绝结果表达而非error
func (s *DataPermissionService) validateCheckInput(tenantID uint, resourceID, action string) *models.PermissionResult {
	if tenantID == 0 {
		return &models.PermissionResult{Allowed: false, Reason: "租户ID缺失"}
	}
	if resourceID == "" {
		return &models.PermissionResult{Allowed: false, Reason: "资源ID缺失"}
	}
	if !models.IsValidDataAction(action) {
		return &models.PermissionResult{Allowed: false, Reason: "非法的操作类型: " + action}
	}
	return nil
}

// resolve 共享的层级解析算法
//
// 步骤：缓存查询 -> 授权匹配（逐条求值条件，不通过只跳过）->
// 上级继承 -> 敏感级别驱动的审批升级 -> 结果写缓存。
func (s *DataPermissionService) resolve(tenantID, userID uint, level, datasetID, resourceID string, fieldName *string, action string, parentAllowed bool) (*models.PermissionResult, error) {
	key := s.cacheKey(tenantID, userID, level, datasetID, resourceID, fieldName, action)

	if data, ok := s.cache.Get(key); ok {
		var cached models.PermissionResult
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
		// 缓存内容损坏时按未命中处理
	}

	result, err := s.resolveUncached(tenantID, userID, level, datasetID, resourceID, fieldName, action, parentAllowed)
	if err != nil {
		return nil, err
	}

	// 判定结果（包括拒绝）一律写入缓存
	if data, err := json.Marshal(result); err == nil {
		s.cache.Set(key, data)
	}
	return result, nil
}

func (s *DataPermissionService) resolveUncached(tenantID, userID uint, level, datasetID, resourceID string, fieldName *string, action string, parentAllowed bool) (*models.PermissionResult, error) {
	roleIDs, err := s.roles.GetUserRoleIDs(tenantID, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	grants, err := s.grants.FindGrants(GrantFilter{
		TenantID:      tenantID,
		ResourceLevel: level,
		ResourceType:  level,
		ResourceID:    resourceID,
		FieldName:     fieldName,
		Action:        action,
		UserID:        userID,
		RoleIDs:       roleIDs,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	env := conditionEnv{
		TenantID:   tenantID,
		UserID:     userID,
		Action:     action,
		ResourceID: resourceID,
		Now:        now,
	}

	for i := range grants {
		grant := &grants[i]
		cond, err := grant.ParseConditions()
		if err != nil {
			logger.GetLogger().Warnf("授权 %d 条件解析失败，已跳过: %v", grant.ID, err)
			continue
		}
		// 条件不通过只跳过该授权，不构成显式拒绝
		if !evaluateConditions(cond, env) {
			continue
		}
		return &models.PermissionResult{
			Allowed:           true,
			Reason:            "授权匹配",
			ConditionsApplied: cond,
		}, nil
	}

	// 权限默认向下级联：上级允许且本级无更具体的授权时继承
	if parentAllowed {
		return &models.PermissionResult{
			Allowed: true,
			Reason:  "继承自上级资源权限",
		}, nil
	}

	// 无授权、无继承：按资源敏感级别决定是否升级为待审批
	var classifyField *string
	if level == models.ResourceLevelField {
		classifyField = fieldName
	}
	sensitivity, err := s.classifications.GetLevel(tenantID, datasetID, classifyField)
	if err != nil {
		return nil, err
	}

	if models.RequiresApprovalLevel(sensitivity) {
		return &models.PermissionResult{
			Allowed:          false,
			Reason:           fmt.Sprintf("无匹配授权，资源敏感级别为%s，需要审批", sensitivity),
			RequiresApproval: true,
		}, nil
	}
	return &models.PermissionResult{
		Allowed: false,
		Reason:  "无匹配授权",
	}, nil
}

// cacheKey 构造缓存键：{level}:{tenant}:{user}:{resource}:{action}
//
// record和field层级的判定依赖所属数据集（继承种子与敏感级别），
// 资源段必须带上数据集前缀，避免跨数据集的同名资源互相污染。
func (s *DataPermissionService) cacheKey(tenantID, userID uint, level, datasetID, resourceID string, fieldName *string, action string) string {
	resource := resourceID
	switch level {
	case models.ResourceLevelRecord:
		resource = datasetID + "." + resourceID
	case models.ResourceLevelField:
		if fieldName != nil {
			resource = datasetID + "." + *fieldName
		}
	}
	return fmt.Sprintf("%s:%d:%d:%s:%s", level, tenantID, userID, resource, action)
}
