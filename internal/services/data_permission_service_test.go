package services

import (
	"adgp/internal/models"
	"adgp/pkg/cache"
	"testing"
	"time"

	"gorm.io/datatypes"
)

// ========== 内存实现（保持GrantFilter的匹配语义） ==========

type memGrantStore struct {
	nextID uint
	grants []*models.PermissionGrant
}

func (m *memGrantStore) FindGrants(f GrantFilter) ([]models.PermissionGrant, error) {
	var out []models.PermissionGrant
	for _, g := range m.grants {
		if g.TenantID != f.TenantID || !g.IsActive || g.IsExpired(f.Now) {
			continue
		}
		if g.ResourceLevel != f.ResourceLevel || g.ResourceType != f.ResourceType {
			continue
		}
		if g.ResourceID != f.ResourceID && g.ResourceID != models.WildcardResource {
			continue
		}
		if g.Action != f.Action {
			continue
		}
		if !matchPrincipal(g, f.UserID, f.RoleIDs) {
			continue
		}
		if f.ResourceLevel == models.ResourceLevelField && f.FieldName != nil && g.FieldName != nil {
			if *g.FieldName != *f.FieldName && *g.FieldName != models.WildcardResource {
				continue
			}
		}
		out = append(out, *g)
	}
	return out, nil
}

func (m *memGrantStore) CreateGrant(grant *models.PermissionGrant) error {
	m.nextID++
	grant.ID = m.nextID
	copied := *grant
	m.grants = append(m.grants, &copied)
	return nil
}

func (m *memGrantStore) DeactivateGrants(tenantID uint, userID, roleID *uint, resourceType, resourceID, action string, fieldName *string) (int64, error) {
	var affected int64
	for _, g := range m.grants {
		if g.TenantID != tenantID || !g.IsActive {
			continue
		}
		if g.ResourceType != resourceType || g.ResourceID != resourceID || g.Action != action {
			continue
		}
		if userID != nil && (g.UserID == nil || *g.UserID != *userID) {
			continue
		}
		if roleID != nil && (g.RoleID == nil || *g.RoleID != *roleID) {
			continue
		}
		if fieldName != nil && (g.FieldName == nil || *g.FieldName != *fieldName) {
			continue
		}
		g.IsActive = false
		affected++
	}
	return affected, nil
}

func (m *memGrantStore) FindTagGrants(tenantID, userID uint, roleIDs []uint, action string, now time.Time) ([]models.PermissionGrant, error) {
	var out []models.PermissionGrant
	for _, g := range m.grants {
		if g.TenantID != tenantID || !g.IsActive || g.IsExpired(now) {
			continue
		}
		if g.Action != action || len(g.Tags) == 0 {
			continue
		}
		if !matchPrincipal(g, userID, roleIDs) {
			continue
		}
		out = append(out, *g)
	}
	return out, nil
}

func matchPrincipal(g *models.PermissionGrant, userID uint, roleIDs []uint) bool {
	if g.UserID != nil && *g.UserID == userID {
		return true
	}
	if g.RoleID != nil {
		for _, id := range roleIDs {
			if id == *g.RoleID {
				return true
			}
		}
	}
	return false
}

type memClassificationStore struct {
	levels map[string]string // "dataset" 或 "dataset.field" -> 敏感级别
}

func (m *memClassificationStore) GetLevel(tenantID uint, datasetID string, fieldName *string) (string, error) {
	if fieldName != nil {
		if level, ok := m.levels[datasetID+"."+*fieldName]; ok {
			return level, nil
		}
	}
	if level, ok := m.levels[datasetID]; ok {
		return level, nil
	}
	return models.SensitivityInternal, nil
}

type memRoleStore struct {
	roles map[uint][]uint // userID -> roleIDs
}

func (m *memRoleStore) GetUserRoleIDs(tenantID, userID uint) ([]uint, error) {
	return m.roles[userID], nil
}

// ========== 测试脚手架 ==========

type engineFixture struct {
	engine  *DataPermissionService
	grants  *memGrantStore
	classes *memClassificationStore
	roles   *memRoleStore
}

func newEngineFixture(withCache bool) *engineFixture {
	grants := &memGrantStore{}
	classes := &memClassificationStore{levels: make(map[string]string)}
	roles := &memRoleStore{roles: make(map[uint][]uint)}

	var permCache *cache.PermissionCache
	if withCache {
		permCache = cache.NewPermissionCache(time.Minute, nil, "test:perm")
	}

	engine := NewDataPermissionService(grants, classes, roles, permCache)
	return &engineFixture{engine: engine, grants: grants, classes: classes, roles: roles}
}

func uintPtr(v uint) *uint       { return &v }
func strPtr(v string) *string    { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func datasetGrant(tenantID, userID uint, datasetID, action string) *models.PermissionGrant {
	return &models.PermissionGrant{
		TenantID:      tenantID,
		ResourceLevel: models.ResourceLevelDataset,
		ResourceType:  models.ResourceLevelDataset,
		ResourceID:    datasetID,
		UserID:        uintPtr(userID),
		Action:        action,
		GrantedBy:     99,
	}
}

// ========== 基础判定 ==========

func TestDatasetGrantAllows(t *testing.T) {
	f := newEngineFixture(true)
	if err := f.engine.GrantPermission(datasetGrant(1, 10, "sales", models.DataActionRead)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	result, err := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected allow, got %+v", result)
	}
}

func TestDenyWithoutGrant(t *testing.T) {
	f := newEngineFixture(true)

	result, err := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Allowed {
		t.Fatalf("expected deny")
	}
	if result.RequiresApproval {
		t.Fatalf("internal级资源不应升级为待审批")
	}
}

func TestActionMustMatchExactly(t *testing.T) {
	f := newEngineFixture(true)
	if err := f.engine.GrantPermission(datasetGrant(1, 10, "sales", models.DataActionRead)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	result, err := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionWrite)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Allowed {
		t.Fatalf("read授权不应允许write")
	}
}

func TestInvalidActionIsResultNotError(t *testing.T) {
	f := newEngineFixture(true)

	result, err := f.engine.CheckDatasetPermission(1, 10, "sales", "truncate")
	if err != nil {
		t.Fatalf("非法操作不应返回error: %v", err)
	}
	if result.Allowed {
		t.Fatalf("expected deny")
	}
}

func TestMissingTenantDenied(t *testing.T) {
	f := newEngineFixture(true)
	if err := f.engine.GrantPermission(datasetGrant(1, 10, "sales", models.DataActionRead)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	result, err := f.engine.CheckDatasetPermission(0, 10, "sales", models.DataActionRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Allowed {
		t.Fatalf("缺失租户不能静默扩大到全租户范围")
	}
}

func TestWildcardResourceMatches(t *testing.T) {
	f := newEngineFixture(true)
	if err := f.engine.GrantPermission(datasetGrant(1, 10, models.WildcardResource, models.DataActionRead)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	for _, dataset := range []string{"sales", "orders", "users"} {
		result, err := f.engine.CheckDatasetPermission(1, 10, dataset, models.DataActionRead)
		if err != nil {
			t.Fatalf("check %s: %v", dataset, err)
		}
		if !result.Allowed {
			t.Errorf("通配授权应匹配数据集 %s", dataset)
		}
	}
}

func TestRoleGrantAllowsMember(t *testing.T) {
	f := newEngineFixture(true)
	f.roles.roles[10] = []uint{5}

	grant := datasetGrant(1, 0, "sales", models.DataActionRead)
	grant.UserID = nil
	grant.RoleID = uintPtr(5)
	if err := f.engine.GrantPermission(grant); err != nil {
		t.Fatalf("grant: %v", err)
	}

	result, err := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("角色授权应对角色成员生效")
	}

	// 非角色成员不受影响
	other, err := f.engine.CheckDatasetPermission(1, 11, "sales", models.DataActionRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if other.Allowed {
		t.Fatalf("非角色成员不应被允许")
	}
}

// ========== 过期与撤销 ==========

func TestExpiredGrantNeverAllows(t *testing.T) {
	f := newEngineFixture(true)

	grant := datasetGrant(1, 10, "sales", models.DataActionRead)
	grant.IsTemporary = true
	grant.ExpiresAt = timePtr(time.Now().Add(-time.Hour))
	if err := f.engine.GrantPermission(grant); err != nil {
		t.Fatalf("grant: %v", err)
	}

	// 刚插入也不行：过期在读取时被动过滤
	result, err := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Allowed {
		t.Fatalf("过期授权不应允许")
	}
}

func TestGrantMonotonicity(t *testing.T) {
	f := newEngineFixture(true)

	before, _ := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if before.Allowed {
		t.Fatalf("初始应为拒绝")
	}

	// 授权后（授权内部已触发缓存失效）变为允许
	if err := f.engine.GrantPermission(datasetGrant(1, 10, "sales", models.DataActionRead)); err != nil {
		t.Fatalf("grant: %v", err)
	}
	after, _ := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if !after.Allowed {
		t.Fatalf("授权后应为允许")
	}

	// 撤销后回到拒绝
	revoked, err := f.engine.RevokePermission(1, uintPtr(10), nil, models.ResourceLevelDataset, "sales", models.DataActionRead, nil)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !revoked {
		t.Fatalf("应有授权被撤销")
	}
	final, _ := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if final.Allowed {
		t.Fatalf("撤销后应为拒绝")
	}
}

func TestRevokeIdempotent(t *testing.T) {
	f := newEngineFixture(true)
	if err := f.engine.GrantPermission(datasetGrant(1, 10, "sales", models.DataActionRead)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	first, err := f.engine.RevokePermission(1, uintPtr(10), nil, models.ResourceLevelDataset, "sales", models.DataActionRead, nil)
	if err != nil || !first {
		t.Fatalf("首次撤销应成功: %v %v", first, err)
	}

	// 再次撤销：无活跃授权匹配，返回false且不报错
	second, err := f.engine.RevokePermission(1, uintPtr(10), nil, models.ResourceLevelDataset, "sales", models.DataActionRead, nil)
	if err != nil {
		t.Fatalf("重复撤销不应报错: %v", err)
	}
	if second {
		t.Fatalf("重复撤销应返回false")
	}
}

// ========== 层级继承 ==========

func TestRecordInheritsDatasetAllow(t *testing.T) {
	f := newEngineFixture(true)
	if err := f.engine.GrantPermission(datasetGrant(1, 10, "sales", models.DataActionRead)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	result, err := f.engine.CheckRecordPermission(1, 10, "sales", "row-42", models.DataActionRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("记录检查应继承数据集允许")
	}
	if result.Reason != "继承自上级资源权限" {
		t.Fatalf("继承结果的reason应说明继承: %q", result.Reason)
	}
}

func TestFieldInheritsDatasetAllow(t *testing.T) {
	f := newEngineFixture(true)
	if err := f.engine.GrantPermission(datasetGrant(1, 10, "sales", models.DataActionRead)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	result, err := f.engine.CheckFieldPermission(1, 10, "sales", "amount", models.DataActionRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.Allowed || result.Reason != "继承自上级资源权限" {
		t.Fatalf("字段检查应继承数据集允许: %+v", result)
	}
}

func TestUnconditionalDatasetDenyShortCircuits(t *testing.T) {
	f := newEngineFixture(true)

	// 记录级授权存在，但数据集无授权且级别不需审批：
	// 数据集无条件拒绝直接返回，不再查记录级授权
	grant := &models.PermissionGrant{
		TenantID:      1,
		ResourceLevel: models.ResourceLevelRecord,
		ResourceType:  models.ResourceLevelRecord,
		ResourceID:    "row-42",
		UserID:        uintPtr(10),
		Action:        models.DataActionRead,
		GrantedBy:     99,
	}
	if err := f.engine.GrantPermission(grant); err != nil {
		t.Fatalf("grant: %v", err)
	}

	result, err := f.engine.CheckRecordPermission(1, 10, "sales", "row-42", models.DataActionRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Allowed {
		t.Fatalf("数据集无条件拒绝时不应继续记录级解析")
	}
}

func TestApprovalPendingDatasetDenyStillResolvesRecord(t *testing.T) {
	f := newEngineFixture(true)
	f.classes.levels["sales"] = models.SensitivityConfidential

	grant := &models.PermissionGrant{
		TenantID:      1,
		ResourceLevel: models.ResourceLevelRecord,
		ResourceType:  models.ResourceLevelRecord,
		ResourceID:    "row-42",
		UserID:        uintPtr(10),
		Action:        models.DataActionRead,
		GrantedBy:     99,
	}
	if err := f.engine.GrantPermission(grant); err != nil {
		t.Fatalf("grant: %v", err)
	}

	// 数据集拒绝但为"待审批"，记录级授权仍可命中
	result, err := f.engine.CheckRecordPermission(1, 10, "sales", "row-42", models.DataActionRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("待审批级别的数据集拒绝不应短路记录级解析: %+v", result)
	}
}

// ========== 敏感级别升级 ==========

func TestSensitivityEscalation(t *testing.T) {
	cases := []struct {
		level            string
		requiresApproval bool
	}{
		{models.SensitivityPublic, false},
		{models.SensitivityInternal, false},
		{models.SensitivityConfidential, true},
		{models.SensitivityTopSecret, true},
	}

	for _, tc := range cases {
		f := newEngineFixture(true)
		f.classes.levels["sales"] = tc.level

		result, err := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
		if err != nil {
			t.Fatalf("check %s: %v", tc.level, err)
		}
		if result.Allowed {
			t.Errorf("%s: 无授权应拒绝", tc.level)
		}
		if result.RequiresApproval != tc.requiresApproval {
			t.Errorf("%s: requires_approval期望%v，实际%v", tc.level, tc.requiresApproval, result.RequiresApproval)
		}
	}
}

func TestFieldClassificationOverridesDataset(t *testing.T) {
	f := newEngineFixture(true)
	f.classes.levels["sales"] = models.SensitivityPublic
	f.classes.levels["sales.salary"] = models.SensitivityTopSecret

	result, err := f.engine.CheckFieldPermission(1, 10, "sales", "salary", models.DataActionRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.Allowed || !result.RequiresApproval {
		t.Fatalf("字段级标注应覆盖数据集级: %+v", result)
	}
}

// ========== 缓存透明性 ==========

func TestCacheTransparency(t *testing.T) {
	// 同一授权状态下冷缓存、热缓存、禁用缓存三者判定一致
	setup := func(withCache bool) *engineFixture {
		f := newEngineFixture(withCache)
		if err := f.engine.GrantPermission(datasetGrant(1, 10, "sales", models.DataActionRead)); err != nil {
			t.Fatalf("grant: %v", err)
		}
		return f
	}

	cached := setup(true)
	cold, err := cached.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if err != nil {
		t.Fatalf("cold check: %v", err)
	}
	warm, err := cached.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if err != nil {
		t.Fatalf("warm check: %v", err)
	}

	uncached := setup(false)
	off, err := uncached.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if err != nil {
		t.Fatalf("uncached check: %v", err)
	}

	if cold.Allowed != warm.Allowed || warm.Allowed != off.Allowed {
		t.Fatalf("缓存冷/热/禁用结果不一致: %v %v %v", cold.Allowed, warm.Allowed, off.Allowed)
	}

	// 拒绝结果同样缓存且一致
	coldDeny, _ := cached.engine.CheckDatasetPermission(1, 10, "orders", models.DataActionRead)
	warmDeny, _ := cached.engine.CheckDatasetPermission(1, 10, "orders", models.DataActionRead)
	offDeny, _ := uncached.engine.CheckDatasetPermission(1, 10, "orders", models.DataActionRead)
	if coldDeny.Allowed || warmDeny.Allowed || offDeny.Allowed {
		t.Fatalf("拒绝结果不一致")
	}
}

func TestRecordCacheScopedToDataset(t *testing.T) {
	// 同名记录ID出现在不同数据集时，热缓存判定必须与禁用缓存一致：
	// 继承种子和敏感级别都取决于所属数据集
	setup := func(withCache bool) *engineFixture {
		f := newEngineFixture(withCache)
		f.classes.levels["orders"] = models.SensitivityConfidential
		if err := f.engine.GrantPermission(datasetGrant(1, 10, "sales", models.DataActionRead)); err != nil {
			t.Fatalf("grant: %v", err)
		}
		return f
	}

	cached := setup(true)
	inSales, err := cached.engine.CheckRecordPermission(1, 10, "sales", "row-42", models.DataActionRead)
	if err != nil {
		t.Fatalf("sales check: %v", err)
	}
	if !inSales.Allowed {
		t.Fatalf("sales记录应继承允许: %+v", inSales)
	}

	// 缓存已因sales的row-42变热，orders下的row-42不能复用该判定
	warm, err := cached.engine.CheckRecordPermission(1, 10, "orders", "row-42", models.DataActionRead)
	if err != nil {
		t.Fatalf("orders warm check: %v", err)
	}

	uncached := setup(false)
	off, err := uncached.engine.CheckRecordPermission(1, 10, "orders", "row-42", models.DataActionRead)
	if err != nil {
		t.Fatalf("orders uncached check: %v", err)
	}

	if warm.Allowed != off.Allowed || warm.RequiresApproval != off.RequiresApproval {
		t.Fatalf("热缓存与禁用缓存判定不一致: warm=%+v off=%+v", warm, off)
	}
	if warm.Allowed || !warm.RequiresApproval {
		t.Fatalf("confidential数据集的无授权记录应为待审批拒绝: %+v", warm)
	}
}

func TestWarmCacheServesWithoutStore(t *testing.T) {
	f := newEngineFixture(true)
	if err := f.engine.GrantPermission(datasetGrant(1, 10, "sales", models.DataActionRead)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if _, err := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead); err != nil {
		t.Fatalf("first check: %v", err)
	}

	// 绕过引擎直接清空存储：热缓存仍应命中
	f.grants.grants = nil
	result, err := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if err != nil {
		t.Fatalf("warm check: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("热缓存应直接返回此前判定")
	}
}

// ========== 条件授权 ==========

func TestConditionFailureSkipsToNextGrant(t *testing.T) {
	f := newEngineFixture(true)

	// 第一条授权条件永假，第二条无条件：应命中第二条
	conditioned := datasetGrant(1, 10, "sales", models.DataActionRead)
	conditioned.Conditions = datatypes.JSON(`{"expression":"1 == 2"}`)
	if err := f.engine.GrantPermission(conditioned); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := f.engine.GrantPermission(datasetGrant(1, 10, "sales", models.DataActionRead)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	result, err := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("条件不通过应跳过而非拒绝，后续授权应命中")
	}
	if result.ConditionsApplied != nil {
		t.Fatalf("命中的无条件授权不应回显条件")
	}
}

func TestConditionExpressionGates(t *testing.T) {
	f := newEngineFixture(true)

	grant := datasetGrant(1, 10, "sales", models.DataActionRead)
	grant.Conditions = datatypes.JSON(`{"expression":"user_id == 10 and action == \"read\""}`)
	if err := f.engine.GrantPermission(grant); err != nil {
		t.Fatalf("grant: %v", err)
	}

	result, err := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("表达式为真应允许: %+v", result)
	}
	if result.ConditionsApplied == nil || result.ConditionsApplied.Expression == "" {
		t.Fatalf("应回显生效的条件")
	}
}

func TestTimeWindowCondition(t *testing.T) {
	f := newEngineFixture(true)

	grant := datasetGrant(1, 10, "sales", models.DataActionRead)
	grant.Conditions = datatypes.JSON(`{"time_start":"09:00","time_end":"18:00"}`)
	if err := f.engine.GrantPermission(grant); err != nil {
		t.Fatalf("grant: %v", err)
	}

	// 固定时间源到窗口内
	f.engine.now = func() time.Time {
		return time.Date(2024, 6, 3, 10, 30, 0, 0, time.Local)
	}
	inWindow, err := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !inWindow.Allowed {
		t.Fatalf("窗口内应允许")
	}

	// 窗口外（换个资源维度避开缓存影响此处无必要——失效后重查）
	f.engine.cache.Invalidate("*")
	f.engine.now = func() time.Time {
		return time.Date(2024, 6, 3, 23, 0, 0, 0, time.Local)
	}
	outWindow, err := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if outWindow.Allowed {
		t.Fatalf("窗口外应拒绝")
	}
}

// ========== 标签ABAC ==========

func TestTagCheckIndependentOfHierarchy(t *testing.T) {
	f := newEngineFixture(true)

	// 仅有标签授权，无任何层级授权
	grant := &models.PermissionGrant{
		TenantID:      1,
		ResourceLevel: models.ResourceLevelDataset,
		ResourceType:  models.ResourceLevelDataset,
		ResourceID:    models.WildcardResource,
		UserID:        uintPtr(10),
		Action:        models.DataActionExport,
		Tags:          datatypes.JSON(`["pii","finance"]`),
		GrantedBy:     99,
	}
	if err := f.engine.GrantPermission(grant); err != nil {
		t.Fatalf("grant: %v", err)
	}

	allowed, err := f.engine.CheckTagPermission(1, 10, []string{"finance"}, models.DataActionExport)
	if err != nil {
		t.Fatalf("tag check: %v", err)
	}
	if !allowed {
		t.Fatalf("标签相交应通过")
	}

	denied, err := f.engine.CheckTagPermission(1, 10, []string{"hr"}, models.DataActionExport)
	if err != nil {
		t.Fatalf("tag check: %v", err)
	}
	if denied {
		t.Fatalf("标签不相交应拒绝")
	}
}

func TestTagCheckRepeatableWithoutCache(t *testing.T) {
	f := newEngineFixture(true)

	grant := datasetGrant(1, 10, "sales", models.DataActionRead)
	grant.Tags = datatypes.JSON(`["pii"]`)
	if err := f.engine.GrantPermission(grant); err != nil {
		t.Fatalf("grant: %v", err)
	}

	// 标签检查不走缓存：重复调用结果一致
	for i := 0; i < 3; i++ {
		allowed, err := f.engine.CheckTagPermission(1, 10, []string{"pii"}, models.DataActionRead)
		if err != nil {
			t.Fatalf("tag check %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("第%d次标签检查结果不一致", i)
		}
	}
	if f.engine.cache.Size() != 0 {
		t.Fatalf("标签检查不应写入缓存")
	}
}

// ========== 授权校验 ==========

func TestGrantRequiresExactlyOnePrincipal(t *testing.T) {
	f := newEngineFixture(true)

	both := datasetGrant(1, 10, "sales", models.DataActionRead)
	both.RoleID = uintPtr(5)
	if err := f.engine.GrantPermission(both); err == nil {
		t.Fatalf("同时指定用户和角色应被拒绝")
	}

	neither := datasetGrant(1, 0, "sales", models.DataActionRead)
	neither.UserID = nil
	if err := f.engine.GrantPermission(neither); err == nil {
		t.Fatalf("缺失授权主体应在创建时被拒绝")
	}
}

func TestGrantLevelTypeConsistency(t *testing.T) {
	f := newEngineFixture(true)

	grant := datasetGrant(1, 10, "sales", models.DataActionRead)
	grant.ResourceType = models.ResourceLevelRecord
	if err := f.engine.GrantPermission(grant); err == nil {
		t.Fatalf("resource_type与resource_level不一致应被拒绝")
	}
}

func TestTemporaryGrantRequiresExpiry(t *testing.T) {
	f := newEngineFixture(true)

	if _, err := f.engine.GrantTemporaryPermission(1, 10, "dataset:sales", models.DataActionRead, 99, time.Time{}); err == nil {
		t.Fatalf("临时授权缺失过期时间应被拒绝")
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	grant, err := f.engine.GrantTemporaryPermission(1, 10, "dataset:sales", models.DataActionRead, 99, expiresAt)
	if err != nil {
		t.Fatalf("临时授权失败: %v", err)
	}
	if !grant.IsTemporary || grant.ExpiresAt == nil {
		t.Fatalf("临时授权标记错误: %+v", grant)
	}

	result, _ := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if !result.Allowed {
		t.Fatalf("有效期内的临时授权应允许")
	}
}

// ========== 场景验收 ==========

func TestEndToEndScenario(t *testing.T) {
	f := newEngineFixture(true)
	f.classes.levels["sales"] = models.SensitivityConfidential

	// 授权数据集读权限
	if err := f.engine.GrantPermission(datasetGrant(1, 10, "sales", models.DataActionRead)); err != nil {
		t.Fatalf("grant: %v", err)
	}

	dataset, _ := f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if !dataset.Allowed {
		t.Fatalf("数据集检查应允许")
	}

	record, _ := f.engine.CheckRecordPermission(1, 10, "sales", "row-42", models.DataActionRead)
	if !record.Allowed || record.Reason != "继承自上级资源权限" {
		t.Fatalf("记录检查应表明继承: %+v", record)
	}

	// 撤销后两级均拒绝，且因CONFIDENTIAL升级为待审批
	revoked, err := f.engine.RevokePermission(1, uintPtr(10), nil, models.ResourceLevelDataset, "sales", models.DataActionRead, nil)
	if err != nil || !revoked {
		t.Fatalf("revoke: %v %v", revoked, err)
	}

	dataset, _ = f.engine.CheckDatasetPermission(1, 10, "sales", models.DataActionRead)
	if dataset.Allowed || !dataset.RequiresApproval {
		t.Fatalf("撤销后数据集检查应为待审批拒绝: %+v", dataset)
	}

	record, _ = f.engine.CheckRecordPermission(1, 10, "sales", "row-42", models.DataActionRead)
	if record.Allowed || !record.RequiresApproval {
		t.Fatalf("撤销后记录检查应为待审批拒绝: %+v", record)
	}
}
