package services

import (
	"adgp/internal/models"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	return db, mock
}

func TestGormGrantStoreFindGrants(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormGrantStore(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "resource_level", "resource_type", "resource_id",
		"action", "user_id", "granted_by", "granted_at", "is_active",
	}).AddRow(1, 1, "dataset", "dataset", "sales", "read", 10, 99, now, true)

	// 组合过滤：租户+活跃、层级/类型精确、资源ID含通配、操作精确、未过期、主体
	mock.ExpectQuery(`SELECT \* FROM "permission_grants" WHERE \(?tenant_id = \$1 AND is_active = \$2\)? AND \(?resource_level = \$3 AND resource_type = \$4\)? AND resource_id IN \(\$5,\$6\) AND action = \$7 AND \(expires_at IS NULL OR expires_at > \$8\) AND \(+user_id = \$9 OR role_id IN \(\$10,\$11\)\)+ ORDER BY id`).
		WillReturnRows(rows)

	grants, err := store.FindGrants(GrantFilter{
		TenantID:      1,
		ResourceLevel: models.ResourceLevelDataset,
		ResourceType:  models.ResourceLevelDataset,
		ResourceID:    "sales",
		Action:        models.DataActionRead,
		UserID:        10,
		RoleIDs:       []uint{5, 6},
		Now:           now,
	})
	if err != nil {
		t.Fatalf("find grants: %v", err)
	}
	if len(grants) != 1 || grants[0].ResourceID != "sales" {
		t.Fatalf("unexpected grants: %+v", grants)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGormGrantStoreFindGrantsNoRoles(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormGrantStore(db)

	// 无角色时主体过滤退化为仅用户，不生成空IN列表
	mock.ExpectQuery(`SELECT \* FROM "permission_grants" WHERE .* AND user_id = \$\d+ ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.FindGrants(GrantFilter{
		TenantID:      1,
		ResourceLevel: models.ResourceLevelDataset,
		ResourceType:  models.ResourceLevelDataset,
		ResourceID:    "sales",
		Action:        models.DataActionRead,
		UserID:        10,
		Now:           time.Now(),
	})
	if err != nil {
		t.Fatalf("find grants: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGormGrantStoreDeactivate(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormGrantStore(db)

	userID := uint(10)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "permission_grants" SET .*is_active.*WHERE \(?tenant_id = \$\d+ AND is_active = \$\d+\)? AND \(?resource_type = \$\d+ AND resource_id = \$\d+ AND action = \$\d+\)? AND user_id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	affected, err := store.DeactivateGrants(1, &userID, nil, models.ResourceLevelDataset, "sales", models.DataActionRead, nil)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected 2 affected, got %d", affected)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGormClassificationStoreDefault(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormClassificationStore(db)

	// 无标注时默认internal
	mock.ExpectQuery(`SELECT \* FROM "resource_classifications" WHERE tenant_id = \$1 AND dataset_id = \$2 AND field_name IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	level, err := store.GetLevel(1, "sales", nil)
	if err != nil {
		t.Fatalf("get level: %v", err)
	}
	if level != models.SensitivityInternal {
		t.Fatalf("expected internal default, got %s", level)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
