package services

import (
	"testing"

	"adgp/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMaskingApplyRowWithRules(t *testing.T) {
	db, mock := newMockDB(t)
	classes := &memClassificationStore{levels: make(map[string]string)}
	svc := NewMaskingService(db, classes)

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "dataset_id", "field_name", "strategy", "enabled"}).
		AddRow(1, 1, "customers", "phone", models.MaskStrategyPhone, true).
		AddRow(2, 1, "customers", "email", models.MaskStrategyEmail, true)
	mock.ExpectQuery(`SELECT \* FROM "masking_rules" WHERE tenant_id = \$1 AND dataset_id = \$2 AND enabled = \$3`).
		WillReturnRows(rows)

	masked, err := svc.ApplyRow(1, "customers", map[string]interface{}{
		"phone": "13812345678",
		"email": "alice@example.com",
		"city":  "hangzhou",
		"age":   30,
	})
	if err != nil {
		t.Fatalf("apply row: %v", err)
	}

	if masked["phone"] != "138****5678" {
		t.Errorf("phone: got %v", masked["phone"])
	}
	if masked["email"] != "a****@example.com" {
		t.Errorf("email: got %v", masked["email"])
	}
	// 无规则且非敏感字段原样保留
	if masked["city"] != "hangzhou" {
		t.Errorf("city: got %v", masked["city"])
	}
	// 非字符串值不处理
	if masked["age"] != 30 {
		t.Errorf("age: got %v", masked["age"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMaskingApplyRowSensitiveFallback(t *testing.T) {
	db, mock := newMockDB(t)
	classes := &memClassificationStore{levels: map[string]string{
		"customers.salary": models.SensitivityConfidential,
	}}
	svc := NewMaskingService(db, classes)

	// 无任何显式规则
	mock.ExpectQuery(`SELECT \* FROM "masking_rules"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	masked, err := svc.ApplyRow(1, "customers", map[string]interface{}{
		"salary": "25000",
		"name":   "Bob",
	})
	if err != nil {
		t.Fatalf("apply row: %v", err)
	}

	// confidential字段无规则时兜底全量脱敏
	if masked["salary"] != "******" {
		t.Errorf("salary: got %v", masked["salary"])
	}
	if masked["name"] != "Bob" {
		t.Errorf("name: got %v", masked["name"])
	}
}

func TestMaskingApplyRowCustomPattern(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewMaskingService(db, &memClassificationStore{levels: make(map[string]string)})

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "dataset_id", "field_name", "strategy", "pattern", "replacement", "enabled"}).
		AddRow(1, 1, "orders", "address", models.MaskStrategyCustom, `\d+`, "#", true).
		AddRow(2, 1, "orders", "remark", models.MaskStrategyCustom, `[`, "#", true)
	mock.ExpectQuery(`SELECT \* FROM "masking_rules"`).WillReturnRows(rows)

	masked, err := svc.ApplyRow(1, "orders", map[string]interface{}{
		"address": "No.128 West Lake Road",
		"remark":  "keep",
	})
	if err != nil {
		t.Fatalf("apply row: %v", err)
	}

	if masked["address"] != "No.# West Lake Road" {
		t.Errorf("address: got %v", masked["address"])
	}
	// 非法正则退化为全量脱敏
	if masked["remark"] != "******" {
		t.Errorf("remark: got %v", masked["remark"])
	}
}

func TestMaskingCreateRuleValidation(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewMaskingService(db, &memClassificationStore{levels: make(map[string]string)})

	cases := []struct {
		name string
		rule models.MaskingRule
	}{
		{"missing tenant", models.MaskingRule{DatasetID: "d", FieldName: "f", Strategy: models.MaskStrategyPhone}},
		{"missing field", models.MaskingRule{TenantID: 1, DatasetID: "d", Strategy: models.MaskStrategyPhone}},
		{"bad strategy", models.MaskingRule{TenantID: 1, DatasetID: "d", FieldName: "f", Strategy: "rot13"}},
		{"custom without pattern", models.MaskingRule{TenantID: 1, DatasetID: "d", FieldName: "f", Strategy: models.MaskStrategyCustom}},
	}
	for _, tc := range cases {
		rule := tc.rule
		if err := svc.CreateRule(&rule); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
