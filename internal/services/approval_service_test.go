package services

import (
	"testing"

	"adgp/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newApprovalService(t *testing.T, levels map[string]string) (*ApprovalService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	classes := &memClassificationStore{levels: levels}
	return NewApprovalService(db, nil, classes), mock
}

func TestApprovalCreateRequestValidation(t *testing.T) {
	svc, _ := newApprovalService(t, map[string]string{})

	cases := []struct {
		name    string
		tenant  uint
		user    uint
		level   string
		dataset string
		res     string
		field   *string
		action  string
	}{
		{"missing tenant", 0, 1, models.ResourceLevelDataset, "", "sales", nil, models.DataActionRead},
		{"missing applicant", 1, 0, models.ResourceLevelDataset, "", "sales", nil, models.DataActionRead},
		{"bad level", 1, 1, "column", "", "sales", nil, models.DataActionRead},
		{"empty resource", 1, 1, models.ResourceLevelDataset, "", "", nil, models.DataActionRead},
		{"bad action", 1, 1, models.ResourceLevelDataset, "", "sales", nil, "truncate"},
		{"field without name", 1, 1, models.ResourceLevelField, "", "sales", nil, models.DataActionRead},
		{"field with empty name", 1, 1, models.ResourceLevelField, "", "sales", new(string), models.DataActionRead},
		{"record without dataset", 1, 1, models.ResourceLevelRecord, "", "row-42", nil, models.DataActionRead},
	}
	for _, tc := range cases {
		_, err := svc.CreateRequest(tc.tenant, tc.user, tc.level, tc.dataset, tc.res, tc.field, tc.action, "reason")
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestApprovalCreateRequestRequiredLevels(t *testing.T) {
	cases := []struct {
		name     string
		levels   map[string]string
		level    string
		dataset  string
		res      string
		expected int
	}{
		{"confidential single level", map[string]string{"sales": models.SensitivityConfidential}, models.ResourceLevelDataset, "", "sales", 1},
		{"top secret two levels", map[string]string{"sales": models.SensitivityTopSecret}, models.ResourceLevelDataset, "", "sales", 2},
		// record层级按所属数据集的敏感级别定级
		{"record in top secret dataset", map[string]string{"sales": models.SensitivityTopSecret}, models.ResourceLevelRecord, "sales", "row-42", 2},
	}

	for _, tc := range cases {
		svc, mock := newApprovalService(t, tc.levels)

		// 重复pending检查
		mock.ExpectQuery(`SELECT count\(\*\) FROM "approval_requests"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "approval_requests"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		request, err := svc.CreateRequest(1, 10, tc.level, tc.dataset, tc.res, nil, models.DataActionRead, "季度分析")
		if err != nil {
			t.Fatalf("%s: create request: %v", tc.name, err)
		}

		if request.RequiredLevel != tc.expected {
			t.Errorf("%s: required level %d, want %d", tc.name, request.RequiredLevel, tc.expected)
		}
		if request.Status != models.ApprovalStatusPending {
			t.Errorf("%s: status %s", tc.name, request.Status)
		}
		if request.RequestNo == "" {
			t.Errorf("%s: empty request no", tc.name)
		}
		if request.ExpiresAt == nil {
			t.Errorf("%s: missing expiry", tc.name)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("%s: expectations: %v", tc.name, err)
		}
	}
}

func TestApprovalCreateRequestDuplicatePending(t *testing.T) {
	svc, mock := newApprovalService(t, map[string]string{})

	mock.ExpectQuery(`SELECT count\(\*\) FROM "approval_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := svc.CreateRequest(1, 10, models.ResourceLevelDataset, "", "sales", nil, models.DataActionRead, "reason")
	if err == nil {
		t.Fatal("expected duplicate pending error")
	}
}

func TestApprovalCancelOnlyPendingByApplicant(t *testing.T) {
	svc, mock := newApprovalService(t, map[string]string{})

	// 非申请人或非pending状态均不命中任何行
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "approval_requests" SET .*status.*`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := svc.Cancel(5, 1, 99); err == nil {
		t.Fatal("expected error for non-matching cancel")
	}
}
