package services

import (
	"reflect"
	"testing"
)

func TestQueryBuilderSimpleSelect(t *testing.T) {
	svc := NewQueryBuilderService()

	sql, args, err := svc.Build(&QueryBuildRequest{
		Table: "orders",
		Columns: []QueryColumn{
			{Field: "id"},
			{Field: "amount", Alias: "total"},
		},
		Where: []QueryCondition{
			{Field: "status", Operator: "=", Value: "paid"},
			{Field: "amount", Operator: ">", Value: 100},
		},
		OrderBy: []QueryOrder{{Field: "created_at", Desc: true}},
		Limit:   20,
		Offset:  40,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := "SELECT id, amount AS total FROM orders WHERE status = $1 AND amount > $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4"
	if sql != want {
		t.Fatalf("sql = %q, want %q", sql, want)
	}
	wantArgs := []interface{}{"paid", 100, 20, 40}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args = %v, want %v", args, wantArgs)
	}
}

func TestQueryBuilderAggregatesAndJoin(t *testing.T) {
	svc := NewQueryBuilderService()

	sql, args, err := svc.Build(&QueryBuildRequest{
		Table: "orders",
		Columns: []QueryColumn{
			{Field: "customers.region"},
			{Field: "*", Func: "count", Alias: "cnt"},
			{Field: "orders.amount", Func: "sum", Alias: "total"},
		},
		Joins: []QueryJoin{
			{Type: "left", Table: "customers", OnLeft: "orders.customer_id", OnRight: "customers.id"},
		},
		GroupBy: []string{"customers.region"},
		Having: []QueryCondition{
			{Field: "customers.region", Operator: "!=", Value: "test"},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := "SELECT customers.region, COUNT(*) AS cnt, SUM(orders.amount) AS total FROM orders" +
		" LEFT JOIN customers ON orders.customer_id = customers.id" +
		" GROUP BY customers.region HAVING customers.region != $1"
	if sql != want {
		t.Fatalf("sql = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != "test" {
		t.Fatalf("args = %v", args)
	}
}

func TestQueryBuilderInBetweenNullOperators(t *testing.T) {
	svc := NewQueryBuilderService()

	sql, args, err := svc.Build(&QueryBuildRequest{
		Table: "users",
		Where: []QueryCondition{
			{Field: "status", Operator: "in", Values: []interface{}{"active", "locked"}},
			{Field: "age", Operator: "between", Values: []interface{}{18, 60}},
			{Field: "deleted_at", Operator: "is null", Connector: "and"},
			{Field: "email", Operator: "is not null", Connector: "or"},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := "SELECT * FROM users WHERE status IN ($1, $2) AND age BETWEEN $3 AND $4 AND deleted_at IS NULL OR email IS NOT NULL"
	if sql != want {
		t.Fatalf("sql = %q, want %q", sql, want)
	}
	if len(args) != 4 {
		t.Fatalf("args = %v", args)
	}
}

func TestQueryBuilderRejectsBadInput(t *testing.T) {
	svc := NewQueryBuilderService()

	tests := []struct {
		name string
		req  *QueryBuildRequest
	}{
		{"空表名", &QueryBuildRequest{}},
		{"注入表名", &QueryBuildRequest{Table: "users; DROP TABLE users"}},
		{"注入列名", &QueryBuildRequest{
			Table:   "users",
			Columns: []QueryColumn{{Field: "id, (SELECT 1)"}},
		}},
		{"非法操作符", &QueryBuildRequest{
			Table: "users",
			Where: []QueryCondition{{Field: "id", Operator: "~", Value: 1}},
		}},
		{"非法聚合函数", &QueryBuildRequest{
			Table:   "users",
			Columns: []QueryColumn{{Field: "id", Func: "group_concat"}},
		}},
		{"非法连接类型", &QueryBuildRequest{
			Table: "users",
			Joins: []QueryJoin{{Type: "cross", Table: "roles", OnLeft: "a", OnRight: "b"}},
		}},
		{"in缺values", &QueryBuildRequest{
			Table: "users",
			Where: []QueryCondition{{Field: "id", Operator: "in"}},
		}},
		{"between参数数量错误", &QueryBuildRequest{
			Table: "users",
			Where: []QueryCondition{{Field: "id", Operator: "between", Values: []interface{}{1}}},
		}},
		{"having缺group", &QueryBuildRequest{
			Table:  "users",
			Having: []QueryCondition{{Field: "id", Operator: "=", Value: 1}},
		}},
		{"limit超限", &QueryBuildRequest{Table: "users", Limit: 100000}},
		{"负offset", &QueryBuildRequest{Table: "users", Offset: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.Build(tt.req); err == nil {
				t.Fatalf("期望返回错误")
			}
		})
	}
}
