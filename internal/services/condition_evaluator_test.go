package services

import (
	"adgp/internal/models"
	"testing"
	"time"
)

func TestInTimeWindow(t *testing.T) {
	at := func(hour, min int) time.Time {
		return time.Date(2024, 6, 3, hour, min, 0, 0, time.Local)
	}

	cases := []struct {
		name       string
		now        time.Time
		start, end string
		want       bool
	}{
		{"inside", at(10, 0), "09:00", "18:00", true},
		{"at-start", at(9, 0), "09:00", "18:00", true},
		{"at-end", at(18, 0), "09:00", "18:00", false},
		{"before", at(8, 59), "09:00", "18:00", false},
		{"overnight-late", at(23, 30), "22:00", "06:00", true},
		{"overnight-early", at(5, 0), "22:00", "06:00", true},
		{"overnight-outside", at(12, 0), "22:00", "06:00", false},
		{"bad-format", at(12, 0), "9am", "6pm", false},
	}

	for _, tc := range cases {
		if got := inTimeWindow(tc.now, tc.start, tc.end); got != tc.want {
			t.Errorf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestEvaluateConditionsExpressionError(t *testing.T) {
	// 表达式求值出错视为条件不通过，而不是panic或放行
	cond := &models.GrantConditions{Expression: "undefined_var > 1"}
	if evaluateConditions(cond, conditionEnv{Now: time.Now()}) {
		t.Fatalf("求值出错的条件不应通过")
	}

	nonBool := &models.GrantConditions{Expression: "1 + 1"}
	if evaluateConditions(nonBool, conditionEnv{Now: time.Now()}) {
		t.Fatalf("非布尔结果的条件不应通过")
	}
}

func TestEvaluateNilConditions(t *testing.T) {
	if !evaluateConditions(nil, conditionEnv{Now: time.Now()}) {
		t.Fatalf("无条件应通过")
	}
}
