package services

import (
	"adgp/internal/models"
	"adgp/pkg/logger"
	"time"

	"github.com/expr-lang/expr"
)

// conditionEnv 条件表达式的求值环境
type conditionEnv struct {
	TenantID   uint
	UserID     uint
	Action     string
	ResourceID string
	Now        time.Time
}

// evaluateConditions 求值授权条件
//
// 条件不通过只是跳过该条授权，不构成显式拒绝。表达式求值出错
// 视为条件不通过（记录日志）。
func evaluateConditions(cond *models.GrantConditions, env conditionEnv) bool {
	if cond == nil {
		return true
	}

	// 每日时间窗
	if cond.TimeStart != "" && cond.TimeEnd != "" {
		if !inTimeWindow(env.Now, cond.TimeStart, cond.TimeEnd) {
			return false
		}
	}

	// expr表达式
	if cond.Expression != "" {
		out, err := expr.Eval(cond.Expression, map[string]interface{}{
			"tenant_id":   env.TenantID,
			"user_id":     env.UserID,
			"action":      env.Action,
			"resource_id": env.ResourceID,
			"hour":        env.Now.Hour(),
			"weekday":     int(env.Now.Weekday()),
		})
		if err != nil {
			logger.GetLogger().Warnf("授权条件表达式求值失败: %v", err)
			return false
		}
		pass, ok := out.(bool)
		if !ok || !pass {
			return false
		}
	}

	return true
}

// inTimeWindow 判断时刻是否落在每日时间窗内
//
// 窗口为[start, end)，end小于start时视为跨零点窗口。
func inTimeWindow(now time.Time, start, end string) bool {
	startT, err := time.Parse("15:04", start)
	if err != nil {
		return false
	}
	endT, err := time.Parse("15:04", end)
	if err != nil {
		return false
	}

	startMin := startT.Hour()*60 + startT.Minute()
	endMin := endT.Hour()*60 + endT.Minute()
	nowMin := now.Hour()*60 + now.Minute()

	if startMin <= endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	// 跨零点
	return nowMin >= startMin || nowMin < endMin
}
