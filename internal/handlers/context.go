package handlers

import (
	"github.com/gin-gonic/gin"
)

// currentTenantID 取当前操作租户，由RequireLogin写入
func currentTenantID(c *gin.Context) uint {
	if v, exists := c.Get("current_tenant_id"); exists {
		return v.(uint)
	}
	return 0
}

// currentUserID 取当前登录用户ID
func currentUserID(c *gin.Context) uint {
	if v, exists := c.Get("user_id"); exists {
		return v.(uint)
	}
	return 0
}
