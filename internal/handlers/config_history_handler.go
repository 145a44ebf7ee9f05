package handlers

import (
	"strconv"
	"strings"

	"adgp/internal/services"
	"adgp/pkg/pagination"
	"adgp/pkg/response"

	"github.com/gin-gonic/gin"
)

// RollbackRequest 回滚请求
type RollbackRequest struct {
	ConfigType string `json:"config_type" binding:"required"`
	ConfigID   uint   `json:"config_id" binding:"required"`
	Version    int    `json:"version" binding:"required"`
}

type ConfigHistoryHandler struct {
	service *services.ConfigHistoryService
}

func NewConfigHistoryHandler(service *services.ConfigHistoryService) *ConfigHistoryHandler {
	return &ConfigHistoryHandler{service: service}
}

// GetAll 分页查询配置变更历史
func (h *ConfigHistoryHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)
	configType := c.Query("config_type")

	var configID uint
	if v := c.Query("config_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			response.BadRequest(c, "config_id格式错误")
			return
		}
		configID = uint(id)
	}

	histories, total, err := h.service.List(currentTenantID(c), configType, configID, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, histories, pageInfo)
}

// GetVersion 查询指定版本
func (h *ConfigHistoryHandler) GetVersion(c *gin.Context) {
	configType := c.Query("config_type")
	configIDStr := c.Query("config_id")
	versionStr := c.Query("version")

	configID, err := strconv.ParseUint(configIDStr, 10, 32)
	if err != nil {
		response.BadRequest(c, "config_id格式错误")
		return
	}
	version, err := strconv.Atoi(versionStr)
	if err != nil {
		response.BadRequest(c, "version格式错误")
		return
	}

	history, err := h.service.GetVersion(currentTenantID(c), configType, uint(configID), version)
	if err != nil {
		if strings.Contains(err.Error(), "不存在") {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, history)
}

// Rollback 回滚配置到指定版本
func (h *ConfigHistoryHandler) Rollback(c *gin.Context) {
	var req RollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	err := h.service.Rollback(currentTenantID(c), req.ConfigType, req.ConfigID, req.Version, currentUserID(c))
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "不存在") {
			response.NotFound(c, errMsg)
			return
		}
		if strings.Contains(errMsg, "非法") {
			response.BadRequest(c, errMsg)
			return
		}
		response.ServerError(c, "回滚失败")
		return
	}

	response.SuccessWithMessage(c, "回滚成功", nil)
}
