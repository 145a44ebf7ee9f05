package handlers

import (
	"strconv"
	"strings"

	"adgp/internal/models"
	"adgp/internal/services"
	"adgp/pkg/pagination"
	"adgp/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

// CreateToolConfigRequest 创建工具配置请求
type CreateToolConfigRequest struct {
	Name     string         `json:"name" binding:"required"`
	ToolType string         `json:"tool_type" binding:"required"`
	Endpoint string         `json:"endpoint"`
	Secret   string         `json:"secret"`
	Extra    datatypes.JSON `json:"extra"`
	Enabled  bool           `json:"enabled"`
	Remark   string         `json:"remark"`
}

type ToolConfigHandler struct {
	service *services.ToolConfigService
}

func NewToolConfigHandler(service *services.ToolConfigService) *ToolConfigHandler {
	return &ToolConfigHandler{service: service}
}

// Create 创建工具配置
func (h *ToolConfigHandler) Create(c *gin.Context) {
	var req CreateToolConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	config := &models.ToolConfig{
		TenantID: currentTenantID(c),
		Name:     req.Name,
		ToolType: req.ToolType,
		Endpoint: req.Endpoint,
		Secret:   req.Secret,
		Extra:    req.Extra,
		Enabled:  req.Enabled,
		Remark:   req.Remark,
	}

	if err := h.service.Create(config, currentUserID(c)); err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "已存在") {
			response.Conflict(c, errMsg)
			return
		}
		if strings.Contains(errMsg, "非法") || strings.Contains(errMsg, "不能为空") {
			response.BadRequest(c, errMsg)
			return
		}
		response.ServerError(c, "创建失败")
		return
	}

	config.Secret = ""
	response.Success(c, config)
}

// Update 更新工具配置
func (h *ToolConfigHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	delete(updates, "id")
	delete(updates, "tenant_id")

	if err := h.service.Update(uint(id), currentTenantID(c), updates, currentUserID(c)); err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "不存在") {
			response.NotFound(c, errMsg)
			return
		}
		if strings.Contains(errMsg, "非法") {
			response.BadRequest(c, errMsg)
			return
		}
		response.ServerError(c, "更新失败")
		return
	}

	response.SuccessWithMessage(c, "更新成功", nil)
}

// Delete 删除工具配置
func (h *ToolConfigHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	if err := h.service.Delete(uint(id), currentTenantID(c), currentUserID(c)); err != nil {
		if strings.Contains(err.Error(), "不存在") {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "删除失败")
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// GetByID 获取工具配置
func (h *ToolConfigHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	config, err := h.service.GetByID(uint(id), currentTenantID(c))
	if err != nil {
		if strings.Contains(err.Error(), "不存在") {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, config)
}

// GetAll 分页查询工具配置
func (h *ToolConfigHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)
	toolType := c.Query("tool_type")

	configs, total, err := h.service.List(currentTenantID(c), toolType, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, configs, pageInfo)
}
