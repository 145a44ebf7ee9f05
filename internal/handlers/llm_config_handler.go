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

// CreateLLMConfigRequest 创建LLM配置请求
type CreateLLMConfigRequest struct {
	Name      string         `json:"name" binding:"required"`
	Provider  string         `json:"provider" binding:"required"`
	ModelName string         `json:"model_name" binding:"required"`
	APIBase   string         `json:"api_base"`
	APIKey    string         `json:"api_key"`
	Params    datatypes.JSON `json:"params"`
	IsDefault bool           `json:"is_default"`
	Remark    string         `json:"remark"`
}

type LLMConfigHandler struct {
	service *services.LLMConfigService
}

func NewLLMConfigHandler(service *services.LLMConfigService) *LLMConfigHandler {
	return &LLMConfigHandler{service: service}
}

// Create 创建LLM配置
func (h *LLMConfigHandler) Create(c *gin.Context) {
	var req CreateLLMConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	config := &models.LLMConfig{
		TenantID:  currentTenantID(c),
		Name:      req.Name,
		Provider:  req.Provider,
		ModelName: req.ModelName,
		APIBase:   req.APIBase,
		APIKey:    req.APIKey,
		Params:    req.Params,
		IsDefault: req.IsDefault,
		Status:    "active",
		Remark:    req.Remark,
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

	config.APIKey = ""
	response.Success(c, config)
}

// Update 更新LLM配置
func (h *LLMConfigHandler) Update(c *gin.Context) {
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
	// 租户与主键不可改
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

// Delete 删除LLM配置
func (h *LLMConfigHandler) Delete(c *gin.Context) {
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

// GetByID 获取LLM配置
func (h *LLMConfigHandler) GetByID(c *gin.Context) {
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

// GetAll 分页查询LLM配置
func (h *LLMConfigHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)
	provider := c.Query("provider")
	status := c.Query("status")

	configs, total, err := h.service.List(currentTenantID(c), provider, status, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, configs, pageInfo)
}

// SetDefault 设为租户默认配置
func (h *LLMConfigHandler) SetDefault(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	if err := h.service.SetDefault(uint(id), currentTenantID(c), currentUserID(c)); err != nil {
		if strings.Contains(err.Error(), "不存在") {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "设置失败")
		return
	}

	response.SuccessWithMessage(c, "设置成功", nil)
}

// TestConnection 测试配置连通性
func (h *LLMConfigHandler) TestConnection(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	if err := h.service.TestConnection(uint(id), currentTenantID(c)); err != nil {
		if strings.Contains(err.Error(), "不存在") {
			response.NotFound(c, err.Error())
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	response.SuccessWithMessage(c, "配置可用", nil)
}
