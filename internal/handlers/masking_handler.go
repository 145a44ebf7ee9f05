package handlers

import (
	"strconv"
	"strings"

	"adgp/internal/models"
	"adgp/internal/services"
	"adgp/pkg/pagination"
	"adgp/pkg/response"

	"github.com/gin-gonic/gin"
)

// CreateMaskingRuleRequest 创建脱敏规则请求
type CreateMaskingRuleRequest struct {
	DatasetID   string `json:"dataset_id" binding:"required"`
	FieldName   string `json:"field_name" binding:"required"`
	Strategy    string `json:"strategy" binding:"required"`
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Enabled     bool   `json:"enabled"`
	Remark      string `json:"remark"`
}

// MaskPreviewRequest 脱敏预览请求
type MaskPreviewRequest struct {
	DatasetID string                 `json:"dataset_id" binding:"required"`
	Row       map[string]interface{} `json:"row" binding:"required"`
}

type MaskingHandler struct {
	service *services.MaskingService
}

func NewMaskingHandler(service *services.MaskingService) *MaskingHandler {
	return &MaskingHandler{service: service}
}

// Create 创建脱敏规则
func (h *MaskingHandler) Create(c *gin.Context) {
	var req CreateMaskingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	rule := &models.MaskingRule{
		TenantID:    currentTenantID(c),
		DatasetID:   req.DatasetID,
		FieldName:   req.FieldName,
		Strategy:    req.Strategy,
		Pattern:     req.Pattern,
		Replacement: req.Replacement,
		Enabled:     req.Enabled,
		Remark:      req.Remark,
	}

	if err := h.service.CreateRule(rule); err != nil {
		if strings.Contains(err.Error(), "非法") || strings.Contains(err.Error(), "必须") || strings.Contains(err.Error(), "不能为空") {
			response.BadRequest(c, err.Error())
			return
		}
		response.ServerError(c, "创建失败")
		return
	}

	response.Success(c, rule)
}

// Update 更新脱敏规则
func (h *MaskingHandler) Update(c *gin.Context) {
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

	if err := h.service.UpdateRule(uint(id), currentTenantID(c), updates); err != nil {
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

// Delete 删除脱敏规则
func (h *MaskingHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	if err := h.service.DeleteRule(uint(id), currentTenantID(c)); err != nil {
		if strings.Contains(err.Error(), "不存在") {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "删除失败")
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// GetAll 分页查询脱敏规则
func (h *MaskingHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)
	datasetID := c.Query("dataset_id")

	rules, total, err := h.service.ListRules(currentTenantID(c), datasetID, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, rules, pageInfo)
}

// Preview 脱敏预览：对一行样例数据执行脱敏
func (h *MaskingHandler) Preview(c *gin.Context) {
	var req MaskPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	masked, err := h.service.ApplyRow(currentTenantID(c), req.DatasetID, req.Row)
	if err != nil {
		response.ServerError(c, "脱敏失败")
		return
	}

	response.Success(c, gin.H{
		"dataset_id": req.DatasetID,
		"masked":     masked,
	})
}
