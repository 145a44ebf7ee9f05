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

// CreateClassificationRequest 创建分级标注请求
type CreateClassificationRequest struct {
	DatasetID string  `json:"dataset_id" binding:"required"`
	FieldName *string `json:"field_name"`
	Level     string  `json:"level" binding:"required"`
	Notes     string  `json:"notes"`
}

// UpdateClassificationRequest 更新分级标注请求
type UpdateClassificationRequest struct {
	Level string `json:"level" binding:"required"`
	Notes string `json:"notes"`
}

type ClassificationHandler struct {
	service *services.ClassificationService
}

func NewClassificationHandler(service *services.ClassificationService) *ClassificationHandler {
	return &ClassificationHandler{service: service}
}

// Create 创建分级标注
func (h *ClassificationHandler) Create(c *gin.Context) {
	var req CreateClassificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	classification := &models.ResourceClassification{
		TenantID:     currentTenantID(c),
		DatasetID:    req.DatasetID,
		FieldName:    req.FieldName,
		Level:        req.Level,
		ClassifiedBy: currentUserID(c),
		Notes:        req.Notes,
	}

	if err := h.service.Create(classification); err != nil {
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

	response.Success(c, classification)
}

// Update 更新分级标注
func (h *ClassificationHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req UpdateClassificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	classification, err := h.service.Update(uint(id), currentTenantID(c), req.Level, req.Notes, currentUserID(c))
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
		response.ServerError(c, "更新失败")
		return
	}

	response.Success(c, classification)
}

// Delete 删除分级标注
func (h *ClassificationHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	if err := h.service.Delete(uint(id), currentTenantID(c)); err != nil {
		if strings.Contains(err.Error(), "不存在") {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "删除失败")
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// GetByID 获取分级标注
func (h *ClassificationHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	classification, err := h.service.GetByID(uint(id), currentTenantID(c))
	if err != nil {
		if strings.Contains(err.Error(), "不存在") {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, classification)
}

// GetAll 分页查询分级标注
func (h *ClassificationHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)
	datasetID := c.Query("dataset_id")
	level := c.Query("level")

	classifications, total, err := h.service.List(currentTenantID(c), datasetID, level, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, classifications, pageInfo)
}
