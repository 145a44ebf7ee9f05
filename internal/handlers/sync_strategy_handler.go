package handlers

import (
	"strconv"
	"strings"

	"adgp/internal/models"
	"adgp/internal/services"
	"adgp/pkg/pagination"
	"adgp/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

// CreateSyncStrategyRequest 创建同步策略请求
type CreateSyncStrategyRequest struct {
	Name           string         `json:"name" binding:"required"`
	SourceConfigID uint           `json:"source_config_id" binding:"required"`
	TargetConfigID uint           `json:"target_config_id" binding:"required"`
	SyncMode       string         `json:"sync_mode" binding:"required"`
	CronExpr       string         `json:"cron_expr" binding:"required,cron"`
	TableMappings  datatypes.JSON `json:"table_mappings"`
	MaxRetries     int            `json:"max_retries"`
	RetryInterval  int            `json:"retry_interval"`
	Backoff        bool           `json:"backoff"`
	Enabled        bool           `json:"enabled"`
}

type SyncStrategyHandler struct {
	service   *services.SyncStrategyService
	scheduler *services.SyncScheduler
}

func NewSyncStrategyHandler(service *services.SyncStrategyService, scheduler *services.SyncScheduler) *SyncStrategyHandler {
	return &SyncStrategyHandler{service: service, scheduler: scheduler}
}

// Create 创建同步策略
func (h *SyncStrategyHandler) Create(c *gin.Context) {
	var req CreateSyncStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErr, ok := err.(validator.ValidationErrors); ok {
			response.BadRequest(c, "参数校验失败: "+validationErr.Error())
			return
		}
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	strategy := &models.SyncStrategy{
		TenantID:       currentTenantID(c),
		Name:           req.Name,
		SourceConfigID: req.SourceConfigID,
		TargetConfigID: req.TargetConfigID,
		SyncMode:       req.SyncMode,
		CronExpr:       req.CronExpr,
		TableMappings:  req.TableMappings,
		MaxRetries:     req.MaxRetries,
		RetryInterval:  req.RetryInterval,
		Backoff:        req.Backoff,
		Enabled:        req.Enabled,
	}

	if err := h.service.Create(strategy, currentUserID(c)); err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "非法") || strings.Contains(errMsg, "不能") || strings.Contains(errMsg, "不存在") {
			response.BadRequest(c, errMsg)
			return
		}
		response.ServerError(c, "创建失败")
		return
	}

	response.Success(c, strategy)
}

// Update 更新同步策略
func (h *SyncStrategyHandler) Update(c *gin.Context) {
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

// Delete 删除同步策略
func (h *SyncStrategyHandler) Delete(c *gin.Context) {
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

// GetByID 获取同步策略
func (h *SyncStrategyHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	strategy, err := h.service.GetByID(uint(id), currentTenantID(c))
	if err != nil {
		if strings.Contains(err.Error(), "不存在") {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, strategy)
}

// GetAll 分页查询同步策略
func (h *SyncStrategyHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)

	var enabled *bool
	if v := c.Query("enabled"); v != "" {
		b := v == "true"
		enabled = &b
	}

	strategies, total, err := h.service.List(currentTenantID(c), enabled, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, strategies, pageInfo)
}

// Enable 启用同步策略
func (h *SyncStrategyHandler) Enable(c *gin.Context) {
	h.toggle(c, true)
}

// Disable 停用同步策略
func (h *SyncStrategyHandler) Disable(c *gin.Context) {
	h.toggle(c, false)
}

func (h *SyncStrategyHandler) toggle(c *gin.Context, enabled bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	if err := h.service.SetEnabled(uint(id), currentTenantID(c), enabled, currentUserID(c)); err != nil {
		if strings.Contains(err.Error(), "不存在") {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "操作失败")
		return
	}

	response.SuccessWithMessage(c, "操作成功", nil)
}

// Run 手动触发一次同步
func (h *SyncStrategyHandler) Run(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	runID, err := h.scheduler.TriggerRun(uint(id), currentTenantID(c))
	if err != nil {
		if strings.Contains(err.Error(), "不存在") {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "触发失败")
		return
	}

	response.Success(c, gin.H{"run_id": runID})
}

// GetRuns 分页查询执行记录
func (h *SyncStrategyHandler) GetRuns(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	pageParams := pagination.ParsePageParams(c)
	runs, total, err := h.service.ListRuns(currentTenantID(c), uint(id), pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, runs, pageInfo)
}
