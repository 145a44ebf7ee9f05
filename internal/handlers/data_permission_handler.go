package handlers

import (
	"strconv"
	"strings"
	"time"

	"adgp/internal/models"
	"adgp/internal/services"
	"adgp/pkg/pagination"
	"adgp/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

// ========== 请求结构 ==========

// CheckPermissionRequest 数据集层级权限检查请求
type CheckPermissionRequest struct {
	UserID    uint   `json:"user_id" binding:"required"`
	DatasetID string `json:"dataset_id" binding:"required"`
	Action    string `json:"action" binding:"required,permaction"`
}

// CheckRecordPermissionRequest 记录层级权限检查请求
type CheckRecordPermissionRequest struct {
	UserID    uint   `json:"user_id" binding:"required"`
	DatasetID string `json:"dataset_id" binding:"required"`
	RecordID  string `json:"record_id" binding:"required"`
	Action    string `json:"action" binding:"required,permaction"`
}

// CheckFieldPermissionRequest 字段层级权限检查请求
type CheckFieldPermissionRequest struct {
	UserID    uint   `json:"user_id" binding:"required"`
	DatasetID string `json:"dataset_id" binding:"required"`
	FieldName string `json:"field_name" binding:"required"`
	Action    string `json:"action" binding:"required,permaction"`
}

// CheckTagPermissionRequest 标签匹配权限检查请求
type CheckTagPermissionRequest struct {
	UserID uint     `json:"user_id" binding:"required"`
	Tags   []string `json:"tags" binding:"required"`
	Action string   `json:"action" binding:"required,permaction"`
}

// CreateGrantRequest 创建授权请求
//
// user_id与role_id二选一；expires_at为空表示永久授权。
type CreateGrantRequest struct {
	ResourceLevel string         `json:"resource_level" binding:"required"`
	ResourceID    string         `json:"resource_id" binding:"required"`
	FieldName     *string        `json:"field_name"`
	UserID        *uint          `json:"user_id"`
	RoleID        *uint          `json:"role_id"`
	Action        string         `json:"action" binding:"required,permaction"`
	Conditions    datatypes.JSON `json:"conditions"`
	Tags          datatypes.JSON `json:"tags"`
	ExpiresAt     *time.Time     `json:"expires_at"`
	IsTemporary   bool           `json:"is_temporary"`
}

// RevokeGrantRequest 撤销授权请求
type RevokeGrantRequest struct {
	UserID       *uint   `json:"user_id"`
	RoleID       *uint   `json:"role_id"`
	ResourceType string  `json:"resource_type" binding:"required"`
	ResourceID   string  `json:"resource_id" binding:"required"`
	Action       string  `json:"action" binding:"required,permaction"`
	FieldName    *string `json:"field_name"`
}

type DataPermissionHandler struct {
	service *services.DataPermissionService
	grants  *services.GormGrantStore
}

func NewDataPermissionHandler(service *services.DataPermissionService, grants *services.GormGrantStore) *DataPermissionHandler {
	return &DataPermissionHandler{service: service, grants: grants}
}

// ========== 权限检查 ==========

// Check 检查数据集层级权限
func (h *DataPermissionHandler) Check(c *gin.Context) {
	var req CheckPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.service.CheckDatasetPermission(currentTenantID(c), req.UserID, req.DatasetID, req.Action)
	if err != nil {
		response.ServerError(c, "权限检查失败")
		return
	}

	response.Success(c, result)
}

// CheckRecord 检查记录层级权限
func (h *DataPermissionHandler) CheckRecord(c *gin.Context) {
	var req CheckRecordPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.service.CheckRecordPermission(currentTenantID(c), req.UserID, req.DatasetID, req.RecordID, req.Action)
	if err != nil {
		response.ServerError(c, "权限检查失败")
		return
	}

	response.Success(c, result)
}

// CheckField 检查字段层级权限
func (h *DataPermissionHandler) CheckField(c *gin.Context) {
	var req CheckFieldPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.service.CheckFieldPermission(currentTenantID(c), req.UserID, req.DatasetID, req.FieldName, req.Action)
	if err != nil {
		response.ServerError(c, "权限检查失败")
		return
	}

	response.Success(c, result)
}

// CheckTags 检查标签匹配权限
func (h *DataPermissionHandler) CheckTags(c *gin.Context) {
	var req CheckTagPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	allowed, err := h.service.CheckTagPermission(currentTenantID(c), req.UserID, req.Tags, req.Action)
	if err != nil {
		response.ServerError(c, "权限检查失败")
		return
	}

	response.Success(c, gin.H{"allowed": allowed})
}

// ========== 授权管理 ==========

// CreateGrant 创建授权
func (h *DataPermissionHandler) CreateGrant(c *gin.Context) {
	var req CreateGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if (req.UserID == nil) == (req.RoleID == nil) {
		response.BadRequest(c, "user_id与role_id必须且只能指定一个")
		return
	}

	grant := &models.PermissionGrant{
		TenantID:      currentTenantID(c),
		ResourceLevel: req.ResourceLevel,
		ResourceType:  req.ResourceLevel,
		ResourceID:    req.ResourceID,
		FieldName:     req.FieldName,
		UserID:        req.UserID,
		RoleID:        req.RoleID,
		Action:        req.Action,
		Conditions:    req.Conditions,
		Tags:          req.Tags,
		GrantedBy:     currentUserID(c),
		ExpiresAt:     req.ExpiresAt,
		IsTemporary:   req.IsTemporary,
	}

	if err := h.service.GrantPermission(grant); err != nil {
		if strings.Contains(err.Error(), "非法") || strings.Contains(err.Error(), "不能为空") || strings.Contains(err.Error(), "不一致") {
			response.BadRequest(c, err.Error())
			return
		}
		response.ServerError(c, "创建授权失败")
		return
	}

	response.Success(c, grant)
}

// RevokeGrant 撤销授权
func (h *DataPermissionHandler) RevokeGrant(c *gin.Context) {
	var req RevokeGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	revoked, err := h.service.RevokePermission(currentTenantID(c), req.UserID, req.RoleID,
		req.ResourceType, req.ResourceID, req.Action, req.FieldName)
	if err != nil {
		response.ServerError(c, "撤销授权失败")
		return
	}
	if !revoked {
		response.NotFound(c, "没有匹配的活跃授权")
		return
	}

	response.SuccessWithMessage(c, "撤销成功", nil)
}

// GetGrants 分页查询授权记录
func (h *DataPermissionHandler) GetGrants(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)

	var userID *uint
	if raw := c.Query("user_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			response.BadRequest(c, "user_id格式错误")
			return
		}
		id := uint(parsed)
		userID = &id
	}
	resourceType := c.Query("resource_type")
	resourceID := c.Query("resource_id")
	activeOnly := c.Query("active_only") == "true"

	grants, total, err := h.grants.ListGrants(currentTenantID(c), userID, resourceType, resourceID,
		activeOnly, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, grants, pageInfo)
}
