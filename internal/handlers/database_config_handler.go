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

// CreateDatabaseConfigRequest 创建数据库配置请求
type CreateDatabaseConfigRequest struct {
	Name     string         `json:"name" binding:"required"`
	DBType   string         `json:"db_type" binding:"required"`
	Host     string         `json:"host" binding:"required"`
	Port     int            `json:"port" binding:"required"`
	Username string         `json:"username"`
	Password string         `json:"password"`
	Database string         `json:"database"`
	Params   datatypes.JSON `json:"params"`
	Remark   string         `json:"remark"`
}

type DatabaseConfigHandler struct {
	service *services.DatabaseConfigService
}

func NewDatabaseConfigHandler(service *services.DatabaseConfigService) *DatabaseConfigHandler {
	return &DatabaseConfigHandler{service: service}
}

// Create 创建数据库配置
func (h *DatabaseConfigHandler) Create(c *gin.Context) {
	var req CreateDatabaseConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	config := &models.DatabaseConfig{
		TenantID: currentTenantID(c),
		Name:     req.Name,
		DBType:   req.DBType,
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
		Database: req.Database,
		Params:   req.Params,
		Status:   "active",
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

	config.Password = ""
	response.Success(c, config)
}

// Update 更新数据库配置
func (h *DatabaseConfigHandler) Update(c *gin.Context) {
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

// Delete 删除数据库配置
func (h *DatabaseConfigHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	if err := h.service.Delete(uint(id), currentTenantID(c), currentUserID(c)); err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "引用") {
			response.Conflict(c, errMsg)
			return
		}
		if strings.Contains(errMsg, "不存在") {
			response.NotFound(c, errMsg)
			return
		}
		response.ServerError(c, "删除失败")
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// GetByID 获取数据库配置
func (h *DatabaseConfigHandler) GetByID(c *gin.Context) {
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

// GetAll 分页查询数据库配置
func (h *DatabaseConfigHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)
	dbType := c.Query("db_type")
	status := c.Query("status")

	configs, total, err := h.service.List(currentTenantID(c), dbType, status, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, configs, pageInfo)
}
