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

// CreateApprovalRequest 发起审批申请请求
//
// record层级必须携带dataset_id；dataset和field层级可省略，
// 资源ID本身就是数据集。
type CreateApprovalRequest struct {
	ResourceLevel string  `json:"resource_level" binding:"required"`
	DatasetID     string  `json:"dataset_id"`
	ResourceID    string  `json:"resource_id" binding:"required"`
	FieldName     *string `json:"field_name"`
	Action        string  `json:"action" binding:"required,permaction"`
	Reason        string  `json:"reason" binding:"required"`
}

// ApprovalDecisionRequest 审批决定请求
type ApprovalDecisionRequest struct {
	Comment string `json:"comment"`
}

type ApprovalHandler struct {
	service *services.ApprovalService
}

func NewApprovalHandler(service *services.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

// Create 发起审批申请
func (h *ApprovalHandler) Create(c *gin.Context) {
	var req CreateApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	request, err := h.service.CreateRequest(currentTenantID(c), currentUserID(c),
		req.ResourceLevel, req.DatasetID, req.ResourceID, req.FieldName, req.Action, req.Reason)
	if err != nil {
		errMsg := err.Error()
		switch {
		case strings.Contains(errMsg, "已存在待审批"):
			response.Conflict(c, errMsg)
		case strings.Contains(errMsg, "非法") || strings.Contains(errMsg, "不能为空") || strings.Contains(errMsg, "无需审批"):
			response.BadRequest(c, errMsg)
		default:
			response.ServerError(c, "创建申请失败")
		}
		return
	}

	response.Success(c, request)
}

// Approve 审批通过当前层级
func (h *ApprovalHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject 驳回申请
func (h *ApprovalHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

// Cancel 申请人撤回申请
func (h *ApprovalHandler) Cancel(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	if err := h.service.Cancel(uint(id), currentTenantID(c), currentUserID(c)); err != nil {
		if strings.Contains(err.Error(), "不存在") {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "撤回失败")
		return
	}

	response.SuccessWithMessage(c, "撤回成功", nil)
}

// GetByID 查询审批申请详情（含各层级审批记录）
func (h *ApprovalHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	request, err := h.service.GetByID(uint(id), currentTenantID(c))
	if err != nil {
		if strings.Contains(err.Error(), "不存在") {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, request)
}

// GetAll 分页查询审批申请
func (h *ApprovalHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)
	status := c.Query("status")

	var applicantID uint
	if raw := c.Query("applicant_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			response.BadRequest(c, "applicant_id格式错误")
			return
		}
		applicantID = uint(parsed)
	}

	requests, total, err := h.service.List(currentTenantID(c), status, applicantID, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, requests, pageInfo)
}

// decide 审批通过/驳回的共用流程
func (h *ApprovalHandler) decide(c *gin.Context, op func(requestID, tenantID, approverID uint, comment string) (*models.ApprovalRequest, error)) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req ApprovalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.BadRequest(c, "参数错误")
		return
	}

	request, err := op(uint(id), currentTenantID(c), currentUserID(c), req.Comment)
	if err != nil {
		errMsg := err.Error()
		switch {
		case strings.Contains(errMsg, "不存在"):
			response.NotFound(c, errMsg)
		case strings.Contains(errMsg, "不能审批自己"):
			response.Forbidden(c, errMsg)
		case strings.Contains(errMsg, "已过期") || strings.Contains(errMsg, "状态"):
			response.BadRequest(c, errMsg)
		default:
			response.ServerError(c, "审批操作失败")
		}
		return
	}

	response.Success(c, request)
}
