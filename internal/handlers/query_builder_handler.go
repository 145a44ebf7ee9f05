package handlers

import (
	"adgp/internal/services"
	"adgp/pkg/response"

	"github.com/gin-gonic/gin"
)

type QueryBuilderHandler struct {
	service *services.QueryBuilderService
}

func NewQueryBuilderHandler(service *services.QueryBuilderService) *QueryBuilderHandler {
	return &QueryBuilderHandler{service: service}
}

// Build 构建SELECT语句
func (h *QueryBuilderHandler) Build(c *gin.Context) {
	var req services.QueryBuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	sql, args, err := h.service.Build(&req)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"sql":  sql,
		"args": args,
	})
}
