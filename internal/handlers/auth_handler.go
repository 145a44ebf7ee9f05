package handlers

import (
	"adgp/internal/models"
	"strings"
	"time"

	"adgp/internal/services"
	"adgp/pkg/jwt"
	"adgp/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	userService   *services.UserService
	tenantService *services.TenantService
	jwtManager    *jwt.JWTManager
}

func NewAuthHandler(userService *services.UserService, tenantService *services.TenantService, jwtManager *jwt.JWTManager) *AuthHandler {
	return &AuthHandler{
		userService:   userService,
		tenantService: tenantService,
		jwtManager:    jwtManager,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	TenantID uint   `json:"tenant_id"` // 可选，多租户用户指定登录租户
}

type LoginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expires_at"`
	User      UserInfo `json:"user"`
}

type UserInfo struct {
	ID              uint   `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	TenantID        uint   `json:"tenant_id"`
	IsPlatformAdmin bool   `json:"is_platform_admin"`
	IsTenantAdmin   bool   `json:"is_tenant_admin"`
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user, err := h.userService.GetByUsername(req.Username)
	if err != nil {
		response.Unauthorized(c, "用户名或密码错误")
		return
	}

	if user.Status != models.UserStatusActive {
		response.Unauthorized(c, "用户已被禁用")
		return
	}

	if !user.CheckPassword(req.Password) {
		response.Unauthorized(c, "用户名或密码错误")
		return
	}

	// 确定登录租户：指定则校验成员身份，未指定取首个加入的租户
	tenantID := req.TenantID
	if tenantID != 0 && !user.IsPlatformAdmin {
		inTenant, err := h.userService.InTenant(user.ID, tenantID)
		if err != nil || !inTenant {
			response.Forbidden(c, "用户不属于该租户")
			return
		}
	}
	if tenantID == 0 {
		memberships, err := h.userService.GetByID(user.ID)
		if err == nil && len(memberships.Tenants) > 0 {
			tenantID = memberships.Tenants[0].ID
		}
	}

	isTenantAdmin := false
	if tenantID != 0 {
		isTenantAdmin, _ = h.userService.IsTenantAdmin(user.ID, tenantID)
	}

	token, err := h.jwtManager.GenerateToken(
		user.ID,
		tenantID,
		user.Username,
		user.IsPlatformAdmin,
		isTenantAdmin,
	)
	if err != nil {
		response.ServerError(c, "生成Token失败")
		return
	}

	if err := h.userService.UpdateLastLogin(user.ID); err != nil {
		// 不影响登录流程
	}

	expiresAt := time.Now().Add(h.jwtManager.GetTokenDuration()).Unix()

	resp := LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User: UserInfo{
			ID:              user.ID,
			Username:        user.Username,
			Email:           user.Email,
			Name:            user.Name,
			TenantID:        tenantID,
			IsPlatformAdmin: user.IsPlatformAdmin,
			IsTenantAdmin:   isTenantAdmin,
		},
	}

	response.Success(c, resp)
}

// Logout 用户登出
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		response.Success(c, gin.H{"message": "登出成功"})
		return
	}

	tokenString := authHeader[7:]
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		response.Success(c, gin.H{"message": "登出成功"})
		return
	}

	response.Success(c, gin.H{
		"message":     "登出成功",
		"user_id":     claims.UserID,
		"username":    claims.Username,
		"logout_time": time.Now(),
	})
}

// RefreshToken 刷新Token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		response.Unauthorized(c, "缺少认证头")
		return
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		response.Unauthorized(c, "认证头格式错误")
		return
	}

	tokenString := authHeader[7:]
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		response.Unauthorized(c, "Token无效")
		return
	}

	user, err := h.userService.GetByID(claims.UserID)
	if err != nil {
		response.Unauthorized(c, "用户不存在")
		return
	}
	if user.Status != models.UserStatusActive {
		response.Unauthorized(c, "用户已被禁用")
		return
	}

	newToken, err := h.jwtManager.RefreshToken(tokenString)
	if err != nil {
		response.ServerError(c, "生成新Token失败")
		return
	}

	expiresAt := time.Now().Add(h.jwtManager.GetTokenDuration()).Unix()
	response.Success(c, gin.H{
		"token":      newToken,
		"expires_at": expiresAt,
		"message":    "Token刷新成功",
	})
}

// SwitchTenantRequest 切换租户请求
type SwitchTenantRequest struct {
	TenantID uint `json:"tenant_id" binding:"required"`
}

// SwitchTenant 切换当前操作租户
//
// 平台管理员可切换到任意激活租户；普通用户只能在自己所属的租户间切换。
func (h *AuthHandler) SwitchTenant(c *gin.Context) {
	claims, exists := c.Get("claims")
	if !exists {
		response.Unauthorized(c, "未登录")
		return
	}
	userClaims := claims.(*jwt.JWTClaims)

	var req SwitchTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	tenant, err := h.tenantService.GetByID(req.TenantID)
	if err != nil {
		response.NotFound(c, "租户不存在")
		return
	}
	if !tenant.IsActive() {
		response.BadRequest(c, "目标租户未激活")
		return
	}

	if !userClaims.IsPlatformAdmin {
		inTenant, err := h.userService.InTenant(userClaims.UserID, req.TenantID)
		if err != nil || !inTenant {
			response.Forbidden(c, "用户不属于该租户")
			return
		}
	}

	isTenantAdmin, _ := h.userService.IsTenantAdmin(userClaims.UserID, req.TenantID)

	newToken, err := h.jwtManager.GenerateTokenWithTenant(
		userClaims.UserID,
		userClaims.TenantID,
		req.TenantID,
		userClaims.Username,
		userClaims.IsPlatformAdmin,
		isTenantAdmin,
	)
	if err != nil {
		response.ServerError(c, "生成新Token失败")
		return
	}

	expiresAt := time.Now().Add(h.jwtManager.GetTokenDuration()).Unix()
	response.Success(c, gin.H{
		"token":      newToken,
		"expires_at": expiresAt,
		"current_tenant": gin.H{
			"id":     tenant.ID,
			"name":   tenant.Name,
			"code":   tenant.Code,
			"status": tenant.Status,
		},
		"message": "切换租户成功",
	})
}

// Me 获取当前登录用户的完整信息
func (h *AuthHandler) Me(c *gin.Context) {
	claims, exists := c.Get("claims")
	if !exists {
		response.Unauthorized(c, "未登录")
		return
	}
	userClaims := claims.(*jwt.JWTClaims)

	user, err := h.userService.GetByID(userClaims.UserID)
	if err != nil {
		response.NotFound(c, "用户不存在")
		return
	}

	currentTenant, err := h.tenantService.GetByID(userClaims.CurrentTenantID)
	if err != nil {
		response.ServerError(c, "获取租户信息失败")
		return
	}

	roles, err := h.userService.GetUserRoles(user.ID, userClaims.CurrentTenantID)
	if err != nil {
		roles = []models.Role{}
	}

	permissions, err := h.userService.GetUserPermissions(user.ID, userClaims.CurrentTenantID)
	if err != nil {
		permissions = []models.Permission{}
	}

	responseData := gin.H{
		"user": gin.H{
			"id":                user.ID,
			"username":          user.Username,
			"email":             user.Email,
			"name":              user.Name,
			"phone":             user.Phone,
			"status":            user.Status,
			"is_platform_admin": user.IsPlatformAdmin,
			"created_at":        user.CreatedAt,
			"last_login_at":     user.LastLoginAt,
		},
		"current_tenant": gin.H{
			"id":     currentTenant.ID,
			"name":   currentTenant.Name,
			"code":   currentTenant.Code,
			"status": currentTenant.Status,
		},
		"roles":       h.formatRoles(roles),
		"permissions": h.formatPermissions(permissions),
	}

	// 平台管理员附带可切换租户列表
	if user.IsPlatformAdmin {
		tenants, err := h.tenantService.GetAllActive()
		if err == nil {
			var switchableTenants []gin.H
			for _, tenant := range tenants {
				switchableTenants = append(switchableTenants, gin.H{
					"id":         tenant.ID,
					"name":       tenant.Name,
					"code":       tenant.Code,
					"is_current": tenant.ID == userClaims.CurrentTenantID,
					"user_count": tenant.UserCount,
				})
			}
			responseData["switchable_tenants"] = switchableTenants
		}
	}

	response.Success(c, responseData)
}

func (h *AuthHandler) formatRoles(roles []models.Role) []gin.H {
	var result []gin.H
	for _, role := range roles {
		result = append(result, gin.H{
			"id":          role.ID,
			"name":        role.Name,
			"code":        role.Code,
			"description": role.Description,
		})
	}
	return result
}

func (h *AuthHandler) formatPermissions(permissions []models.Permission) []string {
	var result []string
	for _, perm := range permissions {
		result = append(result, perm.Code)
	}
	return result
}
