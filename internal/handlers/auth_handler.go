package handlers

import (
	"strings"

	"sportshub/internal/middleware"
	"sportshub/internal/services"
	"sportshub/pkg/jwt"
	"sportshub/pkg/logger"
	"sportshub/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService *services.UserService
	syncService *services.SyncService
	jwtManager  *jwt.JWTManager
}

func NewAuthHandler(userService *services.UserService, syncService *services.SyncService, jwtManager *jwt.JWTManager) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		syncService: syncService,
		jwtManager:  jwtManager,
	}
}

// SwitchTenantRequest 代入租户请求
type SwitchTenantRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
}

// MeResponse 当前账号与会话
type MeResponse struct {
	UserID               string `json:"user_id"`
	Username             string `json:"username"`
	Name                 string `json:"name"`
	Role                 string `json:"role"`
	TenantID             string `json:"tenant_id"`
	ImpersonatedTenantID string `json:"impersonated_tenant_id"`
	ActiveTenantID       string `json:"active_tenant_id"`
	IsPlatformAdmin      bool   `json:"is_platform_admin"`
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	result, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	response.Success(c, result)
}

// Logout 用户登出，丢弃会话快照
func (h *AuthHandler) Logout(c *gin.Context) {
	session, ok := middleware.GetSession(c)
	if ok {
		h.syncService.Forget(session)
		logger.GetLogger().Infof("用户 %s 登出", session.Username)
	}
	response.Success(c, gin.H{
		"message": "登出成功",
	})
}

// RefreshToken 刷新Token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		response.Unauthorized(c, "认证头格式错误")
		return
	}

	token, err := h.jwtManager.RefreshToken(authHeader[7:])
	if err != nil {
		response.Unauthorized(c, "Token无效或已过期")
		return
	}

	response.Success(c, gin.H{
		"token":      token,
		"expires_in": int64(h.jwtManager.GetTokenDuration().Seconds()),
	})
}

// Me 当前用户信息
func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := middleware.GetSession(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), session.UserID)
	if err != nil || user == nil {
		response.NotFound(c, "用户不存在")
		return
	}

	activeTenantID, _ := session.ActiveTenant()
	response.Success(c, MeResponse{
		UserID:               user.ID,
		Username:             user.Username,
		Name:                 user.Name,
		Role:                 user.Role,
		TenantID:             session.TenantID,
		ImpersonatedTenantID: session.ImpersonatedTenantID,
		ActiveTenantID:       activeTenantID,
		IsPlatformAdmin:      session.IsPlatformAdmin(),
	})
}

// SwitchTenant 平台管理员代入租户
func (h *AuthHandler) SwitchTenant(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	var req SwitchTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	result, err := h.userService.SwitchTenant(c.Request.Context(), claims, req.TenantID)
	if err != nil {
		response.FromError(c, err, nil)
		return
	}

	// 旧快照属于上一个租户
	h.syncService.Forget(services.SessionFromClaims(claims))
	response.Success(c, result)
}

// ExitTenant 退出代入，回到全局视图
func (h *AuthHandler) ExitTenant(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	result, err := h.userService.ExitTenant(claims)
	if err != nil {
		response.FromError(c, err, nil)
		return
	}

	h.syncService.Forget(services.SessionFromClaims(claims))
	response.Success(c, result)
}
