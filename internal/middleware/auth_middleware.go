package middleware

import (
	"strings"

	"sportshub/internal/services"
	"sportshub/pkg/jwt"
	"sportshub/pkg/response"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	ContextClaims  = "claims"
	ContextSession = "session"
	ContextUserID  = "user_id"
)

// AuthMiddleware 认证中间件
type AuthMiddleware struct {
	userService *services.UserService
	jwtManager  *jwt.JWTManager
}

func NewAuthMiddleware(userService *services.UserService, jwtManager *jwt.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// RequireLogin 校验令牌并把会话放入上下文
// websocket 无法设置请求头，允许使用 ?token= 传递
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		switch {
		case authHeader != "":
			// 检查Bearer格式
			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.Unauthorized(c, "认证头格式错误")
				c.Abort()
				return
			}
			tokenString = authHeader[7:]
		case c.Query("token") != "":
			tokenString = c.Query("token")
		default:
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		// 验证token
		claims, err := m.jwtManager.VerifyToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "Token无效或已过期")
			c.Abort()
			return
		}

		// 检查用户状态
		user, err := m.userService.GetByID(c.Request.Context(), claims.UserID)
		if err != nil || user == nil {
			response.Unauthorized(c, "用户不存在")
			c.Abort()
			return
		}
		if !user.IsActive() {
			response.Unauthorized(c, "用户已被禁用")
			c.Abort()
			return
		}

		c.Set(ContextClaims, claims)
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextSession, services.SessionFromClaims(claims))

		c.Next()
	}
}

// RequirePlatformAdmin 要求平台管理员
func (m *AuthMiddleware) RequirePlatformAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := GetSession(c)
		if !ok {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		if !session.IsPlatformAdmin() {
			response.Forbidden(c, "需要平台管理员权限")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireActiveTenant 要求会话已解析出生效租户（租户管理员或已代入租户的平台管理员）
func (m *AuthMiddleware) RequireActiveTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := GetSession(c)
		if !ok {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		if _, ok := session.ActiveTenant(); !ok {
			response.BadRequest(c, "请先选择要操作的租户")
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetSession 取出当前请求的会话
func GetSession(c *gin.Context) (services.Session, bool) {
	v, exists := c.Get(ContextSession)
	if !exists {
		return services.Session{}, false
	}
	session, ok := v.(services.Session)
	return session, ok
}

// GetClaims 取出当前请求的令牌声明
func GetClaims(c *gin.Context) (*jwt.JWTClaims, bool) {
	v, exists := c.Get(ContextClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.JWTClaims)
	return claims, ok
}
