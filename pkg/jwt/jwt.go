package jwt

import (
	"errors"
	"sync"
	"time"

	"sportshub/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims JWT声明
type JWTClaims struct {
	UserID               string `json:"user_id"`
	Username             string `json:"username"`
	Role                 string `json:"role"`                             // platform_admin 或 tenant_admin
	TenantID             string `json:"tenant_id,omitempty"`              // 租户管理员绑定的租户
	ImpersonatedTenantID string `json:"impersonated_tenant_id,omitempty"` // 平台管理员临时代入的租户
	jwt.RegisteredClaims
}

// Identity 签发令牌所需的身份信息
type Identity struct {
	UserID   string
	Username string
	Role     string
	TenantID string
}

// JWTManager JWT管理器
type JWTManager struct {
	secretKey     string
	tokenDuration time.Duration
}

// NewJWTManager 创建JWT管理器
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     secretKey,
		tokenDuration: tokenDuration,
	}
}

// GenerateToken 生成JWT令牌（不带代入租户）
func (manager *JWTManager) GenerateToken(identity Identity) (string, error) {
	return manager.sign(identity, "")
}

// GenerateImpersonationToken 生成代入指定租户的令牌，身份本身不变
func (manager *JWTManager) GenerateImpersonationToken(claims *JWTClaims, tenantID string) (string, error) {
	return manager.sign(claims.Identity(), tenantID)
}

func (manager *JWTManager) sign(identity Identity, impersonatedTenantID string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID:               identity.UserID,
		Username:             identity.Username,
		Role:                 identity.Role,
		TenantID:             identity.TenantID,
		ImpersonatedTenantID: impersonatedTenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(manager.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "sportshub",
			Subject:   identity.Username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(manager.secretKey))
}

// VerifyToken 验证JWT令牌
func (manager *JWTManager) VerifyToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&JWTClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("意外的签名方法")
			}
			return []byte(manager.secretKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil, errors.New("无法解析token声明")
	}

	return claims, nil
}

// RefreshToken 刷新令牌，保留代入租户
func (manager *JWTManager) RefreshToken(tokenString string) (string, error) {
	claims, err := manager.VerifyToken(tokenString)
	if err != nil {
		return "", err
	}
	return manager.sign(claims.Identity(), claims.ImpersonatedTenantID)
}

// GetTokenDuration 获取令牌有效期
func (manager *JWTManager) GetTokenDuration() time.Duration {
	return manager.tokenDuration
}

// Identity 从声明中取回身份
func (c *JWTClaims) Identity() Identity {
	return Identity{
		UserID:   c.UserID,
		Username: c.Username,
		Role:     c.Role,
		TenantID: c.TenantID,
	}
}

var (
	defaultManager *JWTManager
	once           sync.Once
)

// GetJWTManager 获取全局JWT管理器实例
func GetJWTManager() *JWTManager {
	once.Do(func() {
		cfg := config.GetConfig()
		tokenDuration, err := time.ParseDuration(cfg.JWT.TokenDuration)
		if err != nil {
			tokenDuration = 24 * time.Hour
		}
		defaultManager = NewJWTManager(cfg.JWT.SecretKey, tokenDuration)
	})
	return defaultManager
}
