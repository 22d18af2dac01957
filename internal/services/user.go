package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"sportshub/internal/models"
	"sportshub/internal/store"
	"sportshub/pkg/errors"
	"sportshub/pkg/jwt"
	"sportshub/pkg/logger"

	"github.com/samber/lo"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateUserRequest 平台管理员创建账号
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=100"`
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"omitempty,email"`
	Role     string `json:"role" binding:"required,oneof=platform_admin tenant_admin"`
	TenantID string `json:"tenant_id"`
}

// LoginResult 登录/切换租户的结果
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresIn int64       `json:"expires_in"`
	User      models.User `json:"user"`
}

// UserService 账号与会话：登录、代入租户、退出代入
type UserService struct {
	store store.Store
	jwt   *jwt.JWTManager
}

// NewUserService 创建账号服务
func NewUserService(st store.Store, manager *jwt.JWTManager) *UserService {
	return &UserService{store: st, jwt: manager}
}

// SessionFromClaims 令牌声明 -> 会话
func SessionFromClaims(claims *jwt.JWTClaims) Session {
	return Session{
		UserID:               claims.UserID,
		Username:             claims.Username,
		Role:                 claims.Role,
		TenantID:             claims.TenantID,
		ImpersonatedTenantID: claims.ImpersonatedTenantID,
	}
}

// Login 校验账号密码并签发令牌
func (s *UserService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	user, err := s.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.CheckPassword(req.Password) {
		return nil, errors.NewValidation("", "用户名或密码错误")
	}
	if !user.IsActive() {
		return nil, errors.ErrForbidden
	}

	// 租户管理员所属租户必须处于启用状态
	if tenantID := user.BoundTenantID(); tenantID != "" {
		tenant, err := loadTenantWithPlan(ctx, s.store, tenantID)
		if err != nil {
			return nil, err
		}
		if !tenant.IsActive() {
			return nil, errors.NewValidation("tenant", "所属租户已停用")
		}
	}

	token, err := s.jwt.GenerateToken(jwt.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		TenantID: user.BoundTenantID(),
	})
	if err != nil {
		return nil, fmt.Errorf("生成令牌失败: %v", err)
	}

	s.UpdateLastLogin(ctx, user.ID)
	return &LoginResult{
		Token:     token,
		ExpiresIn: int64(s.jwt.GetTokenDuration().Seconds()),
		User:      *user,
	}, nil
}

// SwitchTenant 平台管理员代入租户：签发新令牌，身份不变
func (s *UserService) SwitchTenant(ctx context.Context, claims *jwt.JWTClaims, tenantID string) (*LoginResult, error) {
	if claims.Role != models.RolePlatformAdmin {
		return nil, errors.ErrForbidden
	}
	if tenantID == "" {
		return nil, errors.NewValidation("tenant_id", "不能为空")
	}
	if _, err := loadTenantWithPlan(ctx, s.store, tenantID); err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateImpersonationToken(claims, tenantID)
	if err != nil {
		return nil, fmt.Errorf("生成令牌失败: %v", err)
	}
	logger.GetLogger().Infof("平台管理员 %s 代入租户 %s", claims.Username, tenantID)
	return &LoginResult{Token: token, ExpiresIn: int64(s.jwt.GetTokenDuration().Seconds())}, nil
}

// ExitTenant 退出代入，回到全局视图
func (s *UserService) ExitTenant(claims *jwt.JWTClaims) (*LoginResult, error) {
	if claims.Role != models.RolePlatformAdmin {
		return nil, errors.ErrForbidden
	}
	token, err := s.jwt.GenerateToken(claims.Identity())
	if err != nil {
		return nil, fmt.Errorf("生成令牌失败: %v", err)
	}
	return &LoginResult{Token: token, ExpiresIn: int64(s.jwt.GetTokenDuration().Seconds())}, nil
}

// Create 创建账号；租户管理员必须绑定已存在的租户
func (s *UserService) Create(ctx context.Context, session Session, req CreateUserRequest) (*models.User, error) {
	if !session.IsPlatformAdmin() {
		return nil, errors.ErrForbidden
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := s.ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	if req.Role == models.RoleTenantAdmin {
		if req.TenantID == "" {
			return nil, errors.NewValidation("tenant_id", "租户管理员必须绑定租户")
		}
		if _, err := loadTenantWithPlan(ctx, s.store, req.TenantID); err != nil {
			return nil, err
		}
	}

	user := &models.User{
		Username: strings.TrimSpace(req.Username),
		Email:    req.Email,
		Name:     req.Name,
		Role:     req.Role,
		Status:   models.UserStatusActive,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("密码加密失败: %v", err)
	}

	rec := store.Record{
		"username":      user.Username,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"name":          user.Name,
		"role":          user.Role,
		"status":        user.Status,
	}
	if req.Role == models.RoleTenantAdmin {
		rec["tenant_id"] = req.TenantID
		user.TenantID = &req.TenantID
	}

	id, err := s.store.Insert(ctx, store.KindUsers, "", rec)
	if err != nil {
		if store.IsDuplicate(err) {
			return nil, errors.NewValidation("username", "用户名已存在")
		}
		return nil, errors.NewStoreError("insert users", err)
	}
	user.ID = id
	return user, nil
}

// List 账号列表，可按租户过滤
func (s *UserService) List(ctx context.Context, session Session, tenantID string) ([]models.User, error) {
	if !session.IsPlatformAdmin() {
		return nil, errors.ErrForbidden
	}
	q := store.Query{Kind: store.KindUsers, OrderBy: "username"}
	if tenantID != "" {
		q.Filters = map[string]interface{}{"tenant_id": tenantID}
	}
	rows, err := s.store.Read(ctx, q)
	if err != nil {
		return nil, errors.NewStoreError("read users", err)
	}
	return lo.Map(rows, func(r store.Record, _ int) models.User { return MapUser(r) }), nil
}

// GetByID 根据ID获取账号，不存在时返回 nil
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	rows, err := s.store.Read(ctx, store.Query{
		Kind:    store.KindUsers,
		Filters: map[string]interface{}{"id": id},
	})
	if err != nil {
		return nil, errors.NewStoreError("read users", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	user := MapUser(rows[0])
	return &user, nil
}

// GetByUsername 根据用户名获取账号，不存在时返回 nil
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	rows, err := s.store.Read(ctx, store.Query{
		Kind:    store.KindUsers,
		Filters: map[string]interface{}{"username": strings.TrimSpace(username)},
	})
	if err != nil {
		return nil, errors.NewStoreError("read users", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	user := MapUser(rows[0])
	return &user, nil
}

// UpdateLastLogin 更新最后登录时间，失败只记录日志
func (s *UserService) UpdateLastLogin(ctx context.Context, id string) {
	if err := s.store.Update(ctx, store.KindUsers, "", id, store.Record{"last_login_at": time.Now()}); err != nil {
		logger.GetLogger().WithError(err).Warnf("更新账号 %s 最后登录时间失败", id)
	}
}

// ValidatePassword 验证密码
func (s *UserService) ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < 6 {
		return errors.NewValidation("password", "密码长度至少6位")
	}
	if strings.TrimSpace(password) != password {
		return errors.NewValidation("password", "密码首尾不能包含空格")
	}
	return nil
}
