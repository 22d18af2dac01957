package services

import "sportshub/internal/models"

// Session 会话：角色、绑定租户，以及平台管理员的临时代入租户
type Session struct {
	UserID               string
	Username             string
	Role                 string
	TenantID             string // 租户管理员绑定的租户
	ImpersonatedTenantID string // 只对平台管理员生效
}

// IsPlatformAdmin 是否平台管理员
func (s Session) IsPlatformAdmin() bool {
	return s.Role == models.RolePlatformAdmin
}

// Key 快照注册表中的会话键
func (s Session) Key() string {
	return s.UserID
}

// ActiveTenant 当前会话生效的租户
func (s Session) ActiveTenant() (string, bool) {
	return ResolveActiveTenant(s, s.ImpersonatedTenantID)
}

// ResolveActiveTenant 计算生效租户：
// 平台管理员且设置了代入租户时返回代入租户；否则返回会话绑定的租户；
// 都没有时返回 false（仅全局视图）。
// 所有按租户读写的地方都必须使用这个结果，而不是会话原始的 TenantID。
func ResolveActiveTenant(session Session, override string) (string, bool) {
	if session.IsPlatformAdmin() && override != "" {
		return override, true
	}
	if session.TenantID != "" {
		return session.TenantID, true
	}
	return "", false
}

// SystemSession 定时任务使用的系统会话，以平台管理员身份代入指定租户
func SystemSession(tenantID string) Session {
	return Session{
		UserID:               "system:" + tenantID,
		Username:             "system",
		Role:                 models.RolePlatformAdmin,
		ImpersonatedTenantID: tenantID,
	}
}
