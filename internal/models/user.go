package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User 后台账号（平台管理员或租户管理员）
type User struct {
	BaseModel
	Username     string     `json:"username" gorm:"unique;not null;size:50;index"`
	Email        string     `json:"email" gorm:"size:100"`
	PasswordHash string     `json:"-" gorm:"not null;size:255"`
	Name         string     `json:"name" gorm:"not null;size:100"`
	Role         string     `json:"role" gorm:"not null;size:20"`
	TenantID     *string    `json:"tenant_id" gorm:"type:uuid;index"` // 仅租户管理员有值
	Status       string     `json:"status" gorm:"default:'active';size:20"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// 角色常量
const (
	RolePlatformAdmin = "platform_admin"
	RoleTenantAdmin   = "tenant_admin"
)

// SetPassword 设置密码 - 数据操作方法
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码 - 数据操作方法
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// IsActive 账号是否可用
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// BoundTenantID 绑定租户ID，平台管理员为空
func (u *User) BoundTenantID() string {
	if u.TenantID == nil {
		return ""
	}
	return *u.TenantID
}
