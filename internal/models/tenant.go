package models

import "github.com/shopspring/decimal"

// Tenant 租户（运动学校）- 贫血模型，只包含数据结构
type Tenant struct {
	BaseModel
	Name              string          `json:"name" gorm:"not null;size:100"`
	PlanID            string          `json:"plan_id" gorm:"size:64;index"`
	Status            string          `json:"status" gorm:"default:'active';size:20"`
	MemberLimit       int             `json:"member_limit" gorm:"default:0"` // 原始存储的人数上限，套餐匹配不到时使用
	EnrollmentFee     decimal.Decimal `json:"enrollment_fee" gorm:"type:numeric(12,2);default:0"`
	UniformPrice      decimal.Decimal `json:"uniform_price" gorm:"type:numeric(12,2);default:0"`
	Locale            string          `json:"locale" gorm:"size:10;default:'pt-BR'"`
	MessagingInstance string          `json:"messaging_instance" gorm:"size:100"` // 消息网关实例ID
	ContactPhone      string          `json:"contact_phone" gorm:"size:30"`
	ContactEmail      string          `json:"contact_email" gorm:"size:100"`

	// 以下字段在同步时计算，不存储在数据库中
	PlanName       string `json:"plan_name" gorm:"-"`
	ActiveMembers  int    `json:"active_members" gorm:"-"`
	EffectiveLimit int    `json:"effective_limit" gorm:"-"`
}

// TableName 表名
func (t *Tenant) TableName() string {
	return "tenants"
}

// 租户状态常量
const (
	TenantStatusActive   = "active"
	TenantStatusInactive = "inactive"
)

// DefaultMemberLimit 套餐和原始上限都缺失时的会员上限
const DefaultMemberLimit = 50

// IsActive 租户是否启用
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// SeatsAvailable 剩余名额
func (t *Tenant) SeatsAvailable() int {
	if t.ActiveMembers >= t.EffectiveLimit {
		return 0
	}
	return t.EffectiveLimit - t.ActiveMembers
}
