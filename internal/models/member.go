package models

import "time"

// Member 会员（运动员），属于唯一租户
type Member struct {
	BaseModel
	TenantID      string     `json:"tenant_id" gorm:"type:uuid;not null;index"`
	Name          string     `json:"name" gorm:"not null;size:120"`
	BirthDate     *time.Time `json:"birth_date" gorm:"type:date"`
	Category      string     `json:"category" gorm:"size:60"` // 按名称匹配租户配置，不是外键
	Team          string     `json:"team" gorm:"size:60"`
	Unit          string     `json:"unit" gorm:"size:60"`
	Plan          string     `json:"plan" gorm:"size:60"` // 按名称匹配租户月费套餐
	Status        string     `json:"status" gorm:"default:'active';size:20;index"`
	GuardianName  string     `json:"guardian_name" gorm:"size:120"`
	GuardianPhone string     `json:"guardian_phone" gorm:"size:30"`
	Email         string     `json:"email" gorm:"size:100"`
	PaymentStatus string     `json:"payment_status" gorm:"size:20"` // 仅用于展示的缓存，以账单为准
}

// TableName 表名
func (m *Member) TableName() string {
	return "members"
}

// 会员状态常量
const (
	MemberStatusActive   = "active"
	MemberStatusInactive = "inactive"
)

// IsActive 是否在籍
func (m *Member) IsActive() bool {
	return m.Status == MemberStatusActive
}
