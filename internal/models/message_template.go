package models

// MessageTemplate 租户消息模板，正文使用 {{placeholder}} 占位符
type MessageTemplate struct {
	BaseModel
	TenantID string `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:idx_template_tenant_type"`
	Type     string `json:"type" gorm:"size:20;not null;uniqueIndex:idx_template_tenant_type"`
	Body     string `json:"body" gorm:"type:text;not null"`
}

// TableName 表名
func (m *MessageTemplate) TableName() string {
	return "message_templates"
}

// 通知类型
const (
	NotificationOverdue     = "overdue"
	NotificationExpiry5Days = "expiry5days"
	NotificationTrial       = "trial"
)

// IsValidNotificationType 通知类型是否受支持
func IsValidNotificationType(t string) bool {
	switch t {
	case NotificationOverdue, NotificationExpiry5Days, NotificationTrial:
		return true
	default:
		return false
	}
}
