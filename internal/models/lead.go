package models

import "time"

// Lead 潜在会员（试训漏斗）
type Lead struct {
	BaseModel
	TenantID     string     `json:"tenant_id" gorm:"type:uuid;not null;index"`
	Name         string     `json:"name" gorm:"not null;size:120"`
	Phone        string     `json:"phone" gorm:"size:30"`
	Email        string     `json:"email" gorm:"size:100"`
	Source       string     `json:"source" gorm:"size:60"`
	Status       string     `json:"status" gorm:"default:'new';size:20;index"`
	TrialDate    *time.Time `json:"trial_date" gorm:"type:date"`
	TrialTime    string     `json:"trial_time" gorm:"size:5"` // HH:MM
	ReminderSent bool       `json:"reminder_sent" gorm:"default:false"`
}

// TableName 表名
func (l *Lead) TableName() string {
	return "leads"
}

// 漏斗状态，只允许向前流转
const (
	LeadStatusNew            = "new"
	LeadStatusTrialScheduled = "trial_scheduled"
	LeadStatusAttended       = "attended"
	LeadStatusConverted      = "converted"
)

var leadStages = map[string]int{
	LeadStatusNew:            0,
	LeadStatusTrialScheduled: 1,
	LeadStatusAttended:       2,
	LeadStatusConverted:      3,
}

// LeadStage 状态在漏斗中的位置，未知状态返回-1
func LeadStage(status string) int {
	if stage, ok := leadStages[status]; ok {
		return stage
	}
	return -1
}
