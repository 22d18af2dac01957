package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction 账单，overdue 只在读取时推导，永远不写入
type Transaction struct {
	BaseModel
	TenantID       string          `json:"tenant_id" gorm:"type:uuid;not null;index"`
	MemberID       string          `json:"member_id" gorm:"size:64;index"`
	MemberName     string          `json:"member_name" gorm:"size:120"` // 会员名称快照，会员删除后仍可展示
	Description    string          `json:"description" gorm:"size:200"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null;default:0"`
	DueDate        time.Time       `json:"due_date" gorm:"type:date;index"`
	CompetenceDate string          `json:"competence_date" gorm:"size:40;index"` // 如 "março/2026"
	Status         string          `json:"status" gorm:"default:'pending';size:20"`
	PaymentDate    *time.Time      `json:"payment_date"`
	PaymentMethod  string          `json:"payment_method" gorm:"size:40"`
	BatchID        string          `json:"batch_id" gorm:"size:64;index"`
}

// TableName 表名
func (t *Transaction) TableName() string {
	return "transactions"
}

// 账单状态常量
const (
	TransactionStatusPending = "pending"
	TransactionStatusPaid    = "paid"
	TransactionStatusOverdue = "overdue"
)
