package models

import (
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PlanDefinition 平台订阅套餐，只读参考数据
type PlanDefinition struct {
	ID         string          `json:"id" gorm:"primarykey;size:64"`
	Name       string          `json:"name" gorm:"not null;size:100;uniqueIndex"`
	Price      decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null;default:0"`
	MaxMembers int             `json:"max_members" gorm:"not null;default:0"`
	Features   pq.StringArray  `json:"features" gorm:"type:text[]"`
}

// TableName 表名
func (p *PlanDefinition) TableName() string {
	return "plans"
}
