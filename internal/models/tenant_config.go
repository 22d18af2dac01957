package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MonthlyPlan 租户自定义的月费套餐
type MonthlyPlan struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// TenantConfig 租户下拉选项与月费目录
type TenantConfig struct {
	BaseModel
	TenantID     string                           `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex"`
	Categories   datatypes.JSONSlice[string]      `json:"categories"`
	Teams        datatypes.JSONSlice[string]      `json:"teams"`
	MonthlyPlans datatypes.JSONSlice[MonthlyPlan] `json:"monthly_plans"`
	Units        datatypes.JSONSlice[string]      `json:"units"`
}

// TableName 表名
func (c *TenantConfig) TableName() string {
	return "tenant_configs"
}
