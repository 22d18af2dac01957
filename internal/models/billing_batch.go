package models

// BillingBatch 一次批量生成账单的记录，(tenant_id, competence) 唯一
type BillingBatch struct {
	BaseModel
	TenantID   string `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:idx_batch_tenant_competence"`
	Competence string `json:"competence" gorm:"size:40;not null;uniqueIndex:idx_batch_tenant_competence"`
	Month      string `json:"month" gorm:"size:20"`
	Year       string `json:"year" gorm:"size:4"`
	DueDay     int    `json:"due_day"`
	Count      int    `json:"count"`
}

// TableName 表名
func (b *BillingBatch) TableName() string {
	return "billing_batches"
}
