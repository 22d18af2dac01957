package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Kind 实体类型，对应存储中的表
type Kind string

const (
	KindTenants          Kind = "tenants"
	KindPlans            Kind = "plans"
	KindMembers          Kind = "members"
	KindLeads            Kind = "leads"
	KindTransactions     Kind = "transactions"
	KindTenantConfigs    Kind = "tenant_configs"
	KindMessageTemplates Kind = "message_templates"
	KindBillingBatches   Kind = "billing_batches"
	KindFeatureFlags     Kind = "feature_flags"
	KindUsers            Kind = "users"
)

// Record 存储返回的原始行，字段类型取决于驱动
type Record map[string]interface{}

// Query 带租户过滤的读取条件
type Query struct {
	Kind     Kind
	TenantID string                 // 为空表示不按租户过滤（全局视图）
	Filters  map[string]interface{} // 额外的等值条件
	OrderBy  string
	Desc     bool
}

// ErrNotFound 记录不存在，或不属于指定租户
var ErrNotFound = errors.New("记录不存在")

// ErrDuplicate 违反唯一约束
var ErrDuplicate = errors.New("duplicate key value violates unique constraint")

// IsDuplicate 判断是否违反唯一约束，兼容gorm翻译后的错误和postgres原始错误
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "SQLSTATE 23505")
}

// Store 持久化存储协作方
type Store interface {
	Read(ctx context.Context, q Query) ([]Record, error)
	Insert(ctx context.Context, kind Kind, tenantID string, fields Record) (string, error)
	InsertMany(ctx context.Context, kind Kind, tenantID string, rows []Record) error
	Update(ctx context.Context, kind Kind, tenantID, id string, fields Record) error
	Delete(ctx context.Context, kind Kind, tenantID, id string) error
}

type kindMeta struct {
	idColumn    string
	tenantCol   string // 为空表示全局表
	generatesID bool
}

var kinds = map[Kind]kindMeta{
	KindTenants:          {idColumn: "id", tenantCol: "id", generatesID: true},
	KindPlans:            {idColumn: "id"},
	KindMembers:          {idColumn: "id", tenantCol: "tenant_id", generatesID: true},
	KindLeads:            {idColumn: "id", tenantCol: "tenant_id", generatesID: true},
	KindTransactions:     {idColumn: "id", tenantCol: "tenant_id", generatesID: true},
	KindTenantConfigs:    {idColumn: "id", tenantCol: "tenant_id", generatesID: true},
	KindMessageTemplates: {idColumn: "id", tenantCol: "tenant_id", generatesID: true},
	KindBillingBatches:   {idColumn: "id", tenantCol: "tenant_id", generatesID: true},
	KindFeatureFlags:     {idColumn: "key"},
	KindUsers:            {idColumn: "id", generatesID: true},
}

func metaOf(kind Kind) (kindMeta, error) {
	meta, ok := kinds[kind]
	if !ok {
		return kindMeta{}, fmt.Errorf("未知的实体类型: %s", kind)
	}
	return meta, nil
}

// IsScoped 实体是否按租户隔离
func IsScoped(kind Kind) bool {
	return kinds[kind].tenantCol != ""
}

func cloneRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
