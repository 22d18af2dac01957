package services

import (
	"testing"
	"time"

	"sportshub/internal/models"
	"sportshub/internal/store"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapTenantEffectiveLimit(t *testing.T) {
	plans := []models.PlanDefinition{
		{ID: "starter", Name: "Starter", MaxMembers: 50},
		{ID: "pro", Name: "Pro", MaxMembers: 200},
		{ID: "legacy", Name: "Legacy", MaxMembers: 0},
	}

	tests := []struct {
		name      string
		raw       store.Record
		wantLimit int
		wantPlan  string
	}{
		{
			name:      "plan matched by id",
			raw:       store.Record{"id": "t1", "plan_id": "pro", "member_limit": 10},
			wantLimit: 200,
			wantPlan:  "Pro",
		},
		{
			name:      "plan matched by name",
			raw:       store.Record{"id": "t1", "plan": "starter"},
			wantLimit: 50,
			wantPlan:  "Starter",
		},
		{
			name:      "plan without ceiling falls back to stored limit",
			raw:       store.Record{"id": "t1", "plan_id": "legacy", "member_limit": "35"},
			wantLimit: 35,
			wantPlan:  "Legacy",
		},
		{
			name:      "unknown plan uses stored limit",
			raw:       store.Record{"id": "t1", "plan_id": "gold", "member_limit": int64(80)},
			wantLimit: 80,
		},
		{
			name:      "nothing known uses default",
			raw:       store.Record{"id": "t1"},
			wantLimit: models.DefaultMemberLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenant := MapTenant(tt.raw, plans)
			assert.Equal(t, tt.wantLimit, tenant.EffectiveLimit)
			assert.Equal(t, tt.wantPlan, tenant.PlanName)
		})
	}
}

func TestMapTenantDefaults(t *testing.T) {
	tenant := MapTenant(store.Record{"id": "t1", "name": "Escola Azul", "enrollment_fee": "80,50"}, nil)

	assert.Equal(t, "t1", tenant.ID)
	assert.Equal(t, models.TenantStatusActive, tenant.Status)
	assert.Equal(t, "pt-BR", tenant.Locale)
	assert.True(t, tenant.EnrollmentFee.Equal(decimal.RequireFromString("80.50")))
	assert.True(t, tenant.UniformPrice.IsZero())
}

func TestMapMemberNeverFails(t *testing.T) {
	member := MapMember(store.Record{})

	assert.Equal(t, models.MemberStatusActive, member.Status)
	assert.Nil(t, member.BirthDate)
	assert.Empty(t, member.Name)
}

func TestMapMemberBirthDate(t *testing.T) {
	member := MapMember(store.Record{
		"id":         "m1",
		"tenant_id":  "t1",
		"name":       "Ana",
		"birth_date": "2012-05-09",
		"status":     "inactive",
	})

	require.NotNil(t, member.BirthDate)
	assert.Equal(t, time.Date(2012, 5, 9, 0, 0, 0, 0, time.UTC), *member.BirthDate)
	assert.False(t, member.IsActive())
}

func TestMapTransaction(t *testing.T) {
	due := time.Date(2026, 3, 10, 15, 30, 0, 0, time.FixedZone("BRT", -3*3600))
	tx := MapTransaction(store.Record{
		"id":              "x1",
		"member_id":       "m1",
		"amount":          150.0,
		"due_date":        due,
		"competence_date": "março/2026",
	})

	assert.Equal(t, models.TransactionStatusPending, tx.Status)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), tx.DueDate)
	assert.Nil(t, tx.PaymentDate)
}

func TestMapTenantConfigListFormats(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want []string
	}{
		{name: "missing", raw: nil, want: []string{}},
		{name: "json text", raw: `["Sub-11","Sub-13"]`, want: []string{"Sub-11", "Sub-13"}},
		{name: "postgres array", raw: "{Sub-11,Sub-13}", want: []string{"Sub-11", "Sub-13"}},
		{name: "string array", raw: pq.StringArray{"Sub-11"}, want: []string{"Sub-11"}},
		{name: "decoded json", raw: []interface{}{"Sub-11", "", "Sub-15"}, want: []string{"Sub-11", "Sub-15"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MapTenantConfig(store.Record{"tenant_id": "t1", "categories": tt.raw})
			assert.Equal(t, tt.want, []string(cfg.Categories))
		})
	}
}

func TestMapTenantConfigMonthlyPlans(t *testing.T) {
	cfg := MapTenantConfig(store.Record{
		"tenant_id":     "t1",
		"monthly_plans": `[{"name":"Mensal","price":150},{"name":"Trimestral","price":"400.00"}]`,
	})

	require.Len(t, cfg.MonthlyPlans, 2)
	assert.Equal(t, "Mensal", cfg.MonthlyPlans[0].Name)
	assert.True(t, cfg.MonthlyPlans[0].Price.Equal(decimal.NewFromInt(150)))
	assert.True(t, cfg.MonthlyPlans[1].Price.Equal(decimal.NewFromInt(400)))
}

func TestEmptyTenantConfig(t *testing.T) {
	cfg := EmptyTenantConfig("t1")

	assert.Equal(t, "t1", cfg.TenantID)
	assert.NotNil(t, cfg.Categories)
	assert.Empty(t, cfg.MonthlyPlans)
}

func TestMapFeatureFlag(t *testing.T) {
	assert.True(t, MapFeatureFlag(store.Record{"key": "leads"}).Enabled)
	assert.False(t, MapFeatureFlag(store.Record{"key": "leads", "enabled": false}).Enabled)
	assert.True(t, MapFeatureFlag(store.Record{"key": "leads", "enabled": "t"}).Enabled)
}

func TestMapUserTenantBinding(t *testing.T) {
	admin := MapUser(store.Record{"id": "u1", "username": "root", "role": models.RolePlatformAdmin})
	assert.Nil(t, admin.TenantID)
	assert.Empty(t, admin.BoundTenantID())

	owner := MapUser(store.Record{"id": "u2", "username": "dona", "tenant_id": "t1"})
	assert.Equal(t, models.RoleTenantAdmin, owner.Role)
	assert.Equal(t, "t1", owner.BoundTenantID())
}
