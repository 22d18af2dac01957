package services

import (
	"context"
	"testing"
	"time"

	"sportshub/internal/models"
	"sportshub/internal/store"
	"sportshub/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthlyConfig(plans ...models.MonthlyPlan) models.TenantConfig {
	cfg := EmptyTenantConfig("t1")
	cfg.MonthlyPlans = plans
	return cfg
}

func TestGenerateCycleSingleMember(t *testing.T) {
	members := []models.Member{{BaseModel: models.BaseModel{ID: "m1"}, Name: "Ana", Status: models.MemberStatusActive, Plan: "Mensal"}}
	cfg := monthlyConfig(models.MonthlyPlan{Name: "Mensal", Price: decimal.NewFromInt(150)})

	txs, err := GenerateCycle("t1", members, cfg, "março", "2026", 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	tx := txs[0]
	assert.Equal(t, "t1", tx.TenantID)
	assert.Equal(t, "m1", tx.MemberID)
	assert.Equal(t, "Ana", tx.MemberName)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, date(2026, time.March, 10), tx.DueDate)
	assert.Equal(t, "março/2026", tx.CompetenceDate)
	assert.Equal(t, models.TransactionStatusPending, tx.Status)
	assert.Equal(t, "Mensalidade março/2026", tx.Description)
	assert.Nil(t, tx.PaymentDate)
}

func TestGenerateCycleSkipsInactiveAndPricesByPlan(t *testing.T) {
	members := []models.Member{
		{BaseModel: models.BaseModel{ID: "m1"}, Name: "Ana", Status: models.MemberStatusActive, Plan: "Mensal"},
		{BaseModel: models.BaseModel{ID: "m2"}, Name: "Bruno", Status: models.MemberStatusInactive, Plan: "Mensal"},
		{BaseModel: models.BaseModel{ID: "m3"}, Name: "Carla", Status: models.MemberStatusActive, Plan: "Bolsista"},
	}
	cfg := monthlyConfig(models.MonthlyPlan{Name: "Mensal", Price: decimal.NewFromInt(150)})

	txs, err := GenerateCycle("t1", members, cfg, "Abril", "2026", 5)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, "m1", txs[0].MemberID)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(150)))
	// 套餐不在月费配置中时金额为0
	assert.Equal(t, "m3", txs[1].MemberID)
	assert.True(t, txs[1].Amount.IsZero())
	assert.Equal(t, "abril/2026", txs[1].CompetenceDate)
}

func TestGenerateCycleEmptyRoster(t *testing.T) {
	members := []models.Member{{BaseModel: models.BaseModel{ID: "m2"}, Status: models.MemberStatusInactive}}

	txs, err := GenerateCycle("t1", members, monthlyConfig(), "março", "2026", 10)

	assert.Nil(t, txs)
	assert.True(t, errors.IsEmptyBatch(err))
}

func TestGenerateCycleValidation(t *testing.T) {
	active := []models.Member{{BaseModel: models.BaseModel{ID: "m1"}, Status: models.MemberStatusActive}}

	tests := []struct {
		name   string
		month  string
		year   string
		dueDay int
	}{
		{name: "unknown month", month: "marchember", year: "2026", dueDay: 10},
		{name: "non numeric year", month: "março", year: "vinte", dueDay: 10},
		{name: "year out of range", month: "março", year: "1800", dueDay: 10},
		{name: "due day zero", month: "março", year: "2026", dueDay: 0},
		{name: "due day too large", month: "março", year: "2026", dueDay: 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateCycle("t1", active, monthlyConfig(), tt.month, tt.year, tt.dueDay)
			assert.True(t, errors.IsValidation(err), "got %v", err)
		})
	}
}

func TestGenerateCycleClampsDueDay(t *testing.T) {
	active := []models.Member{{BaseModel: models.BaseModel{ID: "m1"}, Status: models.MemberStatusActive}}

	tests := []struct {
		month string
		year  string
		want  time.Time
	}{
		{month: "fevereiro", year: "2026", want: date(2026, time.February, 28)},
		{month: "fevereiro", year: "2028", want: date(2028, time.February, 29)},
		{month: "abril", year: "2026", want: date(2026, time.April, 30)},
		{month: "dezembro", year: "2026", want: date(2026, time.December, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.month+"/"+tt.year, func(t *testing.T) {
			txs, err := GenerateCycle("t1", active, monthlyConfig(), tt.month, tt.year, 31)
			require.NoError(t, err)
			assert.Equal(t, tt.want, txs[0].DueDate)
		})
	}
}

func TestMonthOrdinal(t *testing.T) {
	tests := []struct {
		input   string
		ordinal int
		name    string
		ok      bool
	}{
		{input: "março", ordinal: 3, name: "março", ok: true},
		{input: "Marco", ordinal: 3, name: "março", ok: true},
		{input: " MARÇO ", ordinal: 3, name: "março", ok: true},
		{input: "janeiro", ordinal: 1, name: "janeiro", ok: true},
		{input: "dezembro", ordinal: 12, name: "dezembro", ok: true},
		{input: "march", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ordinal, name, ok := MonthOrdinal(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.ordinal, ordinal)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestLookupMonthlyPlanIsExact(t *testing.T) {
	plans := []models.MonthlyPlan{{Name: "Mensal", Price: decimal.NewFromInt(150)}}

	_, ok := LookupMonthlyPlan(plans, "Mensal")
	assert.True(t, ok)
	_, ok = LookupMonthlyPlan(plans, "mensal")
	assert.False(t, ok)
}

func TestBillingServiceGenerateCycle(t *testing.T) {
	st := store.NewMemoryStore()
	seedSchools(st)
	syncSvc, _ := newTestSync(st, date(2026, time.March, 1))
	svc := NewBillingService(st, syncSvc, 10)
	session := tenantAdmin("t1")
	ctx := context.Background()

	result, err := svc.GenerateCycle(ctx, session, GenerateCycleRequest{Month: "abril", Year: "2026"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Generated)
	assert.Equal(t, "abril/2026", result.Competence)
	assert.NotEmpty(t, result.BatchID)
	require.NotNil(t, result.Snapshot)
	assert.Len(t, result.Snapshot.Transactions, 2)

	batches := st.Rows(store.KindBillingBatches)
	require.Len(t, batches, 1)
	assert.Equal(t, "t1", batches[0]["tenant_id"])
	assert.Equal(t, 10, batches[0]["due_day"])

	var generated models.Transaction
	for _, tx := range result.Snapshot.Transactions {
		if tx.BatchID == result.BatchID {
			generated = tx
		}
	}
	assert.Equal(t, "m1", generated.MemberID)
	assert.Equal(t, date(2026, time.April, 10), generated.DueDate)
	assert.True(t, generated.Amount.Equal(decimal.NewFromInt(150)))
}

func TestBillingServiceRejectsDuplicateCompetence(t *testing.T) {
	st := store.NewMemoryStore()
	seedSchools(st)
	syncSvc, _ := newTestSync(st, date(2026, time.March, 1))
	svc := NewBillingService(st, syncSvc, 10)
	session := tenantAdmin("t1")
	ctx := context.Background()

	first, err := svc.GenerateCycle(ctx, session, GenerateCycleRequest{Month: "abril", Year: "2026", DueDay: 5})
	require.NoError(t, err)

	second, err := svc.GenerateCycle(ctx, session, GenerateCycleRequest{Month: "Abril", Year: "2026", DueDay: 20})
	require.Error(t, err)
	assert.True(t, errors.IsDuplicateBatch(err))
	assert.Same(t, first.Snapshot, second.Snapshot)
	assert.Len(t, st.Rows(store.KindTransactions), 3)
	assert.Len(t, st.Rows(store.KindBillingBatches), 1)

	// 其他租户同一账期不受影响
	_, err = svc.GenerateCycle(ctx, tenantAdmin("t2"), GenerateCycleRequest{Month: "abril", Year: "2026"})
	assert.NoError(t, err)
}

func TestBillingServiceEmptyRosterWritesNothing(t *testing.T) {
	st := store.NewMemoryStore()
	st.Seed(store.KindTenants, store.Record{"id": "t9", "name": "Escola Vazia", "status": "active"})
	syncSvc, _ := newTestSync(st, date(2026, time.March, 1))
	svc := NewBillingService(st, syncSvc, 10)

	_, err := svc.GenerateCycle(context.Background(), tenantAdmin("t9"), GenerateCycleRequest{Month: "março", Year: "2026"})

	assert.True(t, errors.IsEmptyBatch(err))
	assert.Empty(t, st.Rows(store.KindBillingBatches))
	assert.Empty(t, st.Rows(store.KindTransactions))
}

func TestBillingServiceRollsBackBatchWhenTransactionsFail(t *testing.T) {
	st := newFailingStore()
	seedSchools(st)
	syncSvc, _ := newTestSync(st, date(2026, time.March, 1))
	svc := NewBillingService(st, syncSvc, 10)
	session := tenantAdmin("t1")
	ctx := context.Background()

	st.failWrites.Store(true)
	_, err := svc.GenerateCycle(ctx, session, GenerateCycleRequest{Month: "abril", Year: "2026"})
	require.Error(t, err)
	assert.True(t, errors.IsCollaborator(err))
	assert.Empty(t, st.Rows(store.KindBillingBatches))

	st.failWrites.Store(false)
	result, err := svc.GenerateCycle(ctx, session, GenerateCycleRequest{Month: "abril", Year: "2026"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Generated)
}

func TestBillingServiceRequiresTenant(t *testing.T) {
	st := store.NewMemoryStore()
	syncSvc, _ := newTestSync(st, date(2026, time.March, 1))
	svc := NewBillingService(st, syncSvc, 10)

	_, err := svc.GenerateCycle(context.Background(), platformAdmin(""), GenerateCycleRequest{Month: "março", Year: "2026"})
	assert.True(t, errors.IsValidation(err))
}
