package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"sportshub/internal/models"
	"sportshub/internal/store"
	"sportshub/pkg/errors"
	"sportshub/pkg/pubsub"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore 在 failReads 打开时让所有读取失败
type failingStore struct {
	*store.MemoryStore
	failReads  atomic.Bool
	failWrites atomic.Bool
}

var errStoreDown = stderrors.New("connection refused")

func newFailingStore() *failingStore {
	return &failingStore{MemoryStore: store.NewMemoryStore()}
}

func (s *failingStore) Read(ctx context.Context, q store.Query) ([]store.Record, error) {
	if s.failReads.Load() {
		return nil, errStoreDown
	}
	return s.MemoryStore.Read(ctx, q)
}

func (s *failingStore) InsertMany(ctx context.Context, kind store.Kind, tenantID string, rows []store.Record) error {
	if s.failWrites.Load() {
		return errStoreDown
	}
	return s.MemoryStore.InsertMany(ctx, kind, tenantID, rows)
}

func newTestSync(st store.Store, now time.Time) (*SyncService, *pubsub.LocalBus) {
	bus := pubsub.NewLocalBus()
	svc := NewSyncService(st, bus, NewSnapshotRegistry())
	svc.SetClock(func() time.Time { return now })
	return svc, bus
}

func tenantAdmin(tenantID string) Session {
	return Session{UserID: "admin-" + tenantID, Username: "admin", Role: models.RoleTenantAdmin, TenantID: tenantID}
}

func platformAdmin(impersonated string) Session {
	return Session{UserID: "root", Username: "root", Role: models.RolePlatformAdmin, ImpersonatedTenantID: impersonated}
}

// seedSchools 两个租户，各自有会员、账单和配置
func seedSchools(st interface{ Seed(store.Kind, ...store.Record) }) {
	st.Seed(store.KindPlans,
		store.Record{"id": "starter", "name": "Starter", "price": decimal.NewFromInt(99), "max_members": 50},
		store.Record{"id": "pro", "name": "Pro", "price": decimal.NewFromInt(199), "max_members": 200},
	)
	st.Seed(store.KindFeatureFlags, store.Record{"key": "leads", "enabled": true})
	st.Seed(store.KindTenants,
		store.Record{"id": "t1", "name": "Escola Azul", "plan_id": "starter", "status": "active", "messaging_instance": "azul"},
		store.Record{"id": "t2", "name": "Escola Verde", "plan_id": "pro", "status": "active"},
	)
	st.Seed(store.KindMembers,
		store.Record{"id": "m1", "tenant_id": "t1", "name": "Ana", "status": "active", "plan": "Mensal", "guardian_phone": "(11) 98765-4321"},
		store.Record{"id": "m2", "tenant_id": "t1", "name": "Bruno", "status": "inactive", "plan": "Mensal"},
		store.Record{"id": "m3", "tenant_id": "t2", "name": "Carla", "status": "active", "plan": "Mensal"},
	)
	st.Seed(store.KindTransactions,
		store.Record{"id": "x1", "tenant_id": "t1", "member_id": "m1", "member_name": "Ana", "amount": decimal.NewFromInt(150),
			"due_date": date(2026, 3, 10), "competence_date": "março/2026", "status": "pending"},
		store.Record{"id": "x2", "tenant_id": "t2", "member_id": "m3", "member_name": "Carla", "amount": decimal.NewFromInt(150),
			"due_date": date(2026, 3, 10), "competence_date": "março/2026", "status": "paid"},
	)
	st.Seed(store.KindTenantConfigs, store.Record{
		"id": "c1", "tenant_id": "t1",
		"categories":    []string{"Sub-11"},
		"monthly_plans": []models.MonthlyPlan{{Name: "Mensal", Price: decimal.NewFromInt(150)}},
	})
}

func TestSyncTenantScope(t *testing.T) {
	st := store.NewMemoryStore()
	seedSchools(st)
	svc, _ := newTestSync(st, date(2026, 3, 11))

	snap, err := svc.Sync(context.Background(), tenantAdmin("t1"))
	require.NoError(t, err)

	assert.Equal(t, ScopeTenant, snap.Scope)
	assert.Equal(t, "t1", snap.TenantID)
	assert.False(t, snap.Impersonated)
	require.NotNil(t, snap.Tenant)
	assert.Equal(t, "Escola Azul", snap.Tenant.Name)
	assert.Equal(t, 1, snap.Tenant.ActiveMembers)
	assert.Len(t, snap.Members, 2)
	assert.Equal(t, []string{"Sub-11"}, []string(snap.Config.Categories))

	// 到期日已过的待缴账单在快照中推导为逾期，存储不变
	tx, ok := snap.Transaction("x1")
	require.True(t, ok)
	assert.Equal(t, models.TransactionStatusOverdue, tx.Status)
	assert.Equal(t, "pending", st.Rows(store.KindTransactions)[0]["status"])

	member, ok := snap.Member("m1")
	require.True(t, ok)
	assert.Equal(t, models.TransactionStatusOverdue, member.PaymentStatus)
}

func TestSyncImpersonationReadsOnlyOverrideTenant(t *testing.T) {
	st := store.NewMemoryStore()
	seedSchools(st)
	svc, _ := newTestSync(st, date(2026, 3, 1))

	snap, err := svc.Sync(context.Background(), platformAdmin("t2"))
	require.NoError(t, err)

	assert.Equal(t, ScopeTenant, snap.Scope)
	assert.Equal(t, "t2", snap.TenantID)
	assert.True(t, snap.Impersonated)
	require.Len(t, snap.Members, 1)
	assert.Equal(t, "m3", snap.Members[0].ID)
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "x2", snap.Transactions[0].ID)
	require.NotNil(t, snap.Tenant)
	assert.Equal(t, 200, snap.Tenant.EffectiveLimit)
}

func TestSyncTenantAdminIgnoresImpersonation(t *testing.T) {
	st := store.NewMemoryStore()
	seedSchools(st)
	svc, _ := newTestSync(st, date(2026, 3, 1))

	session := tenantAdmin("t1")
	session.ImpersonatedTenantID = "t2"

	snap, err := svc.Sync(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, "t1", snap.TenantID)
	for _, m := range snap.Members {
		assert.Equal(t, "t1", m.TenantID)
	}
}

func TestSyncGlobalScope(t *testing.T) {
	st := store.NewMemoryStore()
	seedSchools(st)
	svc, _ := newTestSync(st, date(2026, 3, 1))

	snap, err := svc.Sync(context.Background(), platformAdmin(""))
	require.NoError(t, err)

	assert.Equal(t, ScopeGlobal, snap.Scope)
	assert.Empty(t, snap.TenantID)
	assert.Nil(t, snap.Tenant)
	assert.Len(t, snap.Tenants, 2)
	assert.Empty(t, snap.Members)
	assert.Empty(t, snap.Transactions)
	assert.Len(t, snap.Plans, 2)

	counts := map[string]int{}
	for _, tenant := range snap.Tenants {
		counts[tenant.ID] = tenant.ActiveMembers
	}
	assert.Equal(t, map[string]int{"t1": 1, "t2": 1}, counts)
}

func TestSyncKeepsLastKnownGoodOnStoreFailure(t *testing.T) {
	st := newFailingStore()
	seedSchools(st)
	svc, _ := newTestSync(st, date(2026, 3, 1))
	session := tenantAdmin("t1")

	first, err := svc.Sync(context.Background(), session)
	require.NoError(t, err)

	st.failReads.Store(true)
	second, err := svc.Sync(context.Background(), session)

	require.Error(t, err)
	assert.True(t, errors.IsCollaborator(err))
	assert.Same(t, first, second)
	assert.Same(t, first, svc.Latest(session))
}

func TestSyncFailureWithoutPriorSnapshot(t *testing.T) {
	st := newFailingStore()
	st.failReads.Store(true)
	svc, _ := newTestSync(st, date(2026, 3, 1))

	snap, err := svc.Sync(context.Background(), tenantAdmin("t1"))

	assert.Nil(t, snap)
	assert.True(t, errors.IsCollaborator(err))
}

func TestSyncPublishesAndCachesSnapshot(t *testing.T) {
	st := store.NewMemoryStore()
	seedSchools(st)
	svc, bus := newTestSync(st, date(2026, 3, 1))
	session := tenantAdmin("t1")
	channel := SnapshotChannel(session.Key())

	ch, unsubscribe, err := bus.Subscribe(context.Background(), channel)
	require.NoError(t, err)
	defer unsubscribe()

	_, err = svc.Sync(context.Background(), session)
	require.NoError(t, err)

	select {
	case payload := <-ch:
		var decoded Snapshot
		require.NoError(t, json.Unmarshal(payload, &decoded))
		assert.Equal(t, "t1", decoded.TenantID)
	case <-time.After(time.Second):
		t.Fatal("snapshot was not published")
	}

	cached, err := bus.Cached(context.Background(), channel)
	require.NoError(t, err)
	assert.NotEmpty(t, cached)
}

func TestCurrentResyncsAfterTenantSwitch(t *testing.T) {
	st := store.NewMemoryStore()
	seedSchools(st)
	svc, _ := newTestSync(st, date(2026, 3, 1))
	ctx := context.Background()

	first, err := svc.Current(ctx, platformAdmin("t1"))
	require.NoError(t, err)
	again, err := svc.Current(ctx, platformAdmin("t1"))
	require.NoError(t, err)
	assert.Same(t, first, again)

	switched, err := svc.Current(ctx, platformAdmin("t2"))
	require.NoError(t, err)
	assert.Equal(t, "t2", switched.TenantID)

	svc.Forget(platformAdmin("t2"))
	assert.Nil(t, svc.Latest(platformAdmin("t2")))
}

func TestActiveTenantIDs(t *testing.T) {
	st := store.NewMemoryStore()
	seedSchools(st)
	st.Seed(store.KindTenants, store.Record{"id": "t3", "name": "Escola Parada", "status": "inactive"})
	svc, _ := newTestSync(st, date(2026, 3, 1))

	ids, err := svc.ActiveTenantIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "t2"}, ids)
}

func TestSnapshotFeatureEnabled(t *testing.T) {
	snap := &Snapshot{FeatureFlags: []models.FeatureFlag{
		{Key: "leads", Enabled: false},
		{Key: "billing", Enabled: true},
	}}

	assert.False(t, snap.FeatureEnabled("leads"))
	assert.True(t, snap.FeatureEnabled("billing"))
	assert.True(t, snap.FeatureEnabled("desconhecido"))
}
