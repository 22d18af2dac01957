package services

import (
	"context"
	"encoding/json"
	"time"

	"sportshub/internal/metrics"
	"sportshub/internal/models"
	"sportshub/internal/store"
	"sportshub/pkg/errors"
	"sportshub/pkg/logger"
	"sportshub/pkg/pubsub"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// 快照在总线缓存中的保留时间
const snapshotCacheTTL = 24 * time.Hour

// SnapshotChannel 会话快照的发布频道
func SnapshotChannel(sessionKey string) string {
	return "session:" + sessionKey
}

// SyncService 同步编排：解析租户、并发读取、映射、发布快照
type SyncService struct {
	store     store.Store
	bus       pubsub.Bus
	registry  *SnapshotRegistry
	reminders *ReminderScheduler
	now       func() time.Time
}

// NewSyncService 创建同步服务
func NewSyncService(st store.Store, bus pubsub.Bus, registry *SnapshotRegistry) *SyncService {
	if registry == nil {
		registry = NewSnapshotRegistry()
	}
	return &SyncService{
		store:    st,
		bus:      bus,
		registry: registry,
		now:      time.Now,
	}
}

// SetReminderScheduler 每次租户范围同步成功后运行的提醒扫描
func (s *SyncService) SetReminderScheduler(r *ReminderScheduler) {
	s.reminders = r
}

// SetClock 替换时钟（测试用）
func (s *SyncService) SetClock(now func() time.Time) {
	s.now = now
}

// Now 当前时间
func (s *SyncService) Now() time.Time {
	return s.now()
}

// Latest 会话最近一次成功同步的快照，没有时返回 nil
func (s *SyncService) Latest(session Session) *Snapshot {
	snap, _ := s.registry.Get(session.Key())
	return snap
}

// Current 会话当前的快照；切换租户后或尚未同步时重新同步
func (s *SyncService) Current(ctx context.Context, session Session) (*Snapshot, error) {
	if snap := s.Latest(session); snap != nil {
		tenantID, _ := session.ActiveTenant()
		if snap.TenantID == tenantID {
			return snap, nil
		}
	}
	return s.Sync(ctx, session)
}

// Forget 会话结束时丢弃快照
func (s *SyncService) Forget(session Session) {
	s.registry.Delete(session.Key())
}

// Sync 重新读取会话可见的全部数据，整体替换快照
// 协作方失败时返回上一次成功的快照和 CollaboratorError
func (s *SyncService) Sync(ctx context.Context, session Session) (*Snapshot, error) {
	snap, err := s.sync(ctx, session)
	if err != nil {
		return s.Latest(session), err
	}

	if s.reminders == nil || snap.Scope != ScopeTenant {
		return snap, nil
	}

	report, err := s.reminders.Run(ctx, snap)
	if err != nil {
		logger.ForTenant(snap.TenantID).WithError(err).Warn("体验课提醒扫描失败")
	}
	if report.Marked == 0 {
		return snap, nil
	}

	// 提醒标记已写入，再同步一次让快照反映 reminder_sent，不再触发提醒
	refreshed, err := s.sync(ctx, session)
	if err != nil {
		return snap, err
	}
	return refreshed, nil
}

// ActiveTenantIDs 所有启用中的租户（定时任务使用）
func (s *SyncService) ActiveTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := s.store.Read(ctx, store.Query{Kind: store.KindTenants, OrderBy: "name"})
	if err != nil {
		return nil, errors.NewStoreError("read tenants", err)
	}
	var ids []string
	for _, row := range rows {
		t := MapTenant(row, nil)
		if t.IsActive() {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

type syncReads struct {
	plans        []store.Record
	flags        []store.Record
	tenants      []store.Record
	members      []store.Record
	leads        []store.Record
	transactions []store.Record
	configs      []store.Record
	templates    []store.Record
}

func (s *SyncService) sync(ctx context.Context, session Session) (*Snapshot, error) {
	start := time.Now()
	m := metrics.Get()

	tenantID, scoped := session.ActiveTenant()
	scope := ScopeGlobal
	if scoped {
		scope = ScopeTenant
	}

	log := logger.GetLogger().WithFields(logrus.Fields{
		"user_id":   session.UserID,
		"tenant_id": tenantID,
		"scope":     scope,
	})

	reads, err := s.readAll(ctx, tenantID, scoped)
	m.SyncDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.SyncTotal.WithLabelValues(scope, "error").Inc()
		log.WithError(err).Error("同步读取失败，快照保持上一次成功的状态")
		return nil, err
	}

	snap := s.assemble(session, tenantID, scoped, reads)
	s.registry.Put(session.Key(), snap)
	s.publish(ctx, session, snap)

	m.SyncTotal.WithLabelValues(scope, "success").Inc()
	log.Debugf("同步完成: %d 会员, %d 线索, %d 账单", len(snap.Members), len(snap.Leads), len(snap.Transactions))
	return snap, nil
}

// readAll 并发发出互不依赖的读取，全部完成后才返回
func (s *SyncService) readAll(ctx context.Context, tenantID string, scoped bool) (*syncReads, error) {
	reads := &syncReads{}
	g, gctx := errgroup.WithContext(ctx)

	read := func(dst *[]store.Record, q store.Query) {
		g.Go(func() error {
			rows, err := s.store.Read(gctx, q)
			if err != nil {
				return errors.NewStoreError("read "+string(q.Kind), err)
			}
			*dst = rows
			return nil
		})
	}

	read(&reads.plans, store.Query{Kind: store.KindPlans, OrderBy: "price"})
	read(&reads.flags, store.Query{Kind: store.KindFeatureFlags, OrderBy: "key"})

	if !scoped {
		// 全局视图：所有租户，会员只用于统计席位
		read(&reads.tenants, store.Query{Kind: store.KindTenants, OrderBy: "name"})
		read(&reads.members, store.Query{Kind: store.KindMembers, Filters: map[string]interface{}{"status": models.MemberStatusActive}})
	} else {
		read(&reads.tenants, store.Query{Kind: store.KindTenants, TenantID: tenantID})
		read(&reads.members, store.Query{Kind: store.KindMembers, TenantID: tenantID, OrderBy: "name"})
		read(&reads.leads, store.Query{Kind: store.KindLeads, TenantID: tenantID, OrderBy: "created_at", Desc: true})
		read(&reads.transactions, store.Query{Kind: store.KindTransactions, TenantID: tenantID, OrderBy: "due_date", Desc: true})
		read(&reads.configs, store.Query{Kind: store.KindTenantConfigs, TenantID: tenantID})
		read(&reads.templates, store.Query{Kind: store.KindMessageTemplates, TenantID: tenantID})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reads, nil
}

func (s *SyncService) assemble(session Session, tenantID string, scoped bool, reads *syncReads) *Snapshot {
	now := s.now()

	plans := lo.Map(reads.plans, func(r store.Record, _ int) models.PlanDefinition { return MapPlan(r) })
	flags := lo.Map(reads.flags, func(r store.Record, _ int) models.FeatureFlag { return MapFeatureFlag(r) })
	members := lo.Map(reads.members, func(r store.Record, _ int) models.Member { return MapMember(r) })

	// 席位统计只计算活跃会员
	activeByTenant := lo.CountValuesBy(
		lo.Filter(members, func(m models.Member, _ int) bool { return m.IsActive() }),
		func(m models.Member) string { return m.TenantID },
	)
	tenants := lo.Map(reads.tenants, func(r store.Record, _ int) models.Tenant {
		t := MapTenant(r, plans)
		t.ActiveMembers = activeByTenant[t.ID]
		return t
	})

	snap := &Snapshot{
		Scope:        ScopeGlobal,
		Tenants:      tenants,
		Plans:        plans,
		Members:      []models.Member{},
		Leads:        []models.Lead{},
		Transactions: []models.Transaction{},
		Templates:    map[string]models.MessageTemplate{},
		FeatureFlags: flags,
		SyncedAt:     now,
	}
	if !scoped {
		return snap
	}

	snap.Scope = ScopeTenant
	snap.TenantID = tenantID
	snap.Impersonated = session.IsPlatformAdmin()
	if t, ok := lo.Find(tenants, func(t models.Tenant) bool { return t.ID == tenantID }); ok {
		snap.Tenant = &t
	}

	txs := WithDerivedStatuses(
		lo.Map(reads.transactions, func(r store.Record, _ int) models.Transaction { return MapTransaction(r) }),
		now,
	)
	byMember := lo.GroupBy(txs, func(tx models.Transaction) string { return tx.MemberID })
	for i := range members {
		members[i].PaymentStatus = memberPaymentStatus(members[i].PaymentStatus, byMember[members[i].ID])
	}

	snap.Members = members
	snap.Transactions = txs
	snap.Leads = lo.Map(reads.leads, func(r store.Record, _ int) models.Lead { return MapLead(r) })

	snap.Config = EmptyTenantConfig(tenantID)
	if len(reads.configs) > 0 {
		snap.Config = MapTenantConfig(reads.configs[0])
	}
	for _, r := range reads.templates {
		t := MapMessageTemplate(r)
		snap.Templates[t.Type] = t
	}
	return snap
}

// publish 发布到会话频道并缓存；总线失败不影响同步结果
func (s *SyncService) publish(ctx context.Context, session Session, snap *Snapshot) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		logger.GetLogger().WithError(err).Error("快照序列化失败")
		return
	}
	channel := SnapshotChannel(session.Key())
	if err := s.bus.Cache(ctx, channel, payload, snapshotCacheTTL); err != nil {
		logger.GetLogger().WithError(err).Warn("缓存快照失败")
	}
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		logger.GetLogger().WithError(err).Warn("发布快照失败")
	}
}
