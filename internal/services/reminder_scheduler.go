package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sportshub/internal/metrics"
	"sportshub/internal/models"
	"sportshub/internal/store"
	"sportshub/pkg/errors"
	"sportshub/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Dispatcher 通知分发接口，提醒扫描只依赖这一个方法
type Dispatcher interface {
	Dispatch(ctx context.Context, tenantID, notificationType string, targets []NotificationTarget) (DispatchReport, error)
}

// ReminderReport 一次提醒扫描的结果
type ReminderReport struct {
	Eligible   int
	Dispatched int
	Marked     int
}

// ReminderScheduler 体验课提醒：找出明天体验且未提醒的线索，发送后标记已提醒
// 发送与标记不是原子的：发送后、标记前中断会在下次同步时重复提醒
type ReminderScheduler struct {
	store      store.Store
	dispatcher Dispatcher
}

// NewReminderScheduler 创建提醒扫描
func NewReminderScheduler(st store.Store, dispatcher Dispatcher) *ReminderScheduler {
	return &ReminderScheduler{store: st, dispatcher: dispatcher}
}

// DueReminders 明天体验、状态为 trial_scheduled 且未提醒的线索
func DueReminders(leads []models.Lead, now time.Time) []models.Lead {
	tomorrow := CivilDate(now).AddDate(0, 0, 1)
	var due []models.Lead
	for _, lead := range leads {
		if lead.Status != models.LeadStatusTrialScheduled || lead.ReminderSent || lead.TrialDate == nil {
			continue
		}
		if CivilDate(*lead.TrialDate).Equal(tomorrow) {
			due = append(due, lead)
		}
	}
	return due
}

// Run 对快照执行一次提醒扫描，每个线索一次分发、一次标记写入
func (r *ReminderScheduler) Run(ctx context.Context, snap *Snapshot) (ReminderReport, error) {
	var report ReminderReport
	if snap == nil || snap.Scope != ScopeTenant {
		return report, nil
	}

	due := DueReminders(snap.Leads, snap.SyncedAt)
	report.Eligible = len(due)
	if len(due) == 0 {
		return report, nil
	}

	log := logger.ForTenant(snap.TenantID)
	var firstErr error
	for _, lead := range due {
		if _, err := r.dispatcher.Dispatch(ctx, snap.TenantID, models.NotificationTrial, []NotificationTarget{LeadTarget(lead)}); err != nil {
			// 模板缺失对所有线索都一样，不再继续
			if errors.IsConfiguration(err) {
				return report, err
			}
			log.WithError(err).Warnf("线索 %s 体验课提醒分发失败", lead.ID)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		report.Dispatched++

		if err := r.store.Update(ctx, store.KindLeads, snap.TenantID, lead.ID, store.Record{"reminder_sent": true}); err != nil {
			log.WithError(err).Errorf("线索 %s 已提醒但标记失败，下次同步可能重复提醒", lead.ID)
			if firstErr == nil {
				firstErr = errors.NewStoreError("update leads", err)
			}
			continue
		}
		report.Marked++
		metrics.Get().RemindersMarked.Inc()
	}

	log.Infof("体验课提醒: %d 个符合条件, %d 个已分发, %d 个已标记", report.Eligible, report.Dispatched, report.Marked)
	return report, firstErr
}

// ========== 定时扫描 ==========

// ReminderCron 每日定时同步所有启用的租户，使提醒在无人登录时也能发出
type ReminderCron struct {
	sync    *SyncService
	cron    *cron.Cron
	spec    string
	jobID   cron.EntryID
	mu      sync.RWMutex
	running bool
}

// NewReminderCron 创建定时扫描
func NewReminderCron(syncSvc *SyncService, spec string) *ReminderCron {
	if spec == "" {
		spec = "0 9 * * *"
	}
	return &ReminderCron{
		sync: syncSvc,
		cron: cron.New(),
		spec: spec,
	}
}

// Start 启动调度器
func (c *ReminderCron) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	log := logger.GetLogger()
	log.Info("启动体验课提醒调度器")

	jobID, err := c.cron.AddFunc(c.spec, func() {
		c.Sweep(context.Background())
	})
	if err != nil {
		return fmt.Errorf("创建定时任务失败: %v", err)
	}
	c.jobID = jobID

	c.cron.Start()
	c.running = true

	log.Infof("体验课提醒调度器启动成功，表达式: %s", c.spec)
	return nil
}

// Stop 停止调度器
func (c *ReminderCron) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	logger.GetLogger().Info("停止体验课提醒调度器")

	ctx := c.cron.Stop()
	<-ctx.Done()

	c.cron.Remove(c.jobID)
	c.running = false
}

// IsRunning 检查调度器是否运行中
func (c *ReminderCron) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Sweep 以系统会话逐个同步启用的租户，返回成功同步的租户数
func (c *ReminderCron) Sweep(ctx context.Context) int {
	log := logger.GetLogger()

	tenantIDs, err := c.sync.ActiveTenantIDs(ctx)
	if err != nil {
		log.WithError(err).Error("读取租户列表失败")
		return 0
	}

	synced := 0
	for _, tenantID := range tenantIDs {
		session := SystemSession(tenantID)
		if _, err := c.sync.Sync(ctx, session); err != nil {
			log.WithError(err).Errorf("租户 %s 定时同步失败", tenantID)
			continue
		}
		// 系统会话的快照没有订阅者
		c.sync.Forget(session)
		synced++
	}

	log.Infof("定时提醒扫描完成: %d/%d 个租户", synced, len(tenantIDs))
	return synced
}
