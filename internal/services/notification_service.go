package services

import (
	"context"
	"fmt"
	"strings"

	"sportshub/internal/gateway"
	"sportshub/internal/metrics"
	"sportshub/internal/models"
	"sportshub/internal/store"
	"sportshub/pkg/errors"
	"sportshub/pkg/locale"
	"sportshub/pkg/logger"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// ExpiryWindowDays 即将到期提醒的提前天数
const ExpiryWindowDays = 5

// NotificationTarget 通知对象：体验课提醒对应线索，账单提醒对应账单及其会员
type NotificationTarget struct {
	Lead        *models.Lead
	Transaction *models.Transaction
	Member      *models.Member
}

// LeadTarget 体验课提醒对象
func LeadTarget(lead models.Lead) NotificationTarget {
	return NotificationTarget{Lead: &lead}
}

// TransactionTarget 账单提醒对象，member 为 nil 时由分发器按 member_id 查找
func TransactionTarget(tx models.Transaction, member *models.Member) NotificationTarget {
	return NotificationTarget{Transaction: &tx, Member: member}
}

// DispatchReport 分发结果
type DispatchReport struct {
	Type      string `json:"type"`
	Attempted int    `json:"attempted"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

// ShouldNotify 只有发送多于一条时才给出汇总提示，单条发送不提示
func (r DispatchReport) ShouldNotify() bool {
	return r.Attempted > 1
}

// Notice 汇总提示文案
func (r DispatchReport) Notice() string {
	if !r.ShouldNotify() {
		return ""
	}
	if r.Failed > 0 {
		return fmt.Sprintf("已发送 %d 条通知，其中 %d 条失败", r.Attempted, r.Failed)
	}
	return fmt.Sprintf("已发送 %d 条通知", r.Attempted)
}

// NotificationService 通知分发：取模板、替换占位符、解析手机号、逐个发送
type NotificationService struct {
	store    store.Store
	gateway  gateway.Gateway
	renderer *TemplateRenderer
}

// NewNotificationService 创建通知服务
func NewNotificationService(st store.Store, gw gateway.Gateway) *NotificationService {
	return &NotificationService{
		store:    st,
		gateway:  gw,
		renderer: NewTemplateRenderer(),
	}
}

// Dispatch 向目标逐个发送通知
// 模板缺失时返回 ConfigurationError 且不发送；单个目标发送失败不影响其他目标
func (s *NotificationService) Dispatch(ctx context.Context, tenantID, notificationType string, targets []NotificationTarget) (DispatchReport, error) {
	report := DispatchReport{Type: notificationType}
	if !models.IsValidNotificationType(notificationType) {
		return report, errors.NewValidation("type", fmt.Sprintf("不支持的通知类型: %s", notificationType))
	}

	tmpl, err := s.loadTemplate(ctx, tenantID, notificationType)
	if err != nil {
		return report, err
	}
	tenant, err := s.loadTenant(ctx, tenantID)
	if err != nil {
		return report, err
	}

	var members map[string]models.Member
	if notificationType != models.NotificationTrial && lo.SomeBy(targets, func(t NotificationTarget) bool { return t.Member == nil }) {
		if members, err = s.loadMembers(ctx, tenantID); err != nil {
			return report, err
		}
	}

	m := metrics.Get()
	log := logger.ForTenant(tenantID).WithField("type", notificationType)

	for _, target := range targets {
		phone, vars, ok := s.resolve(notificationType, target, tenant, members)
		if !ok {
			report.Skipped++
			continue
		}

		text := s.renderer.Render(tmpl.Body, vars)
		report.Attempted++
		if err := s.gateway.Send(ctx, phone, tenant.MessagingInstance, text); err != nil {
			report.Failed++
			m.NotificationsSent.WithLabelValues(notificationType, "error").Inc()
			log.WithError(errors.NewGatewayError("send", err)).WithField("phone", phone).Warn("通知发送失败")
			continue
		}
		report.Sent++
		m.NotificationsSent.WithLabelValues(notificationType, "success").Inc()
	}

	log.WithFields(logrus.Fields{
		"attempted": report.Attempted,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
	}).Info("通知分发完成")
	return report, nil
}

// resolve 解析目标的手机号和占位符变量，没有手机号时跳过
func (s *NotificationService) resolve(notificationType string, target NotificationTarget, tenant models.Tenant, members map[string]models.Member) (string, map[string]string, bool) {
	vars := map[string]string{"school_name": tenant.Name}

	if notificationType == models.NotificationTrial {
		if target.Lead == nil {
			return "", nil, false
		}
		lead := target.Lead
		vars["name"] = lead.Name
		vars["trial_time"] = lead.TrialTime
		if lead.TrialDate != nil {
			vars["trial_date"] = locale.FormatDate(*lead.TrialDate, tenant.Locale)
		}
		phone := gateway.NormalizePhone(lead.Phone)
		return phone, vars, phone != ""
	}

	if target.Transaction == nil {
		return "", nil, false
	}
	tx := target.Transaction
	member := target.Member
	if member == nil {
		if found, ok := members[tx.MemberID]; ok {
			member = &found
		}
	}
	if member == nil {
		return "", nil, false
	}

	vars["guardian_name"] = member.GuardianName
	vars["member_name"] = lo.Ternary(tx.MemberName != "", tx.MemberName, member.Name)
	vars["due_date"] = locale.FormatDate(tx.DueDate, tenant.Locale)
	vars["amount"] = locale.FormatAmount(tx.Amount, tenant.Locale)
	vars["competence"] = tx.CompetenceDate

	phone := gateway.NormalizePhone(member.GuardianPhone)
	return phone, vars, phone != ""
}

func (s *NotificationService) loadTemplate(ctx context.Context, tenantID, notificationType string) (models.MessageTemplate, error) {
	rows, err := s.store.Read(ctx, store.Query{
		Kind:     store.KindMessageTemplates,
		TenantID: tenantID,
		Filters:  map[string]interface{}{"type": notificationType},
	})
	if err != nil {
		return models.MessageTemplate{}, errors.NewStoreError("read message_templates", err)
	}
	for _, r := range rows {
		t := MapMessageTemplate(r)
		if strings.TrimSpace(t.Body) != "" {
			return t, nil
		}
	}
	return models.MessageTemplate{}, errors.NewConfiguration(tenantID, "template."+notificationType,
		fmt.Sprintf("租户未配置 %s 类型的消息模板", notificationType))
}

func (s *NotificationService) loadTenant(ctx context.Context, tenantID string) (models.Tenant, error) {
	rows, err := s.store.Read(ctx, store.Query{Kind: store.KindTenants, TenantID: tenantID})
	if err != nil {
		return models.Tenant{}, errors.NewStoreError("read tenants", err)
	}
	if len(rows) == 0 {
		return models.Tenant{}, errors.NewConfiguration(tenantID, "tenant", "租户不存在")
	}
	return MapTenant(rows[0], nil), nil
}

func (s *NotificationService) loadMembers(ctx context.Context, tenantID string) (map[string]models.Member, error) {
	rows, err := s.store.Read(ctx, store.Query{Kind: store.KindMembers, TenantID: tenantID})
	if err != nil {
		return nil, errors.NewStoreError("read members", err)
	}
	members := lo.Map(rows, func(r store.Record, _ int) models.Member { return MapMember(r) })
	return lo.KeyBy(members, func(m models.Member) string { return m.ID }), nil
}

// ========== 账单提醒对象选择 ==========

// SelectOverdue 快照中推导状态为逾期的账单
func SelectOverdue(snap *Snapshot) []NotificationTarget {
	return selectTransactions(snap, func(tx models.Transaction) bool {
		return tx.Status == models.TransactionStatusOverdue
	})
}

// SelectExpiring 未来 days 天内（含当天）到期的待缴账单
func SelectExpiring(snap *Snapshot, days int) []NotificationTarget {
	if snap == nil {
		return nil
	}
	today := CivilDate(snap.SyncedAt)
	limit := today.AddDate(0, 0, days)
	return selectTransactions(snap, func(tx models.Transaction) bool {
		if tx.Status != models.TransactionStatusPending {
			return false
		}
		due := CivilDate(tx.DueDate)
		return !due.Before(today) && !due.After(limit)
	})
}

// SelectByIDs 按账单ID选择，忽略快照中不存在的ID
func SelectByIDs(snap *Snapshot, ids []string) []NotificationTarget {
	wanted := lo.SliceToMap(ids, func(id string) (string, bool) { return id, true })
	return selectTransactions(snap, func(tx models.Transaction) bool { return wanted[tx.ID] })
}

func selectTransactions(snap *Snapshot, keep func(models.Transaction) bool) []NotificationTarget {
	if snap == nil {
		return nil
	}
	var targets []NotificationTarget
	for _, tx := range snap.Transactions {
		if !keep(tx) {
			continue
		}
		var member *models.Member
		if m, ok := snap.Member(tx.MemberID); ok {
			member = &m
		}
		targets = append(targets, TransactionTarget(tx, member))
	}
	return targets
}

// ========== 手动通知意图 ==========

// DispatchRequest 手动发送通知请求，未指定ID时按类型自动选择对象
type DispatchRequest struct {
	Type           string   `json:"type" binding:"required,oneof=overdue expiry5days trial"`
	TransactionIDs []string `json:"transaction_ids"`
	LeadIDs        []string `json:"lead_ids"`
}

// DispatchResult 手动发送结果
type DispatchResult struct {
	Report   DispatchReport `json:"report"`
	Notice   string         `json:"notice,omitempty"`
	Snapshot *Snapshot      `json:"snapshot"`
}

// NotificationIntentService 手动通知：按快照选择对象、分发、重新同步
type NotificationIntentService struct {
	intentBase
	dispatcher *NotificationService
}

// NewNotificationIntentService 创建手动通知服务
func NewNotificationIntentService(st store.Store, syncSvc *SyncService, dispatcher *NotificationService) *NotificationIntentService {
	return &NotificationIntentService{
		intentBase: intentBase{store: st, sync: syncSvc},
		dispatcher: dispatcher,
	}
}

// Dispatch 手动发送一类通知
func (s *NotificationIntentService) Dispatch(ctx context.Context, session Session, req DispatchRequest) (*DispatchResult, error) {
	result := &DispatchResult{Report: DispatchReport{Type: req.Type}, Snapshot: s.sync.Latest(session)}
	if err := validateRequest(req); err != nil {
		return result, err
	}
	tenantID, err := s.scope(session)
	if err != nil {
		return result, err
	}

	snap := result.Snapshot
	if snap == nil || snap.TenantID != tenantID {
		if snap, err = s.sync.Sync(ctx, session); err != nil {
			result.Snapshot = snap
			return result, err
		}
	}

	var targets []NotificationTarget
	switch {
	case req.Type == models.NotificationTrial:
		wanted := lo.SliceToMap(req.LeadIDs, func(id string) (string, bool) { return id, true })
		for _, lead := range snap.Leads {
			if wanted[lead.ID] {
				targets = append(targets, LeadTarget(lead))
			}
		}
	case len(req.TransactionIDs) > 0:
		targets = SelectByIDs(snap, req.TransactionIDs)
	case req.Type == models.NotificationOverdue:
		targets = SelectOverdue(snap)
	default:
		targets = SelectExpiring(snap, ExpiryWindowDays)
	}

	report, err := s.dispatcher.Dispatch(ctx, tenantID, req.Type, targets)
	result.Report = report
	if err != nil {
		return result, err
	}
	result.Notice = report.Notice()

	result.Snapshot, err = s.resync(ctx, session)
	return result, err
}
