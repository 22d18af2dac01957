package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"sportshub/internal/metrics"
	"sportshub/internal/models"
	"sportshub/internal/store"
	"sportshub/pkg/errors"
	"sportshub/pkg/logger"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// 账期月份表，顺序即月份序号
var competenceMonths = []string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// foldMonth 小写并去掉重音，"Março"、"marco" 都能匹配
func foldMonth(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return folded
}

// MonthOrdinal 月份名称对应的序号（1-12）和规范名称
func MonthOrdinal(month string) (int, string, bool) {
	key := foldMonth(month)
	for i, name := range competenceMonths {
		if foldMonth(name) == key {
			return i + 1, name, true
		}
	}
	return 0, "", false
}

// CompetenceLabel 账期标签 "{month}/{year}"
func CompetenceLabel(month, year string) string {
	return fmt.Sprintf("%s/%s", month, year)
}

// LookupMonthlyPlan 按会员的套餐名称精确匹配租户配置中的月费套餐
func LookupMonthlyPlan(plans []models.MonthlyPlan, name string) (models.MonthlyPlan, bool) {
	return lo.Find(plans, func(p models.MonthlyPlan) bool { return p.Name == name })
}

// dueDate 构造到期日，超出当月天数时取当月最后一天
func dueDate(year, month, day int) time.Time {
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// GenerateCycle 为每个活跃会员生成一笔待缴账单，只生成不写入
// 没有活跃会员时返回 EmptyBatchError 且不生成任何账单
func GenerateCycle(tenantID string, members []models.Member, cfg models.TenantConfig, month, year string, dueDay int) ([]models.Transaction, error) {
	ordinal, monthName, ok := MonthOrdinal(month)
	if !ok {
		return nil, errors.NewValidation("month", fmt.Sprintf("无法识别的月份: %s", month))
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y < 1900 || y > 9999 {
		return nil, errors.NewValidation("year", fmt.Sprintf("无效的年份: %s", year))
	}
	if dueDay < 1 || dueDay > 31 {
		return nil, errors.NewValidation("due_day", "必须在1-31之间")
	}

	competence := CompetenceLabel(monthName, strconv.Itoa(y))
	active := lo.Filter(members, func(m models.Member, _ int) bool { return m.IsActive() })
	if len(active) == 0 {
		return nil, &errors.EmptyBatchError{TenantID: tenantID, Competence: competence}
	}

	due := dueDate(y, ordinal, dueDay)
	log := logger.ForTenant(tenantID)

	txs := make([]models.Transaction, 0, len(active))
	for _, m := range active {
		amount := decimal.Zero
		if plan, found := LookupMonthlyPlan(cfg.MonthlyPlans, m.Plan); found {
			amount = plan.Price
		} else {
			log.WithFields(logrus.Fields{
				"member_id": m.ID,
				"plan":      m.Plan,
			}).Warn("会员套餐在月费配置中不存在，金额按0生成")
		}

		txs = append(txs, models.Transaction{
			TenantID:       tenantID,
			MemberID:       m.ID,
			MemberName:     m.Name,
			Description:    fmt.Sprintf("Mensalidade %s", competence),
			Amount:         amount,
			DueDate:        due,
			CompetenceDate: competence,
			Status:         models.TransactionStatusPending,
		})
	}
	return txs, nil
}

// GenerateCycleRequest 生成账期账单请求
type GenerateCycleRequest struct {
	Month  string `json:"month" binding:"required"`
	Year   string `json:"year" binding:"required"`
	DueDay int    `json:"due_day" binding:"omitempty,min=1,max=31"`
}

// BillingResult 生成结果
type BillingResult struct {
	BatchID    string    `json:"batch_id"`
	Competence string    `json:"competence"`
	Generated  int       `json:"generated"`
	Snapshot   *Snapshot `json:"snapshot"`
}

// BillingService 账期账单生成
type BillingService struct {
	intentBase
	defaultDueDay int
}

// NewBillingService 创建账单服务
func NewBillingService(st store.Store, syncSvc *SyncService, defaultDueDay int) *BillingService {
	if defaultDueDay < 1 || defaultDueDay > 31 {
		defaultDueDay = 10
	}
	return &BillingService{
		intentBase:    intentBase{store: st, sync: syncSvc},
		defaultDueDay: defaultDueDay,
	}
}

// GenerateCycle 校验 -> 解析租户 -> 批次去重 -> 写入批次和账单 -> 重新同步
// 同一租户同一账期只允许生成一次
func (s *BillingService) GenerateCycle(ctx context.Context, session Session, req GenerateCycleRequest) (*BillingResult, error) {
	m := metrics.Get()
	result := &BillingResult{Snapshot: s.sync.Latest(session)}

	if err := validateRequest(req); err != nil {
		return result, err
	}
	tenantID, err := s.scope(session)
	if err != nil {
		return result, err
	}
	if req.DueDay == 0 {
		req.DueDay = s.defaultDueDay
	}

	members, cfg, err := s.loadRoster(ctx, tenantID)
	if err != nil {
		return result, err
	}

	txs, err := GenerateCycle(tenantID, members, cfg, req.Month, req.Year, req.DueDay)
	if err != nil {
		if errors.IsEmptyBatch(err) {
			m.BillingRejected.WithLabelValues("empty").Inc()
		}
		return result, err
	}
	competence := txs[0].CompetenceDate
	result.Competence = competence

	// 批次去重：先查，再依赖唯一索引兜底并发
	existing, err := s.store.Read(ctx, store.Query{
		Kind:     store.KindBillingBatches,
		TenantID: tenantID,
		Filters:  map[string]interface{}{"competence": competence},
	})
	if err != nil {
		return result, errors.NewStoreError("read billing_batches", err)
	}
	if len(existing) > 0 {
		m.BillingRejected.WithLabelValues("duplicate").Inc()
		return result, &errors.DuplicateBatchError{TenantID: tenantID, Competence: competence}
	}

	_, monthName, _ := MonthOrdinal(req.Month)
	year, _ := strconv.Atoi(strings.TrimSpace(req.Year))
	batchID, err := s.store.Insert(ctx, store.KindBillingBatches, tenantID, store.Record{
		"competence": competence,
		"month":      monthName,
		"year":       strconv.Itoa(year),
		"due_day":    req.DueDay,
		"count":      len(txs),
	})
	if err != nil {
		if store.IsDuplicate(err) {
			m.BillingRejected.WithLabelValues("duplicate").Inc()
			return result, &errors.DuplicateBatchError{TenantID: tenantID, Competence: competence}
		}
		snap, werr := s.writeFailed(session, "insert billing_batches", err)
		result.Snapshot = snap
		return result, werr
	}

	rows := make([]store.Record, len(txs))
	for i := range txs {
		txs[i].BatchID = batchID
		rows[i] = transactionRecord(txs[i])
	}
	if err := s.store.InsertMany(ctx, store.KindTransactions, tenantID, rows); err != nil {
		// 账单写入失败时撤回批次，允许重新生成
		if derr := s.store.Delete(ctx, store.KindBillingBatches, tenantID, batchID); derr != nil {
			logger.ForTenant(tenantID).WithError(derr).Error("撤回账单批次失败")
		}
		snap, werr := s.writeFailed(session, "insert transactions", err)
		result.Snapshot = snap
		return result, werr
	}

	m.BillingGenerated.WithLabelValues(tenantID).Add(float64(len(txs)))
	logger.ForTenant(tenantID).Infof("账期 %s 生成 %d 笔账单", competence, len(txs))

	result.BatchID = batchID
	result.Generated = len(txs)
	snap, err := s.resync(ctx, session)
	result.Snapshot = snap
	return result, err
}

// loadRoster 读取当前会员名单和月费配置
func (s *BillingService) loadRoster(ctx context.Context, tenantID string) ([]models.Member, models.TenantConfig, error) {
	rows, err := s.store.Read(ctx, store.Query{Kind: store.KindMembers, TenantID: tenantID, OrderBy: "name"})
	if err != nil {
		return nil, models.TenantConfig{}, errors.NewStoreError("read members", err)
	}
	cfgRows, err := s.store.Read(ctx, store.Query{Kind: store.KindTenantConfigs, TenantID: tenantID})
	if err != nil {
		return nil, models.TenantConfig{}, errors.NewStoreError("read tenant_configs", err)
	}

	members := lo.Map(rows, func(r store.Record, _ int) models.Member { return MapMember(r) })
	cfg := EmptyTenantConfig(tenantID)
	if len(cfgRows) > 0 {
		cfg = MapTenantConfig(cfgRows[0])
	}
	return members, cfg, nil
}

func transactionRecord(tx models.Transaction) store.Record {
	r := store.Record{
		"member_id":       tx.MemberID,
		"member_name":     tx.MemberName,
		"description":     tx.Description,
		"amount":          tx.Amount,
		"due_date":        tx.DueDate,
		"competence_date": tx.CompetenceDate,
		"status":          tx.Status,
		"payment_method":  tx.PaymentMethod,
		"batch_id":        tx.BatchID,
	}
	if tx.PaymentDate != nil {
		r["payment_date"] = *tx.PaymentDate
	}
	return r
}
