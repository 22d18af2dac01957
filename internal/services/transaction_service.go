package services

import (
	"context"
	"strings"
	"time"

	"sportshub/internal/models"
	"sportshub/internal/store"
	"sportshub/pkg/errors"

	"github.com/shopspring/decimal"
)

// TransactionRequest 新增/修改账单请求；overdue 只在读取时推导，不能写入
type TransactionRequest struct {
	MemberID       string          `json:"member_id" binding:"required"`
	Description    string          `json:"description" binding:"max=200"`
	Amount         decimal.Decimal `json:"amount"`
	DueDate        string          `json:"due_date" binding:"required,datetime=2006-01-02"`
	CompetenceDate string          `json:"competence_date" binding:"max=40"`
	Status         string          `json:"status" binding:"omitempty,oneof=pending paid"`
	PaymentDate    string          `json:"payment_date" binding:"omitempty,datetime=2006-01-02"`
	PaymentMethod  string          `json:"payment_method" binding:"max=40"`
}

// PayRequest 标记已缴请求，未提供缴费日期时记为当前时间
type PayRequest struct {
	PaymentDate   string `json:"payment_date" binding:"omitempty,datetime=2006-01-02"`
	PaymentMethod string `json:"payment_method" binding:"max=40"`
}

// StampPayment 状态为已缴且没有缴费日期时补上 now
func StampPayment(status string, paymentDate *time.Time, now time.Time) *time.Time {
	if status != models.TransactionStatusPaid {
		return paymentDate
	}
	if paymentDate == nil || paymentDate.IsZero() {
		return &now
	}
	return paymentDate
}

// TransactionService 账单意图
type TransactionService struct {
	intentBase
}

// NewTransactionService 创建账单服务
func NewTransactionService(st store.Store, syncSvc *SyncService) *TransactionService {
	return &TransactionService{intentBase: intentBase{store: st, sync: syncSvc}}
}

// AddTransaction 新增单笔账单
func (s *TransactionService) AddTransaction(ctx context.Context, session Session, req TransactionRequest) (*Snapshot, error) {
	tenantID, rec, err := s.prepare(ctx, session, req)
	if err != nil {
		return s.sync.Latest(session), err
	}
	if _, err := s.store.Insert(ctx, store.KindTransactions, tenantID, rec); err != nil {
		return s.writeFailed(session, "insert transactions", err)
	}
	return s.resync(ctx, session)
}

// UpdateTransaction 修改账单
func (s *TransactionService) UpdateTransaction(ctx context.Context, session Session, id string, req TransactionRequest) (*Snapshot, error) {
	tenantID, rec, err := s.prepare(ctx, session, req)
	if err != nil {
		return s.sync.Latest(session), err
	}
	if err := s.store.Update(ctx, store.KindTransactions, tenantID, id, rec); err != nil {
		return s.writeFailed(session, "update transactions", err)
	}
	return s.resync(ctx, session)
}

// MarkPaid 标记已缴
func (s *TransactionService) MarkPaid(ctx context.Context, session Session, id string, req PayRequest) (*Snapshot, error) {
	if err := validateRequest(req); err != nil {
		return s.sync.Latest(session), err
	}
	tenantID, err := s.scope(session)
	if err != nil {
		return s.sync.Latest(session), err
	}

	var paymentDate *time.Time
	if d, ok := parseCivilDate(req.PaymentDate); ok {
		paymentDate = &d
	}
	rec := store.Record{
		"status":       models.TransactionStatusPaid,
		"payment_date": *StampPayment(models.TransactionStatusPaid, paymentDate, s.sync.Now()),
	}
	if req.PaymentMethod != "" {
		rec["payment_method"] = req.PaymentMethod
	}

	if err := s.store.Update(ctx, store.KindTransactions, tenantID, id, rec); err != nil {
		return s.writeFailed(session, "update transactions", err)
	}
	return s.resync(ctx, session)
}

// DeleteTransaction 删除账单
func (s *TransactionService) DeleteTransaction(ctx context.Context, session Session, id string) (*Snapshot, error) {
	tenantID, err := s.scope(session)
	if err != nil {
		return s.sync.Latest(session), err
	}
	if err := s.store.Delete(ctx, store.KindTransactions, tenantID, id); err != nil {
		return s.writeFailed(session, "delete transactions", err)
	}
	return s.resync(ctx, session)
}

// prepare 校验请求并组装写入字段，会员名称在写入时做快照
func (s *TransactionService) prepare(ctx context.Context, session Session, req TransactionRequest) (string, store.Record, error) {
	if err := validateRequest(req); err != nil {
		return "", nil, err
	}
	if req.Amount.IsNegative() {
		return "", nil, errors.NewValidation("amount", "金额不能为负数")
	}
	tenantID, err := s.scope(session)
	if err != nil {
		return "", nil, err
	}

	rows, err := s.store.Read(ctx, store.Query{
		Kind:     store.KindMembers,
		TenantID: tenantID,
		Filters:  map[string]interface{}{"id": req.MemberID},
	})
	if err != nil {
		return "", nil, errors.NewStoreError("read members", err)
	}
	if len(rows) == 0 {
		return "", nil, errors.NewValidation("member_id", "会员不存在")
	}
	member := MapMember(rows[0])

	status := req.Status
	if status == "" {
		status = models.TransactionStatusPending
	}
	due, _ := parseCivilDate(req.DueDate)
	var paymentDate *time.Time
	if d, ok := parseCivilDate(req.PaymentDate); ok {
		paymentDate = &d
	}
	paymentDate = StampPayment(status, paymentDate, s.sync.Now())

	rec := store.Record{
		"member_id":       member.ID,
		"member_name":     member.Name,
		"description":     strings.TrimSpace(req.Description),
		"amount":          req.Amount,
		"due_date":        due,
		"competence_date": req.CompetenceDate,
		"status":          status,
		"payment_method":  req.PaymentMethod,
		"payment_date":    nil,
	}
	if paymentDate != nil {
		rec["payment_date"] = *paymentDate
	}
	return tenantID, rec, nil
}
