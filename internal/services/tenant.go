package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"sportshub/internal/models"
	"sportshub/internal/store"
	"sportshub/pkg/errors"
	"sportshub/pkg/logger"
	"sportshub/pkg/pagination"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// TenantStats 租户统计信息
type TenantStats struct {
	Total         int `json:"total"`
	Active        int `json:"active"`
	Inactive      int `json:"inactive"`
	ActiveMembers int `json:"active_members"`
}

// CreateTenantRequest 平台管理员创建租户
type CreateTenantRequest struct {
	Name              string          `json:"name" binding:"required"`
	PlanID            string          `json:"plan_id"`
	MemberLimit       int             `json:"member_limit" binding:"min=0"`
	EnrollmentFee     decimal.Decimal `json:"enrollment_fee"`
	UniformPrice      decimal.Decimal `json:"uniform_price"`
	Locale            string          `json:"locale" binding:"max=10"`
	MessagingInstance string          `json:"messaging_instance" binding:"max=100"`
	ContactPhone      string          `json:"contact_phone" binding:"max=30"`
	ContactEmail      string          `json:"contact_email" binding:"omitempty,email"`
}

// UpdateTenantRequest 平台管理员修改租户
type UpdateTenantRequest struct {
	Name        string `json:"name" binding:"required"`
	MemberLimit int    `json:"member_limit" binding:"min=0"`
	Status      string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// TenantService 平台管理员的租户与套餐管理
type TenantService struct {
	intentBase
	defaultTemplates map[string]string
}

// NewTenantService 创建租户服务，defaultTemplates 为新租户的默认消息模板
func NewTenantService(st store.Store, syncSvc *SyncService, defaultTemplates map[string]string) *TenantService {
	return &TenantService{
		intentBase:       intentBase{store: st, sync: syncSvc},
		defaultTemplates: defaultTemplates,
	}
}

// ListTenants 组合查询（分页版本），带席位统计
func (s *TenantService) ListTenants(ctx context.Context, session Session, status, keyword string, page *pagination.PageParams) ([]models.Tenant, *pagination.PageInfo, error) {
	if !session.IsPlatformAdmin() {
		return nil, nil, errors.ErrForbidden
	}
	tenants, err := s.loadTenants(ctx)
	if err != nil {
		return nil, nil, err
	}

	keyword = strings.ToLower(strings.TrimSpace(keyword))
	filtered := lo.Filter(tenants, func(t models.Tenant, _ int) bool {
		if status != "" && t.Status != status {
			return false
		}
		return keyword == "" || strings.Contains(strings.ToLower(t.Name), keyword)
	})

	items, info := pagination.Slice(filtered, page)
	return items, info, nil
}

// GetStats 获取租户统计
func (s *TenantService) GetStats(ctx context.Context, session Session) (*TenantStats, error) {
	if !session.IsPlatformAdmin() {
		return nil, errors.ErrForbidden
	}
	tenants, err := s.loadTenants(ctx)
	if err != nil {
		return nil, err
	}
	stats := &TenantStats{Total: len(tenants)}
	for _, t := range tenants {
		if t.IsActive() {
			stats.Active++
		} else {
			stats.Inactive++
		}
		stats.ActiveMembers += t.ActiveMembers
	}
	return stats, nil
}

// ListPlans 平台套餐目录
func (s *TenantService) ListPlans(ctx context.Context) ([]models.PlanDefinition, error) {
	rows, err := s.store.Read(ctx, store.Query{Kind: store.KindPlans, OrderBy: "price"})
	if err != nil {
		return nil, errors.NewStoreError("read plans", err)
	}
	return lo.Map(rows, func(r store.Record, _ int) models.PlanDefinition { return MapPlan(r) }), nil
}

// Create 创建租户，同时写入默认消息模板
func (s *TenantService) Create(ctx context.Context, session Session, req CreateTenantRequest) (*Snapshot, error) {
	if !session.IsPlatformAdmin() {
		return s.sync.Latest(session), errors.ErrForbidden
	}
	if err := validateRequest(req); err != nil {
		return s.sync.Latest(session), err
	}
	if !s.ValidateName(req.Name) {
		return s.sync.Latest(session), errors.NewValidation("name", "租户名称长度必须在2-100个字符之间")
	}
	if err := s.checkPlan(ctx, req.PlanID); err != nil {
		return s.sync.Latest(session), err
	}

	tenantID, err := s.store.Insert(ctx, store.KindTenants, "", store.Record{
		"name":               strings.TrimSpace(req.Name),
		"plan_id":            req.PlanID,
		"status":             models.TenantStatusActive,
		"member_limit":       req.MemberLimit,
		"enrollment_fee":     req.EnrollmentFee,
		"uniform_price":      req.UniformPrice,
		"locale":             lo.Ternary(req.Locale == "", "pt-BR", req.Locale),
		"messaging_instance": req.MessagingInstance,
		"contact_phone":      req.ContactPhone,
		"contact_email":      req.ContactEmail,
	})
	if err != nil {
		return s.writeFailed(session, "insert tenants", err)
	}

	// 默认模板写入失败不影响租户创建，租户管理员可以自行补充
	for notificationType, body := range s.defaultTemplates {
		if err := upsertTemplate(ctx, s.store, tenantID, notificationType, body); err != nil {
			logger.ForTenant(tenantID).WithError(err).Warnf("写入默认 %s 模板失败", notificationType)
		}
	}
	return s.resync(ctx, session)
}

// Update 更新租户
func (s *TenantService) Update(ctx context.Context, session Session, id string, req UpdateTenantRequest) (*Snapshot, error) {
	if !session.IsPlatformAdmin() {
		return s.sync.Latest(session), errors.ErrForbidden
	}
	if err := validateRequest(req); err != nil {
		return s.sync.Latest(session), err
	}
	if !s.ValidateName(req.Name) {
		return s.sync.Latest(session), errors.NewValidation("name", "租户名称长度必须在2-100个字符之间")
	}

	rec := store.Record{
		"name":         strings.TrimSpace(req.Name),
		"member_limit": req.MemberLimit,
	}
	if req.Status != "" {
		rec["status"] = req.Status
	}
	if err := s.store.Update(ctx, store.KindTenants, id, id, rec); err != nil {
		return s.writeFailed(session, "update tenants", err)
	}
	return s.resync(ctx, session)
}

// AssignPlan 调整租户套餐
func (s *TenantService) AssignPlan(ctx context.Context, session Session, id, planID string) (*Snapshot, error) {
	if !session.IsPlatformAdmin() {
		return s.sync.Latest(session), errors.ErrForbidden
	}
	if planID == "" {
		return s.sync.Latest(session), errors.NewValidation("plan_id", "不能为空")
	}
	if err := s.checkPlan(ctx, planID); err != nil {
		return s.sync.Latest(session), err
	}
	if err := s.store.Update(ctx, store.KindTenants, id, id, store.Record{"plan_id": planID}); err != nil {
		return s.writeFailed(session, "update tenants", err)
	}
	return s.resync(ctx, session)
}

// Activate 激活租户
func (s *TenantService) Activate(ctx context.Context, session Session, id string) (*Snapshot, error) {
	return s.setStatus(ctx, session, id, models.TenantStatusActive)
}

// Deactivate 停用租户
func (s *TenantService) Deactivate(ctx context.Context, session Session, id string) (*Snapshot, error) {
	return s.setStatus(ctx, session, id, models.TenantStatusInactive)
}

// Delete 删除租户
func (s *TenantService) Delete(ctx context.Context, session Session, id string) (*Snapshot, error) {
	if !session.IsPlatformAdmin() {
		return s.sync.Latest(session), errors.ErrForbidden
	}
	if err := s.store.Delete(ctx, store.KindTenants, id, id); err != nil {
		return s.writeFailed(session, "delete tenants", err)
	}
	return s.resync(ctx, session)
}

// IsValidStatus 检查租户状态是否有效
func (s *TenantService) IsValidStatus(status string) bool {
	switch status {
	case models.TenantStatusActive, models.TenantStatusInactive:
		return true
	default:
		return false
	}
}

// ValidateName 按字符数校验名称长度
func (s *TenantService) ValidateName(name string) bool {
	runeCount := utf8.RuneCountInString(strings.TrimSpace(name))
	return runeCount >= 2 && runeCount <= 100
}

func (s *TenantService) setStatus(ctx context.Context, session Session, id, status string) (*Snapshot, error) {
	if !session.IsPlatformAdmin() {
		return s.sync.Latest(session), errors.ErrForbidden
	}
	if err := s.store.Update(ctx, store.KindTenants, id, id, store.Record{"status": status}); err != nil {
		return s.writeFailed(session, "update tenants", err)
	}
	return s.resync(ctx, session)
}

func (s *TenantService) checkPlan(ctx context.Context, planID string) error {
	if planID == "" {
		return nil
	}
	plans, err := s.ListPlans(ctx)
	if err != nil {
		return err
	}
	if _, ok := findPlan(plans, planID); !ok {
		return errors.NewValidation("plan_id", fmt.Sprintf("套餐不存在: %s", planID))
	}
	return nil
}

// loadTenants 全部租户及其活跃会员数
func (s *TenantService) loadTenants(ctx context.Context) ([]models.Tenant, error) {
	rows, err := s.store.Read(ctx, store.Query{Kind: store.KindTenants, OrderBy: "name"})
	if err != nil {
		return nil, errors.NewStoreError("read tenants", err)
	}
	plans, err := s.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	memberRows, err := s.store.Read(ctx, store.Query{
		Kind:    store.KindMembers,
		Filters: map[string]interface{}{"status": models.MemberStatusActive},
	})
	if err != nil {
		return nil, errors.NewStoreError("read members", err)
	}
	counts := lo.CountValuesBy(memberRows, func(r store.Record) string { return asString(r["tenant_id"]) })

	return lo.Map(rows, func(r store.Record, _ int) models.Tenant {
		t := MapTenant(r, plans)
		t.ActiveMembers = counts[t.ID]
		return t
	}), nil
}
