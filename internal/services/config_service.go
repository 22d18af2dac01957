package services

import (
	"context"
	stderrors "errors"
	"strings"

	"sportshub/internal/models"
	"sportshub/internal/store"
	"sportshub/pkg/errors"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MonthlyPlanInput 月费套餐
type MonthlyPlanInput struct {
	Name  string          `json:"name" binding:"required,max=60"`
	Price decimal.Decimal `json:"price"`
}

// TenantConfigRequest 租户参考列表
type TenantConfigRequest struct {
	Categories   []string           `json:"categories"`
	Teams        []string           `json:"teams"`
	Units        []string           `json:"units"`
	MonthlyPlans []MonthlyPlanInput `json:"monthly_plans" binding:"dive"`
}

// TemplateRequest 消息模板
type TemplateRequest struct {
	Type string `json:"type" binding:"required,oneof=overdue expiry5days trial"`
	Body string `json:"body" binding:"required"`
}

// TenantProfileRequest 租户管理员可修改的本租户字段
type TenantProfileRequest struct {
	Name              string           `json:"name" binding:"required,min=2,max=100"`
	EnrollmentFee     *decimal.Decimal `json:"enrollment_fee"`
	UniformPrice      *decimal.Decimal `json:"uniform_price"`
	Locale            string           `json:"locale" binding:"max=10"`
	MessagingInstance string           `json:"messaging_instance" binding:"max=100"`
	ContactPhone      string           `json:"contact_phone" binding:"max=30"`
	ContactEmail      string           `json:"contact_email" binding:"omitempty,email"`
}

// FeatureFlagRequest 功能开关
type FeatureFlagRequest struct {
	Enabled     bool   `json:"enabled"`
	Description string `json:"description" binding:"max=200"`
}

// ConfigService 租户配置、消息模板、功能开关
type ConfigService struct {
	intentBase
}

// NewConfigService 创建配置服务
func NewConfigService(st store.Store, syncSvc *SyncService) *ConfigService {
	return &ConfigService{intentBase: intentBase{store: st, sync: syncSvc}}
}

// UpdateTenantConfig 保存租户参考列表，不存在时新建
func (s *ConfigService) UpdateTenantConfig(ctx context.Context, session Session, req TenantConfigRequest) (*Snapshot, error) {
	if err := validateRequest(req); err != nil {
		return s.sync.Latest(session), err
	}
	for _, p := range req.MonthlyPlans {
		if p.Price.IsNegative() {
			return s.sync.Latest(session), errors.NewValidation("monthly_plans.price", "价格不能为负数")
		}
	}
	names := lo.Map(req.MonthlyPlans, func(p MonthlyPlanInput, _ int) string { return strings.TrimSpace(p.Name) })
	if dup := lo.FindDuplicates(names); len(dup) > 0 {
		return s.sync.Latest(session), errors.NewValidation("monthly_plans.name", "套餐名称重复: "+strings.Join(dup, ", "))
	}
	tenantID, err := s.scope(session)
	if err != nil {
		return s.sync.Latest(session), err
	}

	plans := lo.Map(req.MonthlyPlans, func(p MonthlyPlanInput, i int) models.MonthlyPlan {
		return models.MonthlyPlan{Name: names[i], Price: p.Price}
	})
	rec := store.Record{
		"categories":    datatypes.JSONSlice[string](cleanList(req.Categories)),
		"teams":         datatypes.JSONSlice[string](cleanList(req.Teams)),
		"units":         datatypes.JSONSlice[string](cleanList(req.Units)),
		"monthly_plans": datatypes.JSONSlice[models.MonthlyPlan](plans),
	}

	existing, err := s.store.Read(ctx, store.Query{Kind: store.KindTenantConfigs, TenantID: tenantID})
	if err != nil {
		return s.sync.Latest(session), errors.NewStoreError("read tenant_configs", err)
	}
	if len(existing) > 0 {
		err = s.store.Update(ctx, store.KindTenantConfigs, tenantID, asString(existing[0]["id"]), rec)
	} else {
		_, err = s.store.Insert(ctx, store.KindTenantConfigs, tenantID, rec)
	}
	if err != nil {
		return s.writeFailed(session, "save tenant_configs", err)
	}
	return s.resync(ctx, session)
}

// UpsertTemplate 保存某类通知的模板
func (s *ConfigService) UpsertTemplate(ctx context.Context, session Session, req TemplateRequest) (*Snapshot, error) {
	if err := validateRequest(req); err != nil {
		return s.sync.Latest(session), err
	}
	tenantID, err := s.scope(session)
	if err != nil {
		return s.sync.Latest(session), err
	}

	if err := upsertTemplate(ctx, s.store, tenantID, req.Type, req.Body); err != nil {
		return s.writeFailed(session, "save message_templates", err)
	}
	return s.resync(ctx, session)
}

// UpdateTenantProfile 租户管理员修改本租户的名称、费用和联系方式，套餐与状态不在此修改
func (s *ConfigService) UpdateTenantProfile(ctx context.Context, session Session, req TenantProfileRequest) (*Snapshot, error) {
	if err := validateRequest(req); err != nil {
		return s.sync.Latest(session), err
	}
	tenantID, err := s.scope(session)
	if err != nil {
		return s.sync.Latest(session), err
	}

	rec := store.Record{
		"name":               strings.TrimSpace(req.Name),
		"messaging_instance": req.MessagingInstance,
		"contact_phone":      req.ContactPhone,
		"contact_email":      req.ContactEmail,
	}
	if req.Locale != "" {
		rec["locale"] = req.Locale
	}
	if req.EnrollmentFee != nil {
		rec["enrollment_fee"] = *req.EnrollmentFee
	}
	if req.UniformPrice != nil {
		rec["uniform_price"] = *req.UniformPrice
	}

	if err := s.store.Update(ctx, store.KindTenants, tenantID, tenantID, rec); err != nil {
		return s.writeFailed(session, "update tenants", err)
	}
	return s.resync(ctx, session)
}

// SetFeatureFlag 平台管理员开关功能模块
func (s *ConfigService) SetFeatureFlag(ctx context.Context, session Session, key string, req FeatureFlagRequest) (*Snapshot, error) {
	if !session.IsPlatformAdmin() {
		return s.sync.Latest(session), errors.ErrForbidden
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return s.sync.Latest(session), errors.NewValidation("key", "不能为空")
	}
	if err := validateRequest(req); err != nil {
		return s.sync.Latest(session), err
	}

	rec := store.Record{"enabled": req.Enabled}
	if req.Description != "" {
		rec["description"] = req.Description
	}
	err := s.store.Update(ctx, store.KindFeatureFlags, "", key, rec)
	if stderrors.Is(err, store.ErrNotFound) {
		rec["key"] = key
		_, err = s.store.Insert(ctx, store.KindFeatureFlags, "", rec)
	}
	if err != nil {
		return s.writeFailed(session, "save feature_flags", err)
	}
	return s.resync(ctx, session)
}

// upsertTemplate 按 (tenant_id, type) 更新或新建模板
func upsertTemplate(ctx context.Context, st store.Store, tenantID, notificationType, body string) error {
	rows, err := st.Read(ctx, store.Query{
		Kind:     store.KindMessageTemplates,
		TenantID: tenantID,
		Filters:  map[string]interface{}{"type": notificationType},
	})
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return st.Update(ctx, store.KindMessageTemplates, tenantID, asString(rows[0]["id"]), store.Record{"body": body})
	}
	_, err = st.Insert(ctx, store.KindMessageTemplates, tenantID, store.Record{"type": notificationType, "body": body})
	return err
}

func cleanList(items []string) []string {
	out := lo.Uniq(lo.FilterMap(items, func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	}))
	if out == nil {
		return []string{}
	}
	return out
}
