package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sportshub/internal/models"
	"sportshub/internal/store"
	"sportshub/pkg/errors"

	"github.com/samber/lo"
)

// MemberRequest 新增/修改会员请求
type MemberRequest struct {
	Name          string `json:"name" binding:"required,max=120"`
	BirthDate     string `json:"birth_date" binding:"omitempty,datetime=2006-01-02"`
	Category      string `json:"category" binding:"max=60"`
	Team          string `json:"team" binding:"max=60"`
	Unit          string `json:"unit" binding:"max=60"`
	Plan          string `json:"plan" binding:"max=60"`
	Status        string `json:"status" binding:"omitempty,oneof=active inactive"`
	GuardianName  string `json:"guardian_name" binding:"max=120"`
	GuardianPhone string `json:"guardian_phone" binding:"max=30"`
	Email         string `json:"email" binding:"omitempty,email"`
}

func (r MemberRequest) record() store.Record {
	rec := store.Record{
		"name":           strings.TrimSpace(r.Name),
		"category":       r.Category,
		"team":           r.Team,
		"unit":           r.Unit,
		"plan":           r.Plan,
		"status":         lo.Ternary(r.Status == "", models.MemberStatusActive, r.Status),
		"guardian_name":  r.GuardianName,
		"guardian_phone": r.GuardianPhone,
		"email":          r.Email,
	}
	if d, ok := parseCivilDate(r.BirthDate); ok {
		rec["birth_date"] = d
	} else {
		rec["birth_date"] = nil
	}
	return rec
}

// MemberService 会员意图
type MemberService struct {
	intentBase
}

// NewMemberService 创建会员服务
func NewMemberService(st store.Store, syncSvc *SyncService) *MemberService {
	return &MemberService{intentBase: intentBase{store: st, sync: syncSvc}}
}

// AddMember 新增会员，活跃会员受套餐人数上限约束
func (s *MemberService) AddMember(ctx context.Context, session Session, req MemberRequest) (*Snapshot, error) {
	if err := validateRequest(req); err != nil {
		return s.sync.Latest(session), err
	}
	tenantID, err := s.scope(session)
	if err != nil {
		return s.sync.Latest(session), err
	}

	rec := req.record()
	if rec["status"] == models.MemberStatusActive {
		if err := s.checkSeats(ctx, tenantID, ""); err != nil {
			return s.sync.Latest(session), err
		}
	}

	if _, err := s.store.Insert(ctx, store.KindMembers, tenantID, rec); err != nil {
		return s.writeFailed(session, "insert members", err)
	}
	return s.resync(ctx, session)
}

// UpdateMember 修改会员，停用转启用时同样检查人数上限
func (s *MemberService) UpdateMember(ctx context.Context, session Session, id string, req MemberRequest) (*Snapshot, error) {
	if err := validateRequest(req); err != nil {
		return s.sync.Latest(session), err
	}
	tenantID, err := s.scope(session)
	if err != nil {
		return s.sync.Latest(session), err
	}

	current, err := s.find(ctx, tenantID, id)
	if err != nil {
		return s.sync.Latest(session), err
	}

	rec := req.record()
	if rec["status"] == models.MemberStatusActive && !current.IsActive() {
		if err := s.checkSeats(ctx, tenantID, id); err != nil {
			return s.sync.Latest(session), err
		}
	}

	if err := s.store.Update(ctx, store.KindMembers, tenantID, id, rec); err != nil {
		return s.writeFailed(session, "update members", err)
	}
	return s.resync(ctx, session)
}

// DeleteMember 删除会员，其账单保留会员名称快照
func (s *MemberService) DeleteMember(ctx context.Context, session Session, id string) (*Snapshot, error) {
	tenantID, err := s.scope(session)
	if err != nil {
		return s.sync.Latest(session), err
	}
	if err := s.store.Delete(ctx, store.KindMembers, tenantID, id); err != nil {
		return s.writeFailed(session, "delete members", err)
	}
	return s.resync(ctx, session)
}

func (s *MemberService) find(ctx context.Context, tenantID, id string) (models.Member, error) {
	rows, err := s.store.Read(ctx, store.Query{
		Kind:     store.KindMembers,
		TenantID: tenantID,
		Filters:  map[string]interface{}{"id": id},
	})
	if err != nil {
		return models.Member{}, errors.NewStoreError("read members", err)
	}
	if len(rows) == 0 {
		return models.Member{}, errors.NewValidation("id", "会员不存在")
	}
	return MapMember(rows[0]), nil
}

// checkSeats 活跃会员数达到有效上限时拒绝
func (s *MemberService) checkSeats(ctx context.Context, tenantID, excludeID string) error {
	tenant, err := loadTenantWithPlan(ctx, s.store, tenantID)
	if err != nil {
		return err
	}

	rows, err := s.store.Read(ctx, store.Query{
		Kind:     store.KindMembers,
		TenantID: tenantID,
		Filters:  map[string]interface{}{"status": models.MemberStatusActive},
	})
	if err != nil {
		return errors.NewStoreError("read members", err)
	}
	active := lo.CountBy(rows, func(r store.Record) bool { return asString(r["id"]) != excludeID })
	if active >= tenant.EffectiveLimit {
		return errors.NewValidation("status", fmt.Sprintf("已达到套餐人数上限 %d", tenant.EffectiveLimit))
	}
	return nil
}

// loadTenantWithPlan 读取租户并按套餐计算有效人数上限
func loadTenantWithPlan(ctx context.Context, st store.Store, tenantID string) (models.Tenant, error) {
	rows, err := st.Read(ctx, store.Query{Kind: store.KindTenants, TenantID: tenantID})
	if err != nil {
		return models.Tenant{}, errors.NewStoreError("read tenants", err)
	}
	if len(rows) == 0 {
		return models.Tenant{}, errors.NewValidation("tenant", "租户不存在")
	}
	planRows, err := st.Read(ctx, store.Query{Kind: store.KindPlans})
	if err != nil {
		return models.Tenant{}, errors.NewStoreError("read plans", err)
	}
	plans := lo.Map(planRows, func(r store.Record, _ int) models.PlanDefinition { return MapPlan(r) })
	return MapTenant(rows[0], plans), nil
}

// parseCivilDate 解析 YYYY-MM-DD
func parseCivilDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
