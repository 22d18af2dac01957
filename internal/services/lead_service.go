package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sportshub/internal/models"
	"sportshub/internal/store"
	"sportshub/pkg/errors"
)

// LeadRequest 新增/修改线索请求
type LeadRequest struct {
	Name      string `json:"name" binding:"required,max=120"`
	Phone     string `json:"phone" binding:"max=30"`
	Email     string `json:"email" binding:"omitempty,email"`
	Source    string `json:"source" binding:"max=60"`
	Status    string `json:"status" binding:"omitempty,oneof=new trial_scheduled attended converted"`
	TrialDate string `json:"trial_date" binding:"omitempty,datetime=2006-01-02"`
	TrialTime string `json:"trial_time" binding:"omitempty,datetime=15:04"`
}

// AdvanceLeadRequest 线索漏斗推进请求
type AdvanceLeadRequest struct {
	Status    string `json:"status" binding:"required,oneof=trial_scheduled attended converted"`
	TrialDate string `json:"trial_date" binding:"omitempty,datetime=2006-01-02"`
	TrialTime string `json:"trial_time" binding:"omitempty,datetime=15:04"`
}

// CanAdvanceLead 漏斗只能向前流转
func CanAdvanceLead(from, to string) bool {
	toStage := models.LeadStage(to)
	return toStage >= 0 && toStage > models.LeadStage(from)
}

// LeadService 线索意图
type LeadService struct {
	intentBase
}

// NewLeadService 创建线索服务
func NewLeadService(st store.Store, syncSvc *SyncService) *LeadService {
	return &LeadService{intentBase: intentBase{store: st, sync: syncSvc}}
}

// AddLead 新增线索，带体验日期时直接进入 trial_scheduled
func (s *LeadService) AddLead(ctx context.Context, session Session, req LeadRequest) (*Snapshot, error) {
	if err := validateRequest(req); err != nil {
		return s.sync.Latest(session), err
	}
	tenantID, err := s.scope(session)
	if err != nil {
		return s.sync.Latest(session), err
	}

	status := req.Status
	if status == "" {
		status = models.LeadStatusNew
		if req.TrialDate != "" {
			status = models.LeadStatusTrialScheduled
		}
	}
	if status == models.LeadStatusTrialScheduled && req.TrialDate == "" {
		return s.sync.Latest(session), errors.NewValidation("trial_date", "预约体验课时必须填写日期")
	}

	rec := store.Record{
		"name":          strings.TrimSpace(req.Name),
		"phone":         req.Phone,
		"email":         req.Email,
		"source":        req.Source,
		"status":        status,
		"trial_time":    req.TrialTime,
		"reminder_sent": false,
	}
	if d, ok := parseCivilDate(req.TrialDate); ok {
		rec["trial_date"] = d
	}

	if _, err := s.store.Insert(ctx, store.KindLeads, tenantID, rec); err != nil {
		return s.writeFailed(session, "insert leads", err)
	}
	return s.resync(ctx, session)
}

// UpdateLead 修改线索；状态只能前进，体验时间变化时重置提醒标记
func (s *LeadService) UpdateLead(ctx context.Context, session Session, id string, req LeadRequest) (*Snapshot, error) {
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

	status := current.Status
	if req.Status != "" && req.Status != current.Status {
		if !CanAdvanceLead(current.Status, req.Status) {
			return s.sync.Latest(session), errors.NewValidation("status",
				fmt.Sprintf("线索状态不能从 %s 回到 %s", current.Status, req.Status))
		}
		status = req.Status
	}

	rec := store.Record{
		"name":       strings.TrimSpace(req.Name),
		"phone":      req.Phone,
		"email":      req.Email,
		"source":     req.Source,
		"status":     status,
		"trial_time": req.TrialTime,
	}
	trialDate, hasDate := parseCivilDate(req.TrialDate)
	if hasDate {
		rec["trial_date"] = trialDate
	} else {
		rec["trial_date"] = nil
	}
	if status == models.LeadStatusTrialScheduled && !hasDate {
		return s.sync.Latest(session), errors.NewValidation("trial_date", "预约体验课时必须填写日期")
	}
	if trialChanged(current, trialDate, hasDate, req.TrialTime) {
		rec["reminder_sent"] = false
	}

	if err := s.store.Update(ctx, store.KindLeads, tenantID, id, rec); err != nil {
		return s.writeFailed(session, "update leads", err)
	}
	return s.resync(ctx, session)
}

// AdvanceLead 推进漏斗状态；进入 trial_scheduled 需要体验日期，并重置提醒标记
func (s *LeadService) AdvanceLead(ctx context.Context, session Session, id string, req AdvanceLeadRequest) (*Snapshot, error) {
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
	if !CanAdvanceLead(current.Status, req.Status) {
		return s.sync.Latest(session), errors.NewValidation("status",
			fmt.Sprintf("线索状态不能从 %s 变为 %s", current.Status, req.Status))
	}

	rec := store.Record{"status": req.Status}
	if req.Status == models.LeadStatusTrialScheduled {
		trialDate, ok := parseCivilDate(req.TrialDate)
		if !ok {
			if current.TrialDate == nil {
				return s.sync.Latest(session), errors.NewValidation("trial_date", "预约体验课时必须填写日期")
			}
			trialDate = *current.TrialDate
		}
		rec["trial_date"] = trialDate
		if req.TrialTime != "" {
			rec["trial_time"] = req.TrialTime
		}
		rec["reminder_sent"] = false
	}

	if err := s.store.Update(ctx, store.KindLeads, tenantID, id, rec); err != nil {
		return s.writeFailed(session, "update leads", err)
	}
	return s.resync(ctx, session)
}

// DeleteLead 删除线索
func (s *LeadService) DeleteLead(ctx context.Context, session Session, id string) (*Snapshot, error) {
	tenantID, err := s.scope(session)
	if err != nil {
		return s.sync.Latest(session), err
	}
	if err := s.store.Delete(ctx, store.KindLeads, tenantID, id); err != nil {
		return s.writeFailed(session, "delete leads", err)
	}
	return s.resync(ctx, session)
}

func (s *LeadService) find(ctx context.Context, tenantID, id string) (models.Lead, error) {
	rows, err := s.store.Read(ctx, store.Query{
		Kind:     store.KindLeads,
		TenantID: tenantID,
		Filters:  map[string]interface{}{"id": id},
	})
	if err != nil {
		return models.Lead{}, errors.NewStoreError("read leads", err)
	}
	if len(rows) == 0 {
		return models.Lead{}, errors.NewValidation("id", "线索不存在")
	}
	return MapLead(rows[0]), nil
}

func trialChanged(current models.Lead, date time.Time, hasDate bool, trialTime string) bool {
	if current.TrialTime != trialTime {
		return true
	}
	if current.TrialDate == nil {
		return hasDate
	}
	return !hasDate || !CivilDate(*current.TrialDate).Equal(CivilDate(date))
}
