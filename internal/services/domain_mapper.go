package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sportshub/internal/models"
	"sportshub/internal/store"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ========== 领域映射：原始行 -> 领域实体 ==========
// 所有映射函数都是纯函数且不会失败：缺失或无法识别的字段退化为默认值。

// MapTenant 映射租户，有效人数上限依次取：匹配的套餐（按ID或名称）、原始上限、默认值
func MapTenant(raw store.Record, plans []models.PlanDefinition) models.Tenant {
	t := models.Tenant{
		BaseModel:         mapBase(raw),
		Name:              asString(raw["name"]),
		PlanID:            asString(raw["plan_id"]),
		Status:            defaultString(asString(raw["status"]), models.TenantStatusActive),
		MemberLimit:       asInt(raw["member_limit"]),
		EnrollmentFee:     asDecimal(raw["enrollment_fee"]),
		UniformPrice:      asDecimal(raw["uniform_price"]),
		Locale:            defaultString(asString(raw["locale"]), "pt-BR"),
		MessagingInstance: asString(raw["messaging_instance"]),
		ContactPhone:      asString(raw["contact_phone"]),
		ContactEmail:      asString(raw["contact_email"]),
	}

	planRef := t.PlanID
	if planRef == "" {
		planRef = asString(raw["plan"])
	}
	t.EffectiveLimit = t.MemberLimit
	if plan, ok := findPlan(plans, planRef); ok {
		t.PlanName = plan.Name
		if plan.MaxMembers > 0 {
			t.EffectiveLimit = plan.MaxMembers
		}
	}
	if t.EffectiveLimit <= 0 {
		t.EffectiveLimit = models.DefaultMemberLimit
	}
	return t
}

func findPlan(plans []models.PlanDefinition, ref string) (models.PlanDefinition, bool) {
	if ref == "" {
		return models.PlanDefinition{}, false
	}
	for _, p := range plans {
		if p.ID == ref {
			return p, true
		}
	}
	for _, p := range plans {
		if strings.EqualFold(p.Name, ref) {
			return p, true
		}
	}
	return models.PlanDefinition{}, false
}

// MapPlan 映射平台套餐
func MapPlan(raw store.Record) models.PlanDefinition {
	return models.PlanDefinition{
		ID:         asString(raw["id"]),
		Name:       asString(raw["name"]),
		Price:      asDecimal(raw["price"]),
		MaxMembers: asInt(raw["max_members"]),
		Features:   pq.StringArray(asStringSlice(raw["features"])),
	}
}

// MapMember 映射会员
func MapMember(raw store.Record) models.Member {
	return models.Member{
		BaseModel:     mapBase(raw),
		TenantID:      asString(raw["tenant_id"]),
		Name:          asString(raw["name"]),
		BirthDate:     asDate(raw["birth_date"]),
		Category:      asString(raw["category"]),
		Team:          asString(raw["team"]),
		Unit:          asString(raw["unit"]),
		Plan:          asString(raw["plan"]),
		Status:        defaultString(asString(raw["status"]), models.MemberStatusActive),
		GuardianName:  asString(raw["guardian_name"]),
		GuardianPhone: asString(raw["guardian_phone"]),
		Email:         asString(raw["email"]),
		PaymentStatus: asString(raw["payment_status"]),
	}
}

// MapLead 映射潜在会员
func MapLead(raw store.Record) models.Lead {
	return models.Lead{
		BaseModel:    mapBase(raw),
		TenantID:     asString(raw["tenant_id"]),
		Name:         asString(raw["name"]),
		Phone:        asString(raw["phone"]),
		Email:        asString(raw["email"]),
		Source:       asString(raw["source"]),
		Status:       defaultString(asString(raw["status"]), models.LeadStatusNew),
		TrialDate:    asDate(raw["trial_date"]),
		TrialTime:    asString(raw["trial_time"]),
		ReminderSent: asBool(raw["reminder_sent"]),
	}
}

// MapTransaction 映射账单，状态保持存储值，overdue 由 DeriveStatus 推导
func MapTransaction(raw store.Record) models.Transaction {
	tx := models.Transaction{
		BaseModel:      mapBase(raw),
		TenantID:       asString(raw["tenant_id"]),
		MemberID:       asString(raw["member_id"]),
		MemberName:     asString(raw["member_name"]),
		Description:    asString(raw["description"]),
		Amount:         asDecimal(raw["amount"]),
		CompetenceDate: asString(raw["competence_date"]),
		Status:         defaultString(asString(raw["status"]), models.TransactionStatusPending),
		PaymentDate:    asTime(raw["payment_date"]),
		PaymentMethod:  asString(raw["payment_method"]),
		BatchID:        asString(raw["batch_id"]),
	}
	if due := asDate(raw["due_date"]); due != nil {
		tx.DueDate = *due
	}
	return tx
}

// MapTenantConfig 映射租户配置，列表字段缺失时为空列表
func MapTenantConfig(raw store.Record) models.TenantConfig {
	return models.TenantConfig{
		BaseModel:    mapBase(raw),
		TenantID:     asString(raw["tenant_id"]),
		Categories:   datatypes.JSONSlice[string](asStringSlice(raw["categories"])),
		Teams:        datatypes.JSONSlice[string](asStringSlice(raw["teams"])),
		MonthlyPlans: datatypes.JSONSlice[models.MonthlyPlan](asMonthlyPlans(raw["monthly_plans"])),
		Units:        datatypes.JSONSlice[string](asStringSlice(raw["units"])),
	}
}

// EmptyTenantConfig 租户尚未保存配置时使用
func EmptyTenantConfig(tenantID string) models.TenantConfig {
	return MapTenantConfig(store.Record{"tenant_id": tenantID})
}

// MapMessageTemplate 映射消息模板
func MapMessageTemplate(raw store.Record) models.MessageTemplate {
	return models.MessageTemplate{
		BaseModel: mapBase(raw),
		TenantID:  asString(raw["tenant_id"]),
		Type:      asString(raw["type"]),
		Body:      asString(raw["body"]),
	}
}

// MapFeatureFlag 映射功能开关，缺失时视为开启
func MapFeatureFlag(raw store.Record) models.FeatureFlag {
	enabled := true
	if v, ok := raw["enabled"]; ok && v != nil {
		enabled = asBool(v)
	}
	return models.FeatureFlag{
		Key:         asString(raw["key"]),
		Enabled:     enabled,
		Description: asString(raw["description"]),
	}
}

// MapUser 映射后台账号
func MapUser(raw store.Record) models.User {
	u := models.User{
		BaseModel:    mapBase(raw),
		Username:     asString(raw["username"]),
		Email:        asString(raw["email"]),
		PasswordHash: asString(raw["password_hash"]),
		Name:         asString(raw["name"]),
		Role:         defaultString(asString(raw["role"]), models.RoleTenantAdmin),
		Status:       defaultString(asString(raw["status"]), models.UserStatusActive),
		LastLoginAt:  asTime(raw["last_login_at"]),
	}
	if tid := asString(raw["tenant_id"]); tid != "" {
		u.TenantID = &tid
	}
	return u
}

func mapBase(raw store.Record) models.BaseModel {
	b := models.BaseModel{ID: asString(raw["id"])}
	if t := asTime(raw["created_at"]); t != nil {
		b.CreatedAt = *t
	}
	if t := asTime(raw["updated_at"]); t != nil {
		b.UpdatedAt = *t
	}
	return b
}

// ========== 类型转换 ==========

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func asString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func asInt(v interface{}) int {
	switch val := v.(type) {
	case int:
		return val
	case int32:
		return int(val)
	case int64:
		return int(val)
	case float32:
		return int(val)
	case float64:
		return int(val)
	case decimal.Decimal:
		return int(val.IntPart())
	case string, []byte:
		s := strings.TrimSpace(asString(val))
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
	}
	return 0
}

func asDecimal(v interface{}) decimal.Decimal {
	switch val := v.(type) {
	case decimal.Decimal:
		return val
	case *decimal.Decimal:
		if val != nil {
			return *val
		}
	case int:
		return decimal.NewFromInt(int64(val))
	case int32:
		return decimal.NewFromInt32(val)
	case int64:
		return decimal.NewFromInt(val)
	case float32:
		return decimal.NewFromFloat32(val)
	case float64:
		return decimal.NewFromFloat(val)
	case string, []byte:
		s := strings.TrimSpace(asString(val))
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
		// 兼容 "150,00" 这种逗号小数
		if d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ".")); err == nil {
			return d
		}
	}
	return decimal.Zero
}

func asBool(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case *bool:
		return val != nil && *val
	case int:
		return val != 0
	case int64:
		return val != 0
	case string, []byte:
		switch strings.ToLower(strings.TrimSpace(asString(val))) {
		case "true", "t", "1", "yes":
			return true
		}
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func asTime(v interface{}) *time.Time {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return nil
		}
		return &val
	case *time.Time:
		if val == nil || val.IsZero() {
			return nil
		}
		t := *val
		return &t
	case string, []byte:
		s := strings.TrimSpace(asString(val))
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
	}
	return nil
}

// asDate 只保留日历日期（UTC零点），不做时区换算
func asDate(v interface{}) *time.Time {
	t := asTime(v)
	if t == nil {
		return nil
	}
	d := CivilDate(*t)
	return &d
}

func asStringSlice(v interface{}) []string {
	out := []string{}
	switch val := v.(type) {
	case []string:
		out = append(out, val...)
	case pq.StringArray:
		out = append(out, val...)
	case datatypes.JSONSlice[string]:
		out = append(out, val...)
	case []interface{}:
		for _, item := range val {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
	case string, []byte:
		s := strings.TrimSpace(asString(val))
		switch {
		case strings.HasPrefix(s, "["):
			var items []string
			if err := json.Unmarshal([]byte(s), &items); err == nil {
				out = append(out, items...)
			}
		case strings.HasPrefix(s, "{"):
			// postgres 数组字面量 {a,b}
			var arr pq.StringArray
			if err := arr.Scan(s); err == nil {
				out = append(out, arr...)
			}
		case s != "":
			out = append(out, s)
		}
	}
	return out
}

func asMonthlyPlans(v interface{}) []models.MonthlyPlan {
	out := []models.MonthlyPlan{}
	switch val := v.(type) {
	case []models.MonthlyPlan:
		out = append(out, val...)
	case datatypes.JSONSlice[models.MonthlyPlan]:
		out = append(out, val...)
	case []interface{}:
		for _, item := range val {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, models.MonthlyPlan{
					Name:  asString(m["name"]),
					Price: asDecimal(m["price"]),
				})
			}
		}
	case string, []byte:
		var items []map[string]interface{}
		if err := json.Unmarshal([]byte(asString(val)), &items); err == nil {
			for _, m := range items {
				out = append(out, models.MonthlyPlan{
					Name:  asString(m["name"]),
					Price: asDecimal(m["price"]),
				})
			}
		}
	}
	return out
}
