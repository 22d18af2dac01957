package services

import (
	"sync"
	"time"

	"sportshub/internal/models"
)

const (
	ScopeTenant = "tenant"
	ScopeGlobal = "global"
)

// Snapshot 一次同步得到的完整应用状态，生成后不再修改，只会被整体替换
type Snapshot struct {
	Scope        string                            `json:"scope"`
	TenantID     string                            `json:"tenant_id,omitempty"`
	Impersonated bool                              `json:"impersonated"`
	Tenant       *models.Tenant                    `json:"tenant,omitempty"`
	Tenants      []models.Tenant                   `json:"tenants"`
	Plans        []models.PlanDefinition           `json:"plans"`
	Members      []models.Member                   `json:"members"`
	Leads        []models.Lead                     `json:"leads"`
	Transactions []models.Transaction              `json:"transactions"`
	Config       models.TenantConfig               `json:"config"`
	Templates    map[string]models.MessageTemplate `json:"templates"`
	FeatureFlags []models.FeatureFlag              `json:"feature_flags"`
	SyncedAt     time.Time                         `json:"synced_at"`
}

// Member 按ID查找会员
func (s *Snapshot) Member(id string) (models.Member, bool) {
	for _, m := range s.Members {
		if m.ID == id {
			return m, true
		}
	}
	return models.Member{}, false
}

// Lead 按ID查找潜在会员
func (s *Snapshot) Lead(id string) (models.Lead, bool) {
	for _, l := range s.Leads {
		if l.ID == id {
			return l, true
		}
	}
	return models.Lead{}, false
}

// Transaction 按ID查找账单（状态为推导后的状态）
func (s *Snapshot) Transaction(id string) (models.Transaction, bool) {
	for _, tx := range s.Transactions {
		if tx.ID == id {
			return tx, true
		}
	}
	return models.Transaction{}, false
}

// Template 按通知类型取模板
func (s *Snapshot) Template(notificationType string) (models.MessageTemplate, bool) {
	t, ok := s.Templates[notificationType]
	return t, ok
}

// FeatureEnabled 功能开关，未配置的开关视为开启
func (s *Snapshot) FeatureEnabled(key string) bool {
	for _, f := range s.FeatureFlags {
		if f.Key == key {
			return f.Enabled
		}
	}
	return true
}

// SnapshotRegistry 每个会话最近一次成功同步的快照
type SnapshotRegistry struct {
	mu    sync.RWMutex
	items map[string]*Snapshot
}

// NewSnapshotRegistry 创建快照注册表
func NewSnapshotRegistry() *SnapshotRegistry {
	return &SnapshotRegistry{items: make(map[string]*Snapshot)}
}

// Get 取会话的最近快照
func (r *SnapshotRegistry) Get(key string) (*Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[key]
	return s, ok
}

// Put 整体替换会话的快照
func (r *SnapshotRegistry) Put(key string, snapshot *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[key] = snapshot
}

// Delete 会话结束时丢弃快照
func (r *SnapshotRegistry) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, key)
}
