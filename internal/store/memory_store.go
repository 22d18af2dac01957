package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryStore 进程内存储，STORE_DRIVER=memory 时使用，也供测试使用
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[Kind][]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[Kind][]Record)}
}

// Seed 直接放入原始行，不补齐任何字段
func (s *MemoryStore) Seed(kind Kind, rows ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[kind] = append(s.tables[kind], cloneRecord(r))
	}
}

// Rows 返回某张表的全部行（副本）
func (s *MemoryStore) Rows(kind Kind) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.tables[kind]))
	for i, r := range s.tables[kind] {
		out[i] = cloneRecord(r)
	}
	return out
}

func (s *MemoryStore) Read(_ context.Context, q Query) ([]Record, error) {
	meta, err := metaOf(q.Kind)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	var out []Record
	for _, r := range s.tables[q.Kind] {
		if q.TenantID != "" && meta.tenantCol != "" && fmt.Sprint(r[meta.tenantCol]) != q.TenantID {
			continue
		}
		if !matches(r, q.Filters) {
			continue
		}
		out = append(out, cloneRecord(r))
	}
	s.mu.RUnlock()

	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c := compareValues(out[i][q.OrderBy], out[j][q.OrderBy])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	return out, nil
}

func (s *MemoryStore) Insert(_ context.Context, kind Kind, tenantID string, fields Record) (string, error) {
	meta, err := metaOf(kind)
	if err != nil {
		return "", err
	}

	row := prepareInsert(meta, tenantID, fields, time.Now())
	if !meta.generatesID {
		if v, ok := row[meta.idColumn]; !ok || v == nil || fmt.Sprint(v) == "" {
			return "", fmt.Errorf("%s 缺少主键 %s", kind, meta.idColumn)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := fmt.Sprint(row[meta.idColumn])
	for _, r := range s.tables[kind] {
		if fmt.Sprint(r[meta.idColumn]) == id {
			return "", fmt.Errorf("%w: %s 主键重复 %s", ErrDuplicate, kind, id)
		}
	}
	if err := s.checkUnique(kind, row); err != nil {
		return "", err
	}
	s.tables[kind] = append(s.tables[kind], row)
	return id, nil
}

func (s *MemoryStore) InsertMany(ctx context.Context, kind Kind, tenantID string, rows []Record) error {
	for _, r := range rows {
		if _, err := s.Insert(ctx, kind, tenantID, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Update(_ context.Context, kind Kind, tenantID, id string, fields Record) error {
	meta, err := metaOf(kind)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.tables[kind] {
		if !s.owns(meta, r, tenantID, id) {
			continue
		}
		updated := cloneRecord(r)
		for k, v := range fields {
			if k == meta.idColumn {
				continue
			}
			updated[k] = v
		}
		if meta.generatesID {
			updated["updated_at"] = time.Now()
		}
		s.tables[kind][i] = updated
		return nil
	}
	return ErrNotFound
}

func (s *MemoryStore) Delete(_ context.Context, kind Kind, tenantID, id string) error {
	meta, err := metaOf(kind)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[kind]
	for i, r := range rows {
		if s.owns(meta, r, tenantID, id) {
			s.tables[kind] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) owns(meta kindMeta, r Record, tenantID, id string) bool {
	if fmt.Sprint(r[meta.idColumn]) != id {
		return false
	}
	if tenantID != "" && meta.tenantCol != "" && meta.tenantCol != meta.idColumn {
		return fmt.Sprint(r[meta.tenantCol]) == tenantID
	}
	return true
}

// checkUnique 模拟数据库唯一索引（账单批次等）
func (s *MemoryStore) checkUnique(kind Kind, row Record) error {
	var cols []string
	switch kind {
	case KindBillingBatches:
		cols = []string{"tenant_id", "competence"}
	case KindMessageTemplates:
		cols = []string{"tenant_id", "type"}
	case KindTenantConfigs:
		cols = []string{"tenant_id"}
	case KindUsers:
		cols = []string{"username"}
	default:
		return nil
	}
	for _, r := range s.tables[kind] {
		same := true
		for _, c := range cols {
			if fmt.Sprint(r[c]) != fmt.Sprint(row[c]) {
				same = false
				break
			}
		}
		if same {
			return fmt.Errorf("%w on %s(%s)", ErrDuplicate, kind, strings.Join(cols, ","))
		}
	}
	return nil
}

func matches(r Record, filters map[string]interface{}) bool {
	for k, v := range filters {
		if fmt.Sprint(r[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

// compareValues 排序比较，支持字符串、时间与数值
func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case int:
		if bv, ok := b.(int); ok {
			return av - bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case decimal.Decimal:
		if bv, ok := b.(decimal.Decimal); ok {
			return av.Cmp(bv)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
