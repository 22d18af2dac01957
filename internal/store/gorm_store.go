package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore 基于gorm的关系型存储
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Read 按租户读取原始行
func (s *GormStore) Read(ctx context.Context, q Query) ([]Record, error) {
	meta, err := metaOf(q.Kind)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Table(string(q.Kind))
	if q.TenantID != "" && meta.tenantCol != "" {
		query = query.Where(clause.Eq{Column: clause.Column{Name: meta.tenantCol}, Value: q.TenantID})
	}
	for col, val := range q.Filters {
		query = query.Where(clause.Eq{Column: clause.Column{Name: col}, Value: val})
	}
	if q.OrderBy != "" {
		query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: q.OrderBy}, Desc: q.Desc})
	}

	var rows []map[string]interface{}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = Record(row)
	}
	return records, nil
}

// Insert 写入单行，返回主键
func (s *GormStore) Insert(ctx context.Context, kind Kind, tenantID string, fields Record) (string, error) {
	meta, err := metaOf(kind)
	if err != nil {
		return "", err
	}

	row := prepareInsert(meta, tenantID, fields, time.Now())
	if err := s.db.WithContext(ctx).Table(string(kind)).Create(map[string]interface{}(row)).Error; err != nil {
		return "", err
	}
	return fmt.Sprint(row[meta.idColumn]), nil
}

// InsertMany 单次调用批量写入
func (s *GormStore) InsertMany(ctx context.Context, kind Kind, tenantID string, rows []Record) error {
	meta, err := metaOf(kind)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	now := time.Now()
	values := make([]map[string]interface{}, len(rows))
	for i, r := range rows {
		values[i] = prepareInsert(meta, tenantID, r, now)
	}
	return s.db.WithContext(ctx).Table(string(kind)).Create(&values).Error
}

// Update 按主键更新，主键不属于该租户时返回ErrNotFound
func (s *GormStore) Update(ctx context.Context, kind Kind, tenantID, id string, fields Record) error {
	meta, err := metaOf(kind)
	if err != nil {
		return err
	}

	values := cloneRecord(fields)
	delete(values, meta.idColumn)
	if meta.generatesID {
		values["updated_at"] = time.Now()
	}

	query := s.scoped(ctx, kind, meta, tenantID, id)
	result := query.Updates(map[string]interface{}(values))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 按主键删除
func (s *GormStore) Delete(ctx context.Context, kind Kind, tenantID, id string) error {
	meta, err := metaOf(kind)
	if err != nil {
		return err
	}

	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", kind, meta.idColumn)
	args := []interface{}{id}
	if tenantID != "" && meta.tenantCol != "" && meta.tenantCol != meta.idColumn {
		sql += fmt.Sprintf(" AND %s = ?", meta.tenantCol)
		args = append(args, tenantID)
	}

	result := s.db.WithContext(ctx).Exec(sql, args...)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) scoped(ctx context.Context, kind Kind, meta kindMeta, tenantID, id string) *gorm.DB {
	query := s.db.WithContext(ctx).Table(string(kind)).
		Where(clause.Eq{Column: clause.Column{Name: meta.idColumn}, Value: id})
	if tenantID != "" && meta.tenantCol != "" && meta.tenantCol != meta.idColumn {
		query = query.Where(clause.Eq{Column: clause.Column{Name: meta.tenantCol}, Value: tenantID})
	}
	return query
}

// prepareInsert 补齐主键、租户和时间戳
func prepareInsert(meta kindMeta, tenantID string, fields Record, now time.Time) Record {
	row := cloneRecord(fields)
	if meta.generatesID {
		if id, _ := row[meta.idColumn].(string); id == "" {
			row[meta.idColumn] = uuid.NewString()
		}
		row["created_at"] = now
		row["updated_at"] = now
	}
	if tenantID != "" && meta.tenantCol != "" && meta.tenantCol != meta.idColumn {
		row[meta.tenantCol] = tenantID
	}
	return row
}
