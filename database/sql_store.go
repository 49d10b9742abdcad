package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore keeps records in the networked relational store through GORM.
type SQLStore[T any, P Record[T]] struct {
	db    *gorm.DB
	limit int
}

// NewSQLStore creates a SQL-backed store. limit caps list results.
func NewSQLStore[T any, P Record[T]](db *gorm.DB, limit int) *SQLStore[T, P] {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &SQLStore[T, P]{db: db, limit: limit}
}

func (s *SQLStore[T, P]) Save(ctx context.Context, rec *T) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

// Upsert inserts rec or overwrites the row with the same primary key.
func (s *SQLStore[T, P]) Upsert(ctx context.Context, rec *T) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
}

func (s *SQLStore[T, P]) List(ctx context.Context, filter Filter) ([]T, error) {
	var out []T
	if err := s.listQuery(s.db.WithContext(ctx), filter).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Count is not capped by the list limit.
func (s *SQLStore[T, P]) Count(ctx context.Context, filter Filter) (int64, error) {
	var n int64
	if err := s.countQuery(s.db.WithContext(ctx), filter).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLStore[T, P]) countQuery(tx *gorm.DB, filter Filter) *gorm.DB {
	q := tx.Model(new(T))
	if len(filter) > 0 {
		q = q.Where(map[string]interface{}(filter))
	}
	return q
}

func (s *SQLStore[T, P]) listQuery(tx *gorm.DB, filter Filter) *gorm.DB {
	return s.countQuery(tx, filter).Order("created_at DESC").Limit(s.limit)
}

func (s *SQLStore[T, P]) Get(ctx context.Context, id string) (*T, error) {
	rec := new(T)
	if err := s.db.WithContext(ctx).First(rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *SQLStore[T, P]) Update(ctx context.Context, id string, partial map[string]any) (*T, error) {
	res := s.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(map[string]interface{}(partial))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *SQLStore[T, P]) Delete(ctx context.Context, id string) (int64, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	return res.RowsAffected, res.Error
}
