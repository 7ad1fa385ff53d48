// Package store is the data service: per-table select, insert, update and delete over gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vikasavnish/listinghub/internal/query"
)

// Table is the set of operations available on one table.
type Table[T any] interface {
	// Select returns a lazy, single-use sequence. Call Select again to re-issue the query.
	Select(ctx context.Context, q query.Query) iter.Seq2[T, error]
	Insert(ctx context.Context, row *T) error
	Update(ctx context.Context, id uuid.UUID, patch map[string]any) (*T, error)
	Delete(ctx context.Context, q query.Query) (int64, error)
	// CountBy counts rows matching q grouped by column.
	CountBy(ctx context.Context, column string, q query.Query) (map[string]int64, error)
}

// GormTable implements Table on top of a gorm connection.
type GormTable[T any] struct {
	db   *gorm.DB
	name string
}

func NewGormTable[T any](db *gorm.DB) *GormTable[T] {
	return &GormTable[T]{db: db, name: tableName[T]()}
}

func (t *GormTable[T]) Select(ctx context.Context, q query.Query) iter.Seq2[T, error] {
	var used atomic.Bool
	return func(yield func(T, error) bool) {
		var zero T
		if !used.CompareAndSwap(false, true) {
			yield(zero, ErrConsumed)
			return
		}

		tx := Apply(t.db.WithContext(ctx).Model(new(T)), q)

		// Preloads need Find; plain reads stream row by row.
		if len(q.With) > 0 {
			var rows []T
			if err := tx.Find(&rows).Error; err != nil {
				yield(zero, t.remote("select", err))
				return
			}
			for _, row := range rows {
				if !yield(row, nil) {
					return
				}
			}
			return
		}

		rows, err := tx.Rows()
		if err != nil {
			yield(zero, t.remote("select", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var row T
			if err := t.db.ScanRows(rows, &row); err != nil {
				yield(zero, t.remote("select", err))
				return
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, t.remote("select", err))
		}
	}
}

func (t *GormTable[T]) Insert(ctx context.Context, row *T) error {
	if err := t.db.WithContext(ctx).Create(row).Error; err != nil {
		return t.remote("insert", err)
	}
	return nil
}

func (t *GormTable[T]) Update(ctx context.Context, id uuid.UUID, patch map[string]any) (*T, error) {
	res := t.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return nil, t.remote("update", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%s %s: %w", t.name, id, ErrNotFound)
	}

	var out T
	if err := t.db.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s %s: %w", t.name, id, ErrNotFound)
		}
		return nil, t.remote("update", err)
	}
	return &out, nil
}

func (t *GormTable[T]) Delete(ctx context.Context, q query.Query) (int64, error) {
	if len(q.Predicates) == 0 {
		return 0, fmt.Errorf("delete from %s without predicates refused", t.name)
	}
	res := applyPredicates(t.db.WithContext(ctx), q.Predicates).Delete(new(T))
	if res.Error != nil {
		return 0, t.remote("delete", res.Error)
	}
	return res.RowsAffected, nil
}

func (t *GormTable[T]) CountBy(ctx context.Context, column string, q query.Query) (map[string]int64, error) {
	var buckets []struct {
		Grp string
		N   int64
	}
	col := clause.Column{Name: column}
	err := applyPredicates(t.db.WithContext(ctx).Model(new(T)), q.Predicates).
		Select("? AS grp, COUNT(*) AS n", col).
		Group(column).
		Scan(&buckets).Error
	if err != nil {
		return nil, t.remote("count", err)
	}

	counts := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		counts[b.Grp] = b.N
	}
	return counts, nil
}

func (t *GormTable[T]) remote(op string, err error) error {
	return &RemoteError{Op: op, Table: t.name, Err: err}
}

func tableName[T any]() string {
	var v T
	if n, ok := any(v).(interface{ TableName() string }); ok {
		return n.TableName()
	}
	return fmt.Sprintf("%T", v)
}

// Collect drains a result sequence into a slice.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	out := make([]T, 0)
	for row, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// First returns the first row matching q, or ErrNotFound.
func First[T any](ctx context.Context, t Table[T], q query.Query) (T, error) {
	q.Limit = 1
	for row, err := range t.Select(ctx, q) {
		return row, err
	}
	var zero T
	return zero, ErrNotFound
}

// Exists reports whether any row matches q.
func Exists[T any](ctx context.Context, t Table[T], q query.Query) (bool, error) {
	_, err := First(ctx, t, q)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
