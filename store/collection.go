// Package store is the persistence gateway: CRUD and count over a single
// table, keyed by string IDs and equality filters.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no row matches the id and filter.
var ErrNotFound = errors.New("store: record not found")

// DefaultOrder sorts newest first with a stable tie-break on the ULID.
const DefaultOrder = "created_at DESC, id DESC"

// Filter is a set of column = value predicates. A slice value becomes IN.
type Filter map[string]any

// FindOptions controls projection, ordering and windowing of Find.
type FindOptions struct {
	Omit   []string
	Order  string
	Offset int
	Limit  int
}

// BulkResult reports a multi-row update. Matched counts rows that satisfied
// the predicate; Modified counts rows the driver reported as written.
type BulkResult struct {
	Matched  int64
	Modified int64
}

// Collection wraps one model table.
type Collection[T any] struct {
	db *gorm.DB
}

// New returns a Collection for model T.
func New[T any](db *gorm.DB) *Collection[T] {
	return &Collection[T]{db: db}
}

// DB exposes the underlying handle for queries the gateway does not cover.
func (c *Collection[T]) DB() *gorm.DB { return c.db }

func scope(q *gorm.DB, filter Filter) *gorm.DB {
	if len(filter) > 0 {
		q = q.Where(map[string]interface{}(filter))
	}
	return q
}

func (c *Collection[T]) model(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx).Model(new(T))
}

// Create inserts doc; model hooks assign the ID.
func (c *Collection[T]) Create(ctx context.Context, doc *T) error {
	return c.db.WithContext(ctx).Create(doc).Error
}

// FindByID loads the row with the given id that also matches filter.
func (c *Collection[T]) FindByID(ctx context.Context, id string, filter Filter) (*T, error) {
	return findOne[T](scope(c.db.WithContext(ctx).Where("id = ?", id), filter))
}

// FindOne loads the first row matching filter.
func (c *Collection[T]) FindOne(ctx context.Context, filter Filter) (*T, error) {
	return findOne[T](scope(c.db.WithContext(ctx), filter))
}

func findOne[T any](q *gorm.DB) (*T, error) {
	var doc T
	if err := q.Take(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// Find returns rows matching filter, sorted by DefaultOrder unless opts
// overrides it.
func (c *Collection[T]) Find(ctx context.Context, filter Filter, opts FindOptions) ([]T, error) {
	order := opts.Order
	if order == "" {
		order = DefaultOrder
	}
	q := scope(c.db.WithContext(ctx), filter).Order(order)
	if len(opts.Omit) > 0 {
		q = q.Omit(opts.Omit...)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	docs := make([]T, 0)
	if err := q.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Count returns the number of rows matching filter.
func (c *Collection[T]) Count(ctx context.Context, filter Filter) (int64, error) {
	var n int64
	err := scope(c.model(ctx), filter).Count(&n).Error
	return n, err
}

// UpdateByID applies patch to the row with id matching filter and returns
// the row as stored afterwards.
func (c *Collection[T]) UpdateByID(ctx context.Context, id string, filter Filter, patch map[string]any) (*T, error) {
	var out *T
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findOne[T](scope(tx.Where("id = ?", id), filter)); err != nil {
			return err
		}
		if len(patch) > 0 {
			if err := tx.Model(new(T)).Where("id = ?", id).Updates(patch).Error; err != nil {
				return err
			}
		}
		doc, err := findOne[T](tx.Where("id = ?", id))
		out = doc
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateWhere applies patch to every row matching filter and returns how
// many were written. Used for compare-and-set transitions: the filter
// carries the expected current state.
func (c *Collection[T]) UpdateWhere(ctx context.Context, filter Filter, patch map[string]any) (int64, error) {
	q := c.model(ctx)
	if len(filter) == 0 {
		q = q.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	res := scope(q, filter).Updates(patch)
	return res.RowsAffected, res.Error
}

// UpdateMany applies patch to rows whose id is in ids and that match filter.
// Unknown ids are ignored. Matched is counted inside the same transaction
// as the update, so it does not depend on whether values changed.
func (c *Collection[T]) UpdateMany(ctx context.Context, ids []string, filter Filter, patch map[string]any) (BulkResult, error) {
	var res BulkResult
	if len(ids) == 0 {
		return res, nil
	}
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := scope(tx.Model(new(T)).Where("id IN ?", ids), filter).Count(&res.Matched).Error; err != nil {
			return err
		}
		if res.Matched == 0 {
			return nil
		}
		upd := scope(tx.Model(new(T)).Where("id IN ?", ids), filter).Updates(patch)
		res.Modified = upd.RowsAffected
		return upd.Error
	})
	if err != nil {
		return BulkResult{}, err
	}
	return res, nil
}

// DeleteWhere hard-deletes rows matching filter. An empty filter deletes
// every row.
func (c *Collection[T]) DeleteWhere(ctx context.Context, filter Filter) (int64, error) {
	q := c.db.WithContext(ctx)
	if len(filter) == 0 {
		q = q.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	res := scope(q, filter).Delete(new(T))
	return res.RowsAffected, res.Error
}
