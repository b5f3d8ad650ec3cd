package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/executor"
	"github.com/roach88/derive/internal/queryir"
)

var (
	_ executor.Backend     = (*Store)(nil)
	_ executor.Counter     = (*Store)(nil)
	_ executor.BulkDeleter = (*Store)(nil)
)

// Store keeps rows in maps, one table per entity.
//
// Thread-safety: all methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
}

type table struct {
	rows   map[string]entity.Row
	nextID int64
}

// New returns an empty store.
func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

// Scan implements executor.Backend. Without an order the rows come back
// sorted by identifier.
func (s *Store) Scan(ctx context.Context, d *entity.Descriptor, filter queryir.Filter, order []queryir.Order, limit int) ([]entity.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.matching(d, filter)
	sortRows(rows, append(slices.Clone(order), queryir.Order{Field: d.ID().Name, Direction: queryir.Asc}))
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Get implements executor.Backend.
func (s *Store) Get(ctx context.Context, d *entity.Descriptor, id any) (entity.Row, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	key, err := rowKey(d, id)
	if err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[d.Table()]
	if !ok {
		return nil, false, nil
	}
	row, ok := t.rows[key]
	if !ok {
		return nil, false, nil
	}
	return row.Clone(), true, nil
}

// Upsert implements executor.Backend.
func (s *Store) Upsert(ctx context.Context, d *entity.Descriptor, row entity.Row) (entity.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row = row.Clone()
	idField := d.ID()

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tableFor(d)
	if entity.IsZeroID(row[idField.Name]) {
		switch idField.Type {
		case entity.TypeNumber:
			t.nextID++
			row[idField.Name] = t.nextID
		default:
			id, err := uuid.NewV7()
			if err != nil {
				return nil, fmt.Errorf("generate id: %w", err)
			}
			row[idField.Name] = id.String()
		}
	} else {
		id, err := entity.Coerce(idField, row[idField.Name])
		if err != nil {
			return nil, err
		}
		row[idField.Name] = id
		if n, ok := id.(int64); ok && n > t.nextID {
			t.nextID = n
		}
	}

	key, err := rowKey(d, row[idField.Name])
	if err != nil {
		return nil, err
	}
	t.rows[key] = row
	return row.Clone(), nil
}

// Delete implements executor.Backend.
func (s *Store) Delete(ctx context.Context, d *entity.Descriptor, id any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key, err := rowKey(d, id)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[d.Table()]
	if !ok {
		return false, nil
	}
	if _, ok := t.rows[key]; !ok {
		return false, nil
	}
	delete(t.rows, key)
	return true, nil
}

// Count implements executor.Counter.
func (s *Store) Count(ctx context.Context, d *entity.Descriptor, filter queryir.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matching(d, filter))), nil
}

// DeleteWhere implements executor.BulkDeleter.
func (s *Store) DeleteWhere(ctx context.Context, d *entity.Descriptor, filter queryir.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[d.Table()]
	if !ok {
		return 0, nil
	}
	var n int64
	for key, row := range t.rows {
		if Match(filter, row) {
			delete(t.rows, key)
			n++
		}
	}
	return n, nil
}

// matching returns clones of the rows satisfying filter. Callers hold mu.
func (s *Store) matching(d *entity.Descriptor, filter queryir.Filter) []entity.Row {
	t, ok := s.tables[d.Table()]
	if !ok {
		return nil
	}
	var out []entity.Row
	for _, row := range t.rows {
		if Match(filter, row) {
			out = append(out, row.Clone())
		}
	}
	return out
}

// tableFor returns the table for d, creating it. Callers hold mu for writing.
func (s *Store) tableFor(d *entity.Descriptor) *table {
	t, ok := s.tables[d.Table()]
	if !ok {
		t = &table{rows: make(map[string]entity.Row)}
		s.tables[d.Table()] = t
	}
	return t
}

func rowKey(d *entity.Descriptor, id any) (string, error) {
	v, err := entity.Coerce(d.ID(), id)
	if err != nil {
		return "", fmt.Errorf("%s id: %w", d.Name(), err)
	}
	return fmt.Sprint(v), nil
}

// sortRows sorts by the given keys. NULLs sort first in ascending order.
func sortRows(rows []entity.Row, order []queryir.Order) {
	slices.SortStableFunc(rows, func(a, b entity.Row) int {
		for _, o := range order {
			c := compareNullable(a[o.Field], b[o.Field])
			if o.Direction == queryir.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareNullable(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	c, _ := compare(a, b)
	return c
}
