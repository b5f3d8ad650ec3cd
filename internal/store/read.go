package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/queryir"
)

// Scan implements executor.Backend.
// Results are ordered deterministically: the requested keys, then id ASC.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Scan(ctx context.Context, d *entity.Descriptor, filter queryir.Filter, order []queryir.Order, limit int) ([]entity.Row, error) {
	if err := s.EnsureTable(ctx, d); err != nil {
		return nil, err
	}

	query, params, err := s.compiler.Select(d, filter, order, limit)
	if err != nil {
		return nil, fmt.Errorf("compile select %s: %w", d.Table(), err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", d.Table(), err)
	}
	defer rows.Close()

	out := []entity.Row{}
	for rows.Next() {
		row, err := scanRow(rows, d)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", d.Table(), err)
	}
	return out, nil
}

// Get implements executor.Backend.
func (s *Store) Get(ctx context.Context, d *entity.Descriptor, id any) (entity.Row, bool, error) {
	if err := s.EnsureTable(ctx, d); err != nil {
		return nil, false, err
	}

	query, params := s.compiler.Get(d, id)
	row, err := scanRow(s.db.QueryRowContext(ctx, query, params...), d)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// Count implements executor.Counter.
func (s *Store) Count(ctx context.Context, d *entity.Descriptor, filter queryir.Filter) (int64, error) {
	if err := s.EnsureTable(ctx, d); err != nil {
		return 0, err
	}

	query, params, err := s.compiler.Count(d, filter)
	if err != nil {
		return 0, fmt.Errorf("compile count %s: %w", d.Table(), err)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", d.Table(), err)
	}
	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRow reads one row in d.Fields() order. Values are left as the driver
// returns them; the executor canonicalizes.
func scanRow(rs rowScanner, d *entity.Descriptor) (entity.Row, error) {
	fields := d.Fields()
	values := make([]any, len(fields))
	ptrs := make([]any, len(fields))
	for i := range values {
		ptrs[i] = &values[i]
	}

	if err := rs.Scan(ptrs...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan %s: %w", d.Table(), err)
	}

	row := make(entity.Row, len(fields))
	for i, f := range fields {
		row[f.Name] = values[i]
	}
	return row, nil
}
