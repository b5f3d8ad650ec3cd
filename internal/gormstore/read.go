package gormstore

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/queryir"
)

// query starts a statement on d's table restricted by filter.
func (s *Store) query(ctx context.Context, d *entity.Descriptor, filter queryir.Filter) (*gorm.DB, error) {
	tx := s.db.WithContext(ctx).Table(d.Table())
	if filter == nil {
		return tx, nil
	}
	expr, err := expression(d, s.compiler.Dialect, filter)
	if err != nil {
		return nil, fmt.Errorf("build filter on %s: %w", d.Table(), err)
	}
	return tx.Clauses(clause.Where{Exprs: []clause.Expression{expr}}), nil
}

// Scan implements executor.Backend.
func (s *Store) Scan(ctx context.Context, d *entity.Descriptor, filter queryir.Filter, order []queryir.Order, limit int) ([]entity.Row, error) {
	if err := s.EnsureTable(ctx, d); err != nil {
		return nil, err
	}

	tx, err := s.query(ctx, d, filter)
	if err != nil {
		return nil, err
	}
	ob, err := orderBy(d, s.compiler.Dialect, order)
	if err != nil {
		return nil, err
	}
	tx = tx.Clauses(selectColumns(d), ob)
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	rows, err := tx.Rows()
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
	idv, err := entity.Coerce(d.ID(), id)
	if err != nil {
		return nil, false, fmt.Errorf("%s id: %w", d.Name(), err)
	}
	rows, err := s.Scan(ctx, d, queryir.Condition{Field: d.ID().Name, Op: queryir.OpEquals, Value: idv}, nil, 1)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// Count implements executor.Counter.
func (s *Store) Count(ctx context.Context, d *entity.Descriptor, filter queryir.Filter) (int64, error) {
	if err := s.EnsureTable(ctx, d); err != nil {
		return 0, err
	}
	tx, err := s.query(ctx, d, filter)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", d.Table(), err)
	}
	return n, nil
}

// scanRow reads one row in d.Fields() order, leaving driver values as they
// are.
func scanRow(rows *sql.Rows, d *entity.Descriptor) (entity.Row, error) {
	fields := d.Fields()
	values := make([]any, len(fields))
	ptrs := make([]any, len(fields))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan %s: %w", d.Table(), err)
	}

	row := make(entity.Row, len(fields))
	for i, f := range fields {
		row[f.Name] = values[i]
	}
	return row, nil
}
