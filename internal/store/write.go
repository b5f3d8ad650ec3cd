package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/queryir"
)

// Upsert implements executor.Backend.
//
// A zero number identifier is assigned by AUTOINCREMENT; a zero string
// identifier is replaced by a UUIDv7 before the insert. The stored
// identifier is read back with RETURNING.
func (s *Store) Upsert(ctx context.Context, d *entity.Descriptor, row entity.Row) (entity.Row, error) {
	if err := s.EnsureTable(ctx, d); err != nil {
		return nil, err
	}

	row = row.Clone()
	idField := d.ID()
	switch {
	case !entity.IsZeroID(row[idField.Name]):
		id, err := entity.Coerce(idField, row[idField.Name])
		if err != nil {
			return nil, err
		}
		row[idField.Name] = id
	case idField.Type == entity.TypeString:
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate id: %w", err)
		}
		row[idField.Name] = id.String()
	}

	query, params := s.compiler.Upsert(d, row)

	var id any
	if err := s.db.QueryRowContext(ctx, query, params...).Scan(&id); err != nil {
		return nil, fmt.Errorf("upsert %s: %w", d.Table(), err)
	}
	row[idField.Name] = id
	return row, nil
}

// Delete implements executor.Backend.
func (s *Store) Delete(ctx context.Context, d *entity.Descriptor, id any) (bool, error) {
	if err := s.EnsureTable(ctx, d); err != nil {
		return false, err
	}

	query, params := s.compiler.Delete(d, id)
	res, err := s.db.ExecContext(ctx, query, params...)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", d.Table(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", d.Table(), err)
	}
	return n > 0, nil
}

// DeleteWhere implements executor.BulkDeleter.
func (s *Store) DeleteWhere(ctx context.Context, d *entity.Descriptor, filter queryir.Filter) (int64, error) {
	if err := s.EnsureTable(ctx, d); err != nil {
		return 0, err
	}

	query, params, err := s.compiler.DeleteWhere(d, filter)
	if err != nil {
		return 0, fmt.Errorf("compile delete %s: %w", d.Table(), err)
	}
	res, err := s.db.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", d.Table(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", d.Table(), err)
	}
	return n, nil
}
