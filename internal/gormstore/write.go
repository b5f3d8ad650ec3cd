package gormstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/queryir"
)

// Upsert implements executor.Backend. The statement is the one querysql
// compiles; gorm rewrites its placeholders for the dialect. On PostgreSQL an
// explicit number id also moves the identity sequence past it, in the same
// transaction.
func (s *Store) Upsert(ctx context.Context, d *entity.Descriptor, row entity.Row) (entity.Row, error) {
	if err := s.EnsureTable(ctx, d); err != nil {
		return nil, err
	}

	row = row.Clone()
	idField := d.ID()
	explicit := !entity.IsZeroID(row[idField.Name])
	switch {
	case explicit:
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
	sync := ""
	if explicit {
		sync = s.compiler.SyncIdentity(d)
	}

	var id any
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(query, params...).Row().Scan(&id); err != nil {
			return err
		}
		if sync == "" {
			return nil
		}
		// an explicit id leaves the identity sequence behind
		return tx.Exec(sync).Error
	})
	if err != nil {
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
	res := s.db.WithContext(ctx).Exec(query, params...)
	if res.Error != nil {
		return false, fmt.Errorf("delete %s: %w", d.Table(), res.Error)
	}
	return res.RowsAffected > 0, nil
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
	res := s.db.WithContext(ctx).Exec(query, params...)
	if res.Error != nil {
		return 0, fmt.Errorf("delete %s: %w", d.Table(), res.Error)
	}
	return res.RowsAffected, nil
}
