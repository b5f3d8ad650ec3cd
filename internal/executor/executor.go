package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/queryir"
)

// Executor translates compiled queries into Backend calls.
//
// It holds no per-call state and is safe for concurrent use if the backend
// is. The caller's context is handed to the backend untouched.
type Executor struct {
	backend Backend
	logger  *slog.Logger
}

// New creates an executor. A nil logger means slog.Default().
func New(backend Backend, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{backend: backend, logger: logger}
}

// Backend returns the wrapped backend.
func (e *Executor) Backend() Backend {
	return e.backend
}

// Execute runs q and returns the materialized rows in backend order.
func (e *Executor) Execute(ctx context.Context, d *entity.Descriptor, q *queryir.Query) ([]entity.Row, error) {
	filter, err := e.bind(d, q)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("executing query", "entity", d.Name(), "query", q.String())

	rows, err := e.backend.Scan(ctx, d, filter, q.OrderBy, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", d.Name(), err)
	}
	return Materialize(rows, d)
}

// Exists reports whether at least one row matches q.
func (e *Executor) Exists(ctx context.Context, d *entity.Descriptor, q *queryir.Query) (bool, error) {
	filter, err := e.bind(d, q)
	if err != nil {
		return false, err
	}

	e.logger.Debug("checking existence", "entity", d.Name(), "query", q.String())

	rows, err := e.backend.Scan(ctx, d, filter, nil, 1)
	if err != nil {
		return false, fmt.Errorf("scan %s: %w", d.Name(), err)
	}
	return len(rows) > 0, nil
}

// Count returns the number of rows matching q. Limit and order are ignored.
func (e *Executor) Count(ctx context.Context, d *entity.Descriptor, q *queryir.Query) (int64, error) {
	filter, err := e.bind(d, q)
	if err != nil {
		return 0, err
	}

	e.logger.Debug("counting", "entity", d.Name(), "query", q.String())

	if c, ok := e.backend.(Counter); ok {
		n, err := c.Count(ctx, d, filter)
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", d.Name(), err)
		}
		return n, nil
	}

	rows, err := e.backend.Scan(ctx, d, filter, nil, 0)
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", d.Name(), err)
	}
	return int64(len(rows)), nil
}

// Delete removes every row matching q and returns how many were removed.
func (e *Executor) Delete(ctx context.Context, d *entity.Descriptor, q *queryir.Query) (int64, error) {
	filter, err := e.bind(d, q)
	if err != nil {
		return 0, err
	}

	e.logger.Debug("deleting", "entity", d.Name(), "query", q.String())

	if bd, ok := e.backend.(BulkDeleter); ok {
		n, err := bd.DeleteWhere(ctx, d, filter)
		if err != nil {
			return 0, fmt.Errorf("delete %s: %w", d.Name(), err)
		}
		return n, nil
	}

	rows, err := e.backend.Scan(ctx, d, filter, nil, 0)
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", d.Name(), err)
	}
	var n int64
	for _, row := range rows {
		removed, err := e.backend.Delete(ctx, d, row[d.ID().Name])
		if err != nil {
			return n, fmt.Errorf("delete %s: %w", d.Name(), err)
		}
		if removed {
			n++
		}
	}
	return n, nil
}

func (e *Executor) bind(d *entity.Descriptor, q *queryir.Query) (queryir.Filter, error) {
	if q.Entity != d.Name() {
		return nil, fmt.Errorf("execute: query targets %s, not %s", q.Entity, d.Name())
	}
	filter, err := queryir.Bind(q.Predicate, q.Args)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", d.Name(), err)
	}
	return filter, nil
}
