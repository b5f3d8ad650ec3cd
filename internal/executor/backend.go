package executor

import (
	"context"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/queryir"
)

// Backend is the storage capability the core consumes.
//
// Rows passed in and out are keyed by field name. Backends may return
// driver representations (int64 for booleans, text for dates); the executor
// normalizes them with Materialize.
type Backend interface {
	// Scan returns the rows matching filter (nil matches everything),
	// sorted by order and truncated to limit when limit > 0.
	Scan(ctx context.Context, d *entity.Descriptor, filter queryir.Filter, order []queryir.Order, limit int) ([]entity.Row, error)

	// Get returns the row with the given identifier. A missing row is
	// (nil, false, nil).
	Get(ctx context.Context, d *entity.Descriptor, id any) (entity.Row, bool, error)

	// Upsert inserts or replaces row and returns it as stored. A zero
	// identifier is assigned by the backend: the next integer for number
	// identifiers, a UUIDv7 for string identifiers.
	Upsert(ctx context.Context, d *entity.Descriptor, row entity.Row) (entity.Row, error)

	// Delete removes the row with the given identifier and reports whether
	// it existed.
	Delete(ctx context.Context, d *entity.Descriptor, id any) (bool, error)
}

// Counter is implemented by backends that count without fetching rows.
type Counter interface {
	Count(ctx context.Context, d *entity.Descriptor, filter queryir.Filter) (int64, error)
}

// BulkDeleter is implemented by backends that delete by filter in one call.
type BulkDeleter interface {
	DeleteWhere(ctx context.Context, d *entity.Descriptor, filter queryir.Filter) (int64, error)
}
