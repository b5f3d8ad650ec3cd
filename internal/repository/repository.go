package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/executor"
	"github.com/roach88/derive/internal/methodname"
	"github.com/roach88/derive/internal/queryir"
)

// Repository provides CRUD and derived methods for entity type T.
type Repository[T any] struct {
	desc   *entity.Descriptor
	mapper entity.Mapper[T]
	exec   *executor.Executor
	cache  *methodname.Cache
	logger *slog.Logger
}

// Option configures a Repository.
type Option func(*options)

type options struct {
	logger *slog.Logger
	cache  *methodname.Cache
}

// WithLogger sets the logger for the repository and its executor.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithCache shares a parse cache between repositories of the same entity.
// New panics if the cache was built for a different descriptor.
func WithCache(c *methodname.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// New creates a repository for entity d stored in backend.
func New[T any](d *entity.Descriptor, mapper entity.Mapper[T], backend executor.Backend, opts ...Option) *Repository[T] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cache == nil {
		o.cache = methodname.NewCache(d)
	}
	if !o.cache.Descriptor().Equal(d) {
		panic(fmt.Sprintf("repository: parse cache is for %s, not %s", o.cache.Descriptor().Name(), d.Name()))
	}

	return &Repository[T]{
		desc:   d,
		mapper: mapper,
		exec:   executor.New(backend, o.logger),
		cache:  o.cache,
		logger: o.logger,
	}
}

// Descriptor returns the entity descriptor.
func (r *Repository[T]) Descriptor() *entity.Descriptor {
	return r.desc
}

// Cache returns the parse cache used for derived methods.
func (r *Repository[T]) Cache() *methodname.Cache {
	return r.cache
}

// Save inserts v or replaces the stored entity with the same identifier.
// A zero identifier is assigned by the backend; the returned value carries
// it.
func (r *Repository[T]) Save(ctx context.Context, v T) (T, error) {
	var zero T

	row, err := r.canonical(r.mapper.ToRow(v))
	if err != nil {
		return zero, fmt.Errorf("save %s: %w", r.desc.Name(), err)
	}

	stored, err := r.exec.Backend().Upsert(ctx, r.desc, row)
	if err != nil {
		return zero, fmt.Errorf("save %s: %w", r.desc.Name(), err)
	}

	out, err := executor.MaterializeAs([]entity.Row{stored}, r.desc, r.mapper)
	if err != nil {
		return zero, err
	}

	r.logger.Debug("entity saved", "entity", r.desc.Name(), "id", stored[r.desc.ID().Name])
	return out[0], nil
}

// FindByID returns the entity with the given identifier, coerced to the
// identifier field's type first. A missing entity is (zero, false, nil).
func (r *Repository[T]) FindByID(ctx context.Context, id any) (T, bool, error) {
	var zero T

	key, err := entity.Coerce(r.desc.ID(), id)
	if err != nil {
		return zero, false, fmt.Errorf("find %s %v: %w", r.desc.Name(), id, err)
	}

	row, ok, err := r.exec.Backend().Get(ctx, r.desc, key)
	if err != nil {
		return zero, false, fmt.Errorf("find %s %v: %w", r.desc.Name(), id, err)
	}
	if !ok {
		return zero, false, nil
	}

	out, err := executor.MaterializeAs([]entity.Row{row}, r.desc, r.mapper)
	if err != nil {
		return zero, false, err
	}
	return out[0], true, nil
}

// DeleteByID removes the entity with the given identifier and reports
// whether it existed.
func (r *Repository[T]) DeleteByID(ctx context.Context, id any) (bool, error) {
	key, err := entity.Coerce(r.desc.ID(), id)
	if err != nil {
		return false, fmt.Errorf("delete %s %v: %w", r.desc.Name(), id, err)
	}

	ok, err := r.exec.Backend().Delete(ctx, r.desc, key)
	if err != nil {
		return false, fmt.Errorf("delete %s %v: %w", r.desc.Name(), id, err)
	}

	r.logger.Debug("entity deleted", "entity", r.desc.Name(), "id", key, "existed", ok)
	return ok, nil
}

// FindAll returns every entity ordered by identifier.
func (r *Repository[T]) FindAll(ctx context.Context) ([]T, error) {
	rows, err := r.exec.Execute(ctx, r.desc, r.all())
	if err != nil {
		return nil, err
	}
	return r.typed(rows)
}

// Count returns the number of stored entities.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	return r.exec.Count(ctx, r.desc, r.all())
}

func (r *Repository[T]) all() *queryir.Query {
	return &queryir.Query{Entity: r.desc.Name()}
}

// typed maps already materialized rows to T.
func (r *Repository[T]) typed(rows []entity.Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		v, err := r.mapper.FromRow(row)
		if err != nil {
			return nil, &executor.MaterializationError{Entity: r.desc.Name(), Row: i, Err: err}
		}
		out = append(out, v)
	}
	return out, nil
}

// canonical coerces every declared field of row and drops a zero
// identifier so the backend assigns one.
func (r *Repository[T]) canonical(row entity.Row) (entity.Row, error) {
	idName := r.desc.ID().Name
	out := make(entity.Row, len(row))
	for _, f := range r.desc.Fields() {
		v := row[f.Name]
		if f.Name == idName {
			if entity.IsZeroID(v) {
				continue
			}
		}
		cv, err := entity.Coerce(f, v)
		if err != nil {
			return nil, err
		}
		out[f.Name] = cv
	}
	return out, nil
}
