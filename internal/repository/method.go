package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/derive/internal/compiler"
	"github.com/roach88/derive/internal/methodname"
	"github.com/roach88/derive/internal/queryir"
)

// ErrActionMismatch is returned when a derived method is invoked through an
// entry point its prefix does not allow, e.g. countByStatus through Find.
var ErrActionMismatch = errors.New("method prefix does not match entry point")

// Signature declares a derived method: its name and the types of its
// arguments in call order.
type Signature struct {
	Name string
	Args []compiler.ArgType
}

// entryPoint names the ways a bound method can be invoked.
type entryPoint string

const (
	entryFind   entryPoint = "Find"
	entryOne    entryPoint = "One"
	entryExists entryPoint = "Exists"
	entryCount  entryPoint = "Count"
	entryDelete entryPoint = "Delete"
)

// allows reports whether methods with action a may run through e.
func (e entryPoint) allows(a methodname.Action) bool {
	switch e {
	case entryFind, entryOne:
		return a.ReturnsEntities()
	case entryExists:
		return a == methodname.ActionExists
	case entryCount:
		return a == methodname.ActionCount
	case entryDelete:
		return a == methodname.ActionDelete
	}
	return false
}

// Method is a derived method bound to a repository. It is immutable.
type Method[T any] struct {
	repo   *Repository[T]
	parsed *methodname.Method
	sig    Signature
}

// Declare parses sig.Name and checks the declared argument types against
// the fields they are compared with. Errors are *methodname.ParseError or
// *compiler.BindError.
func (r *Repository[T]) Declare(sig Signature) (*Method[T], error) {
	parsed, err := r.cache.Parse(sig.Name)
	if err != nil {
		return nil, err
	}
	if err := compiler.CheckSignature(parsed, r.desc, sig.Args); err != nil {
		return nil, err
	}

	r.logger.Debug("derived method bound",
		"entity", r.desc.Name(),
		"method", sig.Name,
		"query", parsed.String())

	return &Method[T]{repo: r, parsed: parsed, sig: sig}, nil
}

// Name returns the method name.
func (m *Method[T]) Name() string {
	return m.sig.Name
}

// Signature returns the declared signature.
func (m *Method[T]) Signature() Signature {
	return m.sig
}

// Parsed returns the parsed method shared through the cache.
func (m *Method[T]) Parsed() *methodname.Method {
	return m.parsed
}

// Find runs a find or get method and returns every match.
func (m *Method[T]) Find(ctx context.Context, args ...any) ([]T, error) {
	q, err := m.query(entryFind, args)
	if err != nil {
		return nil, err
	}
	rows, err := m.repo.exec.Execute(ctx, m.repo.desc, q)
	if err != nil {
		return nil, err
	}
	return m.repo.typed(rows)
}

// One runs a find or get method limited to its first match. It does not
// check that the match is unique. No match is (zero, false, nil).
func (m *Method[T]) One(ctx context.Context, args ...any) (T, bool, error) {
	var zero T

	q, err := m.query(entryOne, args)
	if err != nil {
		return zero, false, err
	}
	q.Limit = 1

	rows, err := m.repo.exec.Execute(ctx, m.repo.desc, q)
	if err != nil {
		return zero, false, err
	}
	out, err := m.repo.typed(rows)
	if err != nil || len(out) == 0 {
		return zero, false, err
	}
	return out[0], true, nil
}

// Exists runs an exists method.
func (m *Method[T]) Exists(ctx context.Context, args ...any) (bool, error) {
	q, err := m.query(entryExists, args)
	if err != nil {
		return false, err
	}
	return m.repo.exec.Exists(ctx, m.repo.desc, q)
}

// Count runs a count method.
func (m *Method[T]) Count(ctx context.Context, args ...any) (int64, error) {
	q, err := m.query(entryCount, args)
	if err != nil {
		return 0, err
	}
	return m.repo.exec.Count(ctx, m.repo.desc, q)
}

// Delete runs a delete method and returns how many entities were removed.
func (m *Method[T]) Delete(ctx context.Context, args ...any) (int64, error) {
	q, err := m.query(entryDelete, args)
	if err != nil {
		return 0, err
	}
	n, err := m.repo.exec.Delete(ctx, m.repo.desc, q)
	if err != nil {
		return n, err
	}

	m.repo.logger.Debug("entities deleted", "entity", m.repo.desc.Name(), "method", m.sig.Name, "count", n)
	return n, nil
}

func (m *Method[T]) query(e entryPoint, args []any) (*queryir.Query, error) {
	if err := m.check(e); err != nil {
		return nil, err
	}
	return compiler.Compile(m.parsed, m.repo.desc, args)
}

func (m *Method[T]) check(e entryPoint) error {
	if !e.allows(m.parsed.Action) {
		return fmt.Errorf("%s.%s: %w: %s methods cannot run through %s",
			m.repo.desc.Name(), m.sig.Name, ErrActionMismatch, m.parsed.Action, e)
	}
	return nil
}
