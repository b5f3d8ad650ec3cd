package repository

import (
	"context"
	"fmt"
	"reflect"

	"github.com/roach88/derive/internal/compiler"
)

// The binders below fix a derived method to a Go function type once. The
// argument types are taken from the type parameters, so a signature that
// cannot bind fails here, before the function is ever called.

// FindBy1 binds a one-argument find method.
func FindBy1[T, A any](r *Repository[T], name string) (func(ctx context.Context, a A) ([]T, error), error) {
	m, err := declareTyped(r, name, entryFind, reflect.TypeFor[A]())
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a A) ([]T, error) {
		return m.Find(ctx, a)
	}, nil
}

// FindBy2 binds a two-argument find method.
func FindBy2[T, A, B any](r *Repository[T], name string) (func(ctx context.Context, a A, b B) ([]T, error), error) {
	m, err := declareTyped(r, name, entryFind, reflect.TypeFor[A](), reflect.TypeFor[B]())
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a A, b B) ([]T, error) {
		return m.Find(ctx, a, b)
	}, nil
}

// FindBy3 binds a three-argument find method.
func FindBy3[T, A, B, C any](r *Repository[T], name string) (func(ctx context.Context, a A, b B, c C) ([]T, error), error) {
	m, err := declareTyped(r, name, entryFind, reflect.TypeFor[A](), reflect.TypeFor[B](), reflect.TypeFor[C]())
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a A, b B, c C) ([]T, error) {
		return m.Find(ctx, a, b, c)
	}, nil
}

// FindOneBy1 binds a one-argument find method returning its first match.
func FindOneBy1[T, A any](r *Repository[T], name string) (func(ctx context.Context, a A) (T, bool, error), error) {
	m, err := declareTyped(r, name, entryOne, reflect.TypeFor[A]())
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a A) (T, bool, error) {
		return m.One(ctx, a)
	}, nil
}

// ExistsBy1 binds a one-argument exists method.
func ExistsBy1[T, A any](r *Repository[T], name string) (func(ctx context.Context, a A) (bool, error), error) {
	m, err := declareTyped(r, name, entryExists, reflect.TypeFor[A]())
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a A) (bool, error) {
		return m.Exists(ctx, a)
	}, nil
}

// CountBy1 binds a one-argument count method.
func CountBy1[T, A any](r *Repository[T], name string) (func(ctx context.Context, a A) (int64, error), error) {
	m, err := declareTyped(r, name, entryCount, reflect.TypeFor[A]())
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a A) (int64, error) {
		return m.Count(ctx, a)
	}, nil
}

// DeleteBy1 binds a one-argument delete method.
func DeleteBy1[T, A any](r *Repository[T], name string) (func(ctx context.Context, a A) (int64, error), error) {
	m, err := declareTyped(r, name, entryDelete, reflect.TypeFor[A]())
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a A) (int64, error) {
		return m.Delete(ctx, a)
	}, nil
}

func declareTyped[T any](r *Repository[T], name string, e entryPoint, types ...reflect.Type) (*Method[T], error) {
	sig := Signature{Name: name, Args: make([]compiler.ArgType, len(types))}
	for i, t := range types {
		at, ok := compiler.ArgTypeOf(t)
		if !ok {
			return nil, &compiler.BindError{
				Code:     compiler.ErrCodeTypeMismatch,
				Entity:   r.desc.Name(),
				Method:   name,
				ArgIndex: i,
				Message:  fmt.Sprintf("Go type %s cannot be bound as a method argument", t),
			}
		}
		sig.Args[i] = at
	}

	m, err := r.Declare(sig)
	if err != nil {
		return nil, err
	}
	if err := m.check(e); err != nil {
		return nil, err
	}
	return m, nil
}
