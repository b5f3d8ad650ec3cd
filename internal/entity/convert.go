package entity

import (
	"fmt"
	"math"
	"time"
)

// The accessors below read canonical values out of a materialized Row.
// Mappers use them in FromRow; they fail with ErrNull or ErrIncompatible
// instead of panicking on an unexpected shape.

// String reads a string or enum field.
func String(r Row, name string) (string, error) {
	return get[string](r, name)
}

// Bool reads a boolean field.
func Bool(r Row, name string) (bool, error) {
	return get[bool](r, name)
}

// Time reads a date field.
func Time(r Row, name string) (time.Time, error) {
	return get[time.Time](r, name)
}

// Int64 reads a number field holding an integer.
func Int64(r Row, name string) (int64, error) {
	switch n := r[name].(type) {
	case nil:
		return 0, fmt.Errorf("field %s: %w", name, ErrNull)
	case int64:
		return n, nil
	case float64:
		if n == math.Trunc(n) && n >= math.MinInt64 && n < math.MaxInt64 {
			return int64(n), nil
		}
	}
	return 0, fmt.Errorf("field %s: %w: %v is not an integer", name, ErrIncompatible, r[name])
}

// Float64 reads a number field.
func Float64(r Row, name string) (float64, error) {
	switch n := r[name].(type) {
	case nil:
		return 0, fmt.Errorf("field %s: %w", name, ErrNull)
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return 0, fmt.Errorf("field %s: %w: %T is not a number", name, ErrIncompatible, r[name])
}

// Nullable reads a nullable field with get. A null value is a nil pointer.
func Nullable[V any](r Row, name string, get func(Row, string) (V, error)) (*V, error) {
	if r[name] == nil {
		return nil, nil
	}
	v, err := get(r, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func get[V any](r Row, name string) (V, error) {
	var zero V
	raw := r[name]
	if raw == nil {
		return zero, fmt.Errorf("field %s: %w", name, ErrNull)
	}
	v, ok := raw.(V)
	if !ok {
		return zero, fmt.Errorf("field %s: %w: got %T, want %T", name, ErrIncompatible, raw, zero)
	}
	return v, nil
}
