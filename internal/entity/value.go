package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"time"
)

var (
	// ErrIncompatible is returned when a value cannot represent a semantic type.
	ErrIncompatible = errors.New("incompatible value")

	// ErrNull is returned when nil is supplied for a non-nullable field.
	ErrNull = errors.New("null value for non-nullable field")
)

// Row is the storage-level shape of an entity: field name to primitive value.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// dateLayouts are accepted for textual dates, most specific first. SQLite
// stores timestamps as text in one of these forms.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Coerce converts v into the canonical Go value for field f.
//
// nil is accepted only for nullable fields. Errors wrap ErrNull or
// ErrIncompatible.
func Coerce(f Field, v any) (any, error) {
	if v == nil {
		if f.Nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("field %s: %w", f.Name, ErrNull)
	}

	v = underlying(v)

	var (
		out any
		ok  bool
	)
	switch f.Type {
	case TypeString:
		out, ok = coerceString(v)
	case TypeEnum:
		out, ok = coerceString(v)
		if ok && !slices.Contains(f.Enum, out.(string)) {
			return nil, fmt.Errorf("field %s: %w: %q is not one of %v", f.Name, ErrIncompatible, out, f.Enum)
		}
	case TypeNumber:
		out, ok = coerceNumber(v)
	case TypeBoolean:
		out, ok = coerceBool(v)
	case TypeDate:
		out, ok = coerceDate(v)
	default:
		return nil, fmt.Errorf("field %s: unknown semantic type %q", f.Name, f.Type)
	}
	if !ok {
		return nil, fmt.Errorf("field %s: %w: %T is not a %s", f.Name, ErrIncompatible, v, f.Type)
	}
	return out, nil
}

// IsZeroID reports whether an identifier value means "not assigned yet".
func IsZeroID(v any) bool {
	if v == nil {
		return true
	}
	switch id := underlying(v).(type) {
	case nil:
		return true
	case string:
		return id == ""
	default:
		n, ok := coerceNumber(id)
		if !ok {
			return false
		}
		switch x := n.(type) {
		case int64:
			return x == 0
		case float64:
			return x == 0
		}
		return false
	}
}

// underlying unwraps named basic types (type Status string) to their
// predeclared counterparts.
func underlying(v any) any {
	switch v.(type) {
	case string, []byte, bool, time.Time, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return v
}

func coerceString(v any) (any, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return nil, false
}

func coerceNumber(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uint64ToNumber(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uint64ToNumber(n)
	case float32:
		return fromFloat(float64(n))
	case float64:
		return fromFloat(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return fromFloat(f)
		}
	case []byte:
		// drivers may hand back NUMERIC columns as text
		s := string(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromFloat(f)
		}
	}
	return nil, false
}

// fromFloat keeps whole numbers as int64, so 2.0 and 2 are the same value
// whichever decoder produced them.
func fromFloat(f float64) (any, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f), true
	}
	return f, true
}

func uint64ToNumber(n uint64) (any, bool) {
	if n > math.MaxInt64 {
		return nil, false
	}
	return int64(n), true
}

func coerceBool(v any) (any, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case int64:
		// SQLite has no boolean storage class
		if b == 0 || b == 1 {
			return b == 1, true
		}
	}
	return nil, false
}

// DatePrecision is the resolution dates are kept at. It is the finest every
// backend stores (PostgreSQL TIMESTAMPTZ), so a saved date reads back equal.
const DatePrecision = time.Microsecond

func coerceDate(v any) (any, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Truncate(DatePrecision), true
	case string:
		return parseDate(t)
	case []byte:
		return parseDate(string(t))
	}
	return nil, false
}

func parseDate(s string) (any, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(DatePrecision), true
		}
	}
	return nil, false
}
