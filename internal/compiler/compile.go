package compiler

import (
	"fmt"
	"reflect"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/methodname"
	"github.com/roach88/derive/internal/queryir"
)

// Compile binds positional arguments to a parsed method and produces the
// query to execute.
//
// The predicate tree is checked with queryir.Validate and reused as is.
// Each argument is coerced to the semantic type of the field it is compared
// against, so backends only ever see canonical values (see entity.Coerce).
// Argument errors are *BindError.
func Compile(m *methodname.Method, d *entity.Descriptor, args []any) (*queryir.Query, error) {
	if m == nil || d == nil {
		return nil, fmt.Errorf("compile: nil method or descriptor")
	}
	if m.Entity != d.Name() {
		return nil, fmt.Errorf("compile %s: method parsed for %s, not %s", m.Name, m.Entity, d.Name())
	}

	if err := queryir.Validate(m.Predicate, d).Err(); err != nil {
		return nil, fmt.Errorf("compile %s: %w", m.Name, err)
	}

	want := queryir.ArgCount(m.Predicate)
	if len(args) != want {
		return nil, &BindError{
			Code:     ErrCodeArgumentCountMismatch,
			Entity:   d.Name(),
			Method:   m.Name,
			ArgIndex: -1,
			Message:  fmt.Sprintf("expected %d arguments, got %d", want, len(args)),
		}
	}

	bound := make([]any, want)
	for _, c := range queryir.Comparisons(m.Predicate) {
		if !c.Op.TakesArgument() {
			continue
		}
		f, _ := d.Field(c.Field)
		v, err := bindValue(f, c.Op, args[c.ArgIndex])
		if err != nil {
			return nil, &BindError{
				Code:     ErrCodeTypeMismatch,
				Entity:   d.Name(),
				Method:   m.Name,
				Field:    f.Name,
				ArgIndex: c.ArgIndex,
				Message:  err.Error(),
				Err:      err,
			}
		}
		bound[c.ArgIndex] = v
	}

	return &queryir.Query{
		Entity:    d.Name(),
		Predicate: m.Predicate,
		Args:      bound,
		OrderBy:   m.OrderBy,
		Limit:     m.Limit,
	}, nil
}

func bindValue(f entity.Field, op queryir.Operator, v any) (any, error) {
	if v == nil {
		if op == queryir.OpEquals && f.Nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("nil is not allowed for %s on %s field: %w", op, nullability(f), entity.ErrNull)
	}

	// Only an explicit Equals nil may match null rows.
	f.Nullable = false

	switch op {
	case queryir.OpLike:
		if !f.Type.Textual() {
			return nil, fmt.Errorf("Like is not defined for %s fields", f.Type)
		}
		if reflect.TypeOf(v).Kind() != reflect.String {
			return nil, fmt.Errorf("Like needs a string pattern, got %T", v)
		}
		return entity.Coerce(entity.Field{Name: f.Name, Type: entity.TypeString}, v)

	case queryir.OpLessThan, queryir.OpGreaterThan:
		if !f.Type.Ordered() {
			return nil, fmt.Errorf("%s is not defined for %s fields", op, f.Type)
		}
		return entity.Coerce(f, v)

	case queryir.OpIn:
		rv := reflect.ValueOf(v)
		if (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, fmt.Errorf("In needs a slice, got %T", v)
		}
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			el, err := entity.Coerce(f, rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = el
		}
		return out, nil

	default:
		return entity.Coerce(f, v)
	}
}

func nullability(f entity.Field) string {
	if f.Nullable {
		return "nullable " + string(f.Type)
	}
	return "non-nullable " + string(f.Type)
}
