package compiler

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/methodname"
	"github.com/roach88/derive/internal/queryir"
)

// ArgType is the declared type of one derived method argument. List marks
// the argument of an In comparison; Type is then the element type.
type ArgType struct {
	Type entity.SemanticType
	List bool
}

func (a ArgType) String() string {
	if a.List {
		return "[]" + string(a.Type)
	}
	return string(a.Type)
}

// ParseArgType parses "string", "number", "[]enum" and so on.
func ParseArgType(s string) (ArgType, error) {
	list := strings.HasPrefix(s, "[]")
	t, err := entity.ParseSemanticType(strings.TrimPrefix(s, "[]"))
	if err != nil {
		return ArgType{}, err
	}
	return ArgType{Type: t, List: list}, nil
}

var timeType = reflect.TypeFor[time.Time]()

// ArgTypeOf maps a Go type to the argument type it binds as. Named types
// map through their underlying kind. Pointers, maps and nested slices have
// no argument type.
func ArgTypeOf(t reflect.Type) (ArgType, bool) {
	if t == nil {
		return ArgType{}, false
	}
	if t == timeType {
		return ArgType{Type: entity.TypeDate}, true
	}
	switch t.Kind() {
	case reflect.String:
		return ArgType{Type: entity.TypeString}, true
	case reflect.Bool:
		return ArgType{Type: entity.TypeBoolean}, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return ArgType{Type: entity.TypeNumber}, true
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return ArgType{}, false
		}
		el, ok := ArgTypeOf(t.Elem())
		if !ok || el.List {
			return ArgType{}, false
		}
		return ArgType{Type: el.Type, List: true}, true
	}
	return ArgType{}, false
}

// CheckSignature validates declared argument types against a parsed method
// before any call is made. It applies the same rules as Compile: arity,
// list arguments exactly for In, Like on textual fields with a string
// argument, LessThan and GreaterThan on ordered fields. Strings and enums
// are interchangeable; other types must match the field.
func CheckSignature(m *methodname.Method, d *entity.Descriptor, args []ArgType) error {
	if m == nil || d == nil {
		return fmt.Errorf("check signature: nil method or descriptor")
	}
	if err := queryir.Validate(m.Predicate, d).Err(); err != nil {
		return fmt.Errorf("check signature %s: %w", m.Name, err)
	}
	if want := queryir.ArgCount(m.Predicate); len(args) != want {
		return &BindError{
			Code:     ErrCodeArgumentCountMismatch,
			Entity:   d.Name(),
			Method:   m.Name,
			ArgIndex: -1,
			Message:  fmt.Sprintf("%s consumes %d arguments, signature declares %d", m.Name, want, len(args)),
		}
	}

	for _, c := range queryir.Comparisons(m.Predicate) {
		if !c.Op.TakesArgument() {
			continue
		}
		f, _ := d.Field(c.Field)
		if msg := mismatch(f, c.Op, args[c.ArgIndex]); msg != "" {
			return &BindError{
				Code:     ErrCodeTypeMismatch,
				Entity:   d.Name(),
				Method:   m.Name,
				Field:    f.Name,
				ArgIndex: c.ArgIndex,
				Message:  msg,
			}
		}
	}
	return nil
}

func mismatch(f entity.Field, op queryir.Operator, a ArgType) string {
	if a.List != (op == queryir.OpIn) {
		if a.List {
			return fmt.Sprintf("list argument %s is only allowed for In, not %s", a, op)
		}
		return fmt.Sprintf("In needs a list argument, declared %s", a)
	}

	switch op {
	case queryir.OpLike:
		if !f.Type.Textual() {
			return fmt.Sprintf("Like is not defined for %s fields", f.Type)
		}
		if a.Type != entity.TypeString {
			return fmt.Sprintf("Like needs a string pattern, declared %s", a)
		}
		return ""
	case queryir.OpLessThan, queryir.OpGreaterThan:
		if !f.Type.Ordered() {
			return fmt.Sprintf("%s is not defined for %s fields", op, f.Type)
		}
	}

	if a.Type == f.Type || (a.Type.Textual() && f.Type.Textual()) {
		return ""
	}
	return fmt.Sprintf("declared %s, field is %s", a, f.Type)
}
