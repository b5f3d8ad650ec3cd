package queryir

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Operator is a comparison operator recognized in method names.
type Operator string

const (
	OpEquals      Operator = "Equals"
	OpLessThan    Operator = "LessThan"
	OpGreaterThan Operator = "GreaterThan"
	OpLike        Operator = "Like"
	OpIsNull      Operator = "IsNull"
	OpIsNotNull   Operator = "IsNotNull"
	OpIn          Operator = "In"
)

// Operators lists the keyword operators (Equals is implicit in method names).
var Operators = []Operator{OpLessThan, OpGreaterThan, OpLike, OpIsNull, OpIsNotNull, OpIn}

// TakesArgument reports whether the operator consumes a positional argument.
func (o Operator) TakesArgument() bool {
	return o != OpIsNull && o != OpIsNotNull
}

// Connective joins two predicates.
type Connective string

const (
	And Connective = "And"
	Or  Connective = "Or"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "Asc"
	Desc Direction = "Desc"
)

// Order is one sort key.
type Order struct {
	Field     string
	Direction Direction
}

// Predicate is the unbound filter of a derived method.
//
// This is a sealed interface. Implementations: Comparison, Logical.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
	String() string
}

// Comparison is a single clause of a method name: `<field> <op> args[ArgIndex]`.
//
// ArgIndex is -1 for operators that take no argument (IsNull, IsNotNull).
type Comparison struct {
	Field    string
	Op       Operator
	ArgIndex int
}

func (Comparison) predicateNode() {}

func (c Comparison) String() string {
	return fmt.Sprintf("Comparison{%s, %s, %d}", c.Field, c.Op, c.ArgIndex)
}

// Logical combines two predicates with a connective.
type Logical struct {
	Connective Connective
	Left       Predicate
	Right      Predicate
}

func (Logical) predicateNode() {}

func (l Logical) String() string {
	return fmt.Sprintf("Logical{%s, %s, %s}", strings.ToUpper(string(l.Connective)), l.Left, l.Right)
}

// Query is the executable description of one derived call.
//
// Predicate is shared with the parse cache and must not be modified. Args
// holds the coerced argument values indexed by Comparison.ArgIndex.
type Query struct {
	Entity    string
	Predicate Predicate // nil selects every row
	Args      []any
	OrderBy   []Order
	Limit     int // 0 means unlimited
}

// String renders the query on one line, e.g.
// `User WHERE Comparison{email, Equals, 0} ["a@b.com"] LIMIT 1`.
func (q *Query) String() string {
	var b strings.Builder
	b.WriteString(q.Entity)
	if q.Predicate != nil {
		fmt.Fprintf(&b, " WHERE %s %s", q.Predicate, FormatArgs(q.Args))
	}
	if len(q.OrderBy) > 0 {
		keys := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			keys[i] = o.Field + " " + string(o.Direction)
		}
		fmt.Fprintf(&b, " ORDER BY %s", strings.Join(keys, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String()
}

// FormatArgs renders argument values as a bracketed list with strings quoted.
func FormatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatValue(a)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []any:
		return FormatArgs(x)
	default:
		return fmt.Sprint(x)
	}
}

// Filter is a predicate with its argument values bound.
//
// This is a sealed interface. Implementations: Condition, Junction.
type Filter interface {
	filterNode() // Marker method - seals interface to this package
}

// Condition is `<field> <op> <value>`. Value is nil for IsNull/IsNotNull and
// a []any for In.
type Condition struct {
	Field string
	Op    Operator
	Value any
}

func (Condition) filterNode() {}

// Junction combines two filters with a connective.
type Junction struct {
	Connective Connective
	Left       Filter
	Right      Filter
}

func (Junction) filterNode() {}

// Walk visits every comparison of p from left to right.
func Walk(p Predicate, fn func(Comparison)) {
	switch n := p.(type) {
	case Comparison:
		fn(n)
	case Logical:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	}
}

// ArgCount returns the number of distinct argument indexes referenced by p.
func ArgCount(p Predicate) int {
	seen := map[int]struct{}{}
	Walk(p, func(c Comparison) {
		if c.ArgIndex >= 0 {
			seen[c.ArgIndex] = struct{}{}
		}
	})
	return len(seen)
}

// Comparisons returns the comparisons of p in left-to-right order.
func Comparisons(p Predicate) []Comparison {
	var out []Comparison
	Walk(p, func(c Comparison) { out = append(out, c) })
	return out
}

// Bind substitutes argument values into p.
//
// Bind does not check types; the compiler has already coerced args. It fails
// only when an ArgIndex is out of range or the tree holds an unknown node.
func Bind(p Predicate, args []any) (Filter, error) {
	if p == nil {
		return nil, nil
	}

	switch n := p.(type) {
	case Comparison:
		cond := Condition{Field: n.Field, Op: n.Op}
		if n.Op.TakesArgument() {
			if n.ArgIndex < 0 || n.ArgIndex >= len(args) {
				return nil, fmt.Errorf("bind %s: argument index %d out of range (%d args)", n.Field, n.ArgIndex, len(args))
			}
			cond.Value = args[n.ArgIndex]
		}
		return cond, nil
	case Logical:
		left, err := Bind(n.Left, args)
		if err != nil {
			return nil, err
		}
		right, err := Bind(n.Right, args)
		if err != nil {
			return nil, err
		}
		return Junction{Connective: n.Connective, Left: left, Right: right}, nil
	default:
		return nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}
