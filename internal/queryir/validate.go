package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/derive/internal/entity"
)

// ValidationResult lists the problems found in a predicate.
type ValidationResult struct {
	Problems []string
}

// Valid reports whether no problems were found.
func (r ValidationResult) Valid() bool {
	return len(r.Problems) == 0
}

// Err returns nil for a valid result, otherwise an error listing every problem.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return fmt.Errorf("invalid predicate: %s", strings.Join(r.Problems, "; "))
}

// Validate checks the shape of a predicate against an entity descriptor:
//  1. every Comparison references a declared field
//  2. every operator and connective is known
//  3. argument indexes are dense and start at zero
//
// Whether an operator suits a field's semantic type is a binding question
// and is left to the compiler. Validate reports every problem, not only the
// first.
func Validate(p Predicate, d *entity.Descriptor) ValidationResult {
	v := &validator{desc: d, indexes: map[int]bool{}}
	if p != nil {
		v.validatePredicate(p)
	}
	for i := range len(v.indexes) {
		if !v.indexes[i] {
			v.addProblem("argument indexes are not contiguous: index %d is unused", i)
			break
		}
	}
	return ValidationResult{Problems: v.problems}
}

// validator accumulates problems during traversal.
type validator struct {
	desc     *entity.Descriptor
	indexes  map[int]bool
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validatePredicate(p Predicate) {
	switch n := p.(type) {
	case Comparison:
		v.validateComparison(n)
	case Logical:
		if n.Connective != And && n.Connective != Or {
			v.addProblem("unknown connective %q", n.Connective)
		}
		if n.Left == nil || n.Right == nil {
			v.addProblem("logical %s with missing operand", n.Connective)
			return
		}
		v.validatePredicate(n.Left)
		v.validatePredicate(n.Right)
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) validateComparison(c Comparison) {
	f, ok := v.desc.Field(c.Field)
	if !ok {
		v.addProblem("entity %s has no field %q", v.desc.Name(), c.Field)
		return
	}

	switch c.Op {
	case OpEquals, OpIn, OpLessThan, OpGreaterThan, OpLike, OpIsNull, OpIsNotNull:
	default:
		v.addProblem("unknown operator %q on field %q", c.Op, f.Name)
		return
	}

	if c.Op.TakesArgument() {
		if c.ArgIndex < 0 {
			v.addProblem("%s on %q needs an argument index", c.Op, f.Name)
			return
		}
		v.indexes[c.ArgIndex] = true
	} else if c.ArgIndex != -1 {
		v.addProblem("%s on %q must not consume an argument", c.Op, f.Name)
	}
}
