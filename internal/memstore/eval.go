package memstore

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/queryir"
)

// Match reports whether row satisfies f. A nil filter matches every row.
func Match(f queryir.Filter, row entity.Row) bool {
	switch n := f.(type) {
	case nil:
		return true
	case queryir.Condition:
		return matchCondition(n, row[n.Field])
	case queryir.Junction:
		if n.Connective == queryir.Or {
			return Match(n.Left, row) || Match(n.Right, row)
		}
		return Match(n.Left, row) && Match(n.Right, row)
	}
	return false
}

func matchCondition(c queryir.Condition, v any) bool {
	switch c.Op {
	case queryir.OpIsNull:
		return v == nil
	case queryir.OpIsNotNull:
		return v != nil
	case queryir.OpEquals:
		if c.Value == nil {
			return v == nil
		}
		cmp, ok := compare(v, c.Value)
		return ok && cmp == 0
	case queryir.OpLessThan:
		cmp, ok := compare(v, c.Value)
		return ok && cmp < 0
	case queryir.OpGreaterThan:
		cmp, ok := compare(v, c.Value)
		return ok && cmp > 0
	case queryir.OpLike:
		s, ok1 := v.(string)
		p, ok2 := c.Value.(string)
		return ok1 && ok2 && like(p, s)
	case queryir.OpIn:
		list, _ := c.Value.([]any)
		for _, el := range list {
			if cmp, ok := compare(v, el); ok && cmp == 0 {
				return true
			}
		}
	}
	return false
}

// compare orders two canonical values of the same semantic type. ok is
// false when either is nil or the kinds differ.
func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return strings.Compare(x, y), ok
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	case time.Time:
		y, ok := b.(time.Time)
		return x.Compare(y), ok
	case int64, float64:
		xf, ok1 := toFloat(x)
		yf, ok2 := toFloat(b)
		if !ok1 || !ok2 {
			return 0, false
		}
		if xi, ok := x.(int64); ok {
			if yi, ok := b.(int64); ok {
				return cmpOrdered(xi, yi), true
			}
		}
		return cmpOrdered(xf, yf), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func cmpOrdered[N int64 | float64](a, b N) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// like implements SQL LIKE: % matches any run of characters, _ exactly one.
func like(pattern, s string) bool {
	for len(pattern) > 0 {
		r, size := utf8.DecodeRuneInString(pattern)
		switch r {
		case '%':
			rest := strings.TrimLeft(pattern, "%")
			if rest == "" {
				return true
			}
			for i := range len(s) + 1 {
				if i < len(s) && !utf8.RuneStart(s[i]) {
					continue
				}
				if like(rest, s[i:]) {
					return true
				}
			}
			return false
		case '_':
			if s == "" {
				return false
			}
			_, n := utf8.DecodeRuneInString(s)
			s = s[n:]
		default:
			if !strings.HasPrefix(s, pattern[:size]) {
				return false
			}
			s = s[size:]
		}
		pattern = pattern[size:]
	}
	return s == ""
}
