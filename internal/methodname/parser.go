package methodname

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/queryir"
)

// Action is the verb a derived method starts with.
type Action string

const (
	ActionFind   Action = "find"
	ActionGet    Action = "get"
	ActionExists Action = "exists"
	ActionDelete Action = "delete"
	ActionCount  Action = "count"
)

// Actions lists every recognized verb.
var Actions = []Action{ActionFind, ActionGet, ActionExists, ActionDelete, ActionCount}

// ReturnsEntities reports whether the action yields entity instances.
func (a Action) ReturnsEntities() bool {
	return a == ActionFind || a == ActionGet
}

// Method is a parsed derived method. It is immutable and shared by every
// caller of the same method name.
type Method struct {
	Name      string
	Entity    string
	Action    Action
	Predicate queryir.Predicate // nil when the name has no criteria
	OrderBy   []queryir.Order
	Limit     int // from First/TopN, 0 means unlimited
	ArgCount  int
}

// String renders the method in query form, e.g.
// `find User WHERE Comparison{email, Equals, 0} LIMIT 1`.
func (m *Method) String() string {
	var b strings.Builder
	b.WriteString(string(m.Action) + " " + m.Entity)
	if m.Predicate != nil {
		b.WriteString(" WHERE " + m.Predicate.String())
	}
	for i, o := range m.OrderBy {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(o.Field + " " + string(o.Direction))
	}
	if m.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", m.Limit)
	}
	return b.String()
}

var (
	orderByWords = []string{"Order", "By"}
	ascWords     = []string{"Asc"}
	descWords    = []string{"Desc"}
)

type opPattern struct {
	op    queryir.Operator
	words []string
}

// operatorPatterns are tried longest first so IsNotNull wins over IsNull.
var operatorPatterns = []opPattern{
	{queryir.OpIsNotNull, []string{"Is", "Not", "Null"}},
	{queryir.OpGreaterThan, []string{"Greater", "Than"}},
	{queryir.OpLessThan, []string{"Less", "Than"}},
	{queryir.OpIsNull, []string{"Is", "Null"}},
	{queryir.OpLike, []string{"Like"}},
	{queryir.OpIn, []string{"In"}},
	{queryir.OpEquals, nil},
}

// Parse parses a derived method name against an entity.
//
// Grammar:
//
//	MethodName  := Action Subject? ("By" Predicate? OrderClause?)?
//	Action      := find | get | exists | delete | count
//	Subject     := All | First | Top<N>
//	Predicate   := Clause (("And" | "Or") Clause)*
//	Clause      := Field Operator?
//	Operator    := LessThan | GreaterThan | Like | IsNull | IsNotNull | In
//	OrderClause := "OrderBy" (Field ("Asc" | "Desc")?)+
//
// Fields are matched longest first; when the longest match leaves an
// unparseable remainder, shorter matches are tried. Clauses are combined
// strictly left to right. Errors are *ParseError.
func Parse(name string, d *entity.Descriptor) (*Method, error) {
	if d == nil {
		return nil, fmt.Errorf("parse %s: nil entity descriptor", name)
	}

	malformed := func(offset int, token, msg string) *ParseError {
		return &ParseError{Kind: KindMalformedName, Entity: d.Name(), Method: name, Token: token, Offset: offset, Message: msg}
	}

	m := &Method{Name: name, Entity: d.Name()}
	for _, a := range Actions {
		if strings.HasPrefix(name, string(a)) {
			m.Action = a
			break
		}
	}
	if m.Action == "" {
		return nil, malformed(0, "", fmt.Sprintf("must start with one of %v", Actions))
	}

	offset := len(m.Action)
	rest := name[offset:]

	switch {
	case strings.HasPrefix(rest, "All"):
		offset += 3
	case strings.HasPrefix(rest, "First"):
		m.Limit = 1
		offset += 5
	case strings.HasPrefix(rest, "Top"):
		digits := 0
		for digits < len(rest)-3 && rest[3+digits] >= '0' && rest[3+digits] <= '9' {
			digits++
		}
		m.Limit = 1
		if digits > 0 {
			n, err := strconv.Atoi(rest[3 : 3+digits])
			if err != nil || n < 1 {
				return nil, malformed(offset, rest[:3+digits], "Top requires a positive count")
			}
			m.Limit = n
		}
		offset += 3 + digits
	}
	rest = name[offset:]

	if m.Limit > 0 && !m.Action.ReturnsEntities() {
		return nil, malformed(len(m.Action), "", fmt.Sprintf("First/Top is not allowed on %s methods", m.Action))
	}
	if rest == "" {
		return m, nil
	}
	if !strings.HasPrefix(rest, "By") {
		return nil, malformed(offset, rest, `expected "By"`)
	}
	offset += 2
	if offset == len(name) {
		return m, nil
	}

	p := newParser(d, name, tokenize(name[offset:], offset))

	res, ok := p.predicate(0)
	if !ok && p.match(0, orderByWords) {
		var order []queryir.Order
		if order, ok = p.orderClause(len(orderByWords)); ok {
			res = &parsed{order: order}
		}
	}
	if !ok {
		return nil, p.best
	}

	if len(res.order) > 0 && !m.Action.ReturnsEntities() {
		return nil, malformed(offset, "", fmt.Sprintf("OrderBy is not allowed on %s methods", m.Action))
	}

	for n, c := range res.clauses {
		cmp := queryir.Comparison{Field: c.field, Op: c.op, ArgIndex: -1}
		if c.op.TakesArgument() {
			cmp.ArgIndex = m.ArgCount
			m.ArgCount++
		}
		if n == 0 {
			m.Predicate = cmp
			continue
		}
		m.Predicate = queryir.Logical{Connective: res.conns[n-1], Left: m.Predicate, Right: cmp}
	}
	m.OrderBy = res.order

	return m, nil
}

type token struct {
	text   string
	offset int
}

// tokenize splits a camel-cased string at uppercase letters. base is the
// offset of s within the method name.
func tokenize(s string, base int) []token {
	var toks []token
	start := 0
	for i, r := range s {
		if i > start && unicode.IsUpper(r) {
			toks = append(toks, token{text: s[start:i], offset: base + start})
			start = i
		}
	}
	if start < len(s) {
		toks = append(toks, token{text: s[start:], offset: base + start})
	}
	return toks
}

type fieldPattern struct {
	name  string
	words []string
}

type clause struct {
	field string
	op    queryir.Operator
}

type parsed struct {
	clauses []clause
	conns   []queryir.Connective
	order   []queryir.Order
}

type parser struct {
	desc   *entity.Descriptor
	method string
	toks   []token
	fields []fieldPattern // longest first
	best   *ParseError    // furthest failure seen while backtracking
}

func newParser(d *entity.Descriptor, method string, toks []token) *parser {
	p := &parser{desc: d, method: method, toks: toks}
	for _, f := range d.Fields() {
		words := make([]string, 0, 2)
		for _, t := range tokenize(f.Token(), 0) {
			words = append(words, t.text)
		}
		p.fields = append(p.fields, fieldPattern{name: f.Name, words: words})
	}
	// stable: equal lengths keep declaration order
	for i := 1; i < len(p.fields); i++ {
		for j := i; j > 0 && len(p.fields[j].words) > len(p.fields[j-1].words); j-- {
			p.fields[j], p.fields[j-1] = p.fields[j-1], p.fields[j]
		}
	}
	return p
}

func (p *parser) match(i int, words []string) bool {
	if i+len(words) > len(p.toks) {
		return false
	}
	for k, w := range words {
		if p.toks[i+k].text != w {
			return false
		}
	}
	return true
}

func (p *parser) fieldsAt(i int) []fieldPattern {
	var out []fieldPattern
	for _, f := range p.fields {
		if p.match(i, f.words) {
			out = append(out, f)
		}
	}
	return out
}

// fail records a failure at token i unless an earlier alternative already
// got further into the name.
func (p *parser) fail(kind ErrorKind, i int, msg string) {
	tok, off := "", len(p.method)
	if i < len(p.toks) {
		tok, off = p.toks[i].text, p.toks[i].offset
	}
	if p.best != nil && p.best.Offset >= off {
		return
	}
	p.best = &ParseError{Kind: kind, Entity: p.desc.Name(), Method: p.method, Token: tok, Offset: off, Message: msg}
}

// predicate parses Clause (Connective Clause)* OrderClause? from token i to
// the end of the name.
func (p *parser) predicate(i int) (*parsed, bool) {
	if i >= len(p.toks) {
		p.fail(KindMalformedName, i, "expected a field")
		return nil, false
	}

	candidates := p.fieldsAt(i)
	if len(candidates) == 0 {
		p.fail(KindUnknownField, i, fmt.Sprintf("no field of %s matches", p.desc.Name()))
		return nil, false
	}

	for _, f := range candidates {
		j := i + len(f.words)
		for _, op := range operatorPatterns {
			if !p.match(j, op.words) {
				continue
			}
			rest, ok := p.afterClause(j + len(op.words))
			if !ok {
				continue
			}
			rest.clauses = append([]clause{{field: f.name, op: op.op}}, rest.clauses...)
			return rest, true
		}
	}
	return nil, false
}

// afterClause parses what may follow a complete clause at token k.
func (p *parser) afterClause(k int) (*parsed, bool) {
	if k == len(p.toks) {
		return &parsed{}, true
	}

	for _, conn := range []queryir.Connective{queryir.And, queryir.Or} {
		if p.toks[k].text != string(conn) {
			continue
		}
		if k+1 == len(p.toks) {
			p.fail(KindMalformedName, k, "connective without a following clause")
			return nil, false
		}
		rest, ok := p.predicate(k + 1)
		if !ok {
			return nil, false
		}
		rest.conns = append([]queryir.Connective{conn}, rest.conns...)
		return rest, true
	}

	if p.match(k, orderByWords) {
		order, ok := p.orderClause(k + len(orderByWords))
		if !ok {
			return nil, false
		}
		return &parsed{order: order}, true
	}

	p.fail(KindUnknownOperator, k, "expected an operator, And, Or or OrderBy")
	return nil, false
}

// orderClause parses (Field Direction?)+ from token i to the end of the name.
func (p *parser) orderClause(i int) ([]queryir.Order, bool) {
	if i >= len(p.toks) {
		p.fail(KindMalformedName, i, "OrderBy requires at least one field")
		return nil, false
	}

	candidates := p.fieldsAt(i)
	if len(candidates) == 0 {
		p.fail(KindUnknownField, i, fmt.Sprintf("no field of %s matches", p.desc.Name()))
		return nil, false
	}

	for _, f := range candidates {
		j := i + len(f.words)
		type dirPattern struct {
			dir   queryir.Direction
			words []string
		}
		for _, d := range []dirPattern{{queryir.Desc, descWords}, {queryir.Asc, ascWords}, {queryir.Asc, nil}} {
			if !p.match(j, d.words) {
				continue
			}
			k := j + len(d.words)
			key := queryir.Order{Field: f.name, Direction: d.dir}
			if k == len(p.toks) {
				return []queryir.Order{key}, true
			}
			if rest, ok := p.orderClause(k); ok {
				return append([]queryir.Order{key}, rest...), true
			}
		}
	}
	return nil, false
}
