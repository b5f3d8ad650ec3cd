package gormstore

import (
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/queryir"
	"github.com/roach88/derive/internal/querysql"
)

// expression converts a bound filter into a gorm clause expression. Every
// junction becomes a two-operand AND/OR group, which gorm parenthesizes.
func expression(d *entity.Descriptor, dialect querysql.Dialect, f queryir.Filter) (clause.Expression, error) {
	switch n := f.(type) {
	case queryir.Condition:
		return condition(d, dialect, n)
	case queryir.Junction:
		if n.Left == nil || n.Right == nil {
			return nil, fmt.Errorf("%s with missing operand", n.Connective)
		}
		left, err := expression(d, dialect, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := expression(d, dialect, n.Right)
		if err != nil {
			return nil, err
		}
		switch n.Connective {
		case queryir.And:
			return clause.AndConditions{Exprs: []clause.Expression{left, right}}, nil
		case queryir.Or:
			return clause.OrConditions{Exprs: []clause.Expression{left, right}}, nil
		}
		return nil, fmt.Errorf("unknown connective %q", n.Connective)
	}
	return nil, fmt.Errorf("unsupported filter type: %T", f)
}

func condition(d *entity.Descriptor, dialect querysql.Dialect, c queryir.Condition) (clause.Expression, error) {
	f, ok := d.Field(c.Field)
	if !ok {
		return nil, fmt.Errorf("entity %s has no field %q", d.Name(), c.Field)
	}
	col := clause.Column{Name: f.Column}
	v := dialect.Param(c.Value)

	switch c.Op {
	case queryir.OpEquals:
		// a nil value renders IS NULL
		return clause.Eq{Column: col, Value: v}, nil
	case queryir.OpLessThan:
		return clause.Lt{Column: col, Value: v}, nil
	case queryir.OpGreaterThan:
		return clause.Gt{Column: col, Value: v}, nil
	case queryir.OpLike:
		op, pattern := dialect.Like(c.Value)
		if op != "LIKE" {
			return clause.Expr{SQL: "? " + op + " ?", Vars: []any{col, pattern}}, nil
		}
		return clause.Like{Column: col, Value: pattern}, nil
	case queryir.OpIsNull:
		return clause.Eq{Column: col, Value: nil}, nil
	case queryir.OpIsNotNull:
		return clause.Neq{Column: col, Value: nil}, nil
	case queryir.OpIn:
		list, ok := c.Value.([]any)
		if !ok {
			return nil, fmt.Errorf("In on %q needs a list value, got %T", f.Name, c.Value)
		}
		if len(list) == 0 {
			return clause.Expr{SQL: "1 = 0"}, nil
		}
		values := make([]any, len(list))
		for i, el := range list {
			values[i] = dialect.Param(el)
		}
		return clause.IN{Column: col, Values: values}, nil
	}
	return nil, fmt.Errorf("unsupported operator %q", c.Op)
}

// orderBy builds the sort keys plus the identifier tiebreaker. Textual
// columns carry the dialect's binary collation.
func orderBy(d *entity.Descriptor, dialect querysql.Dialect, order []queryir.Order) (clause.OrderBy, error) {
	idField := d.ID()
	var cols []clause.OrderByColumn
	seenID := false

	add := func(f entity.Field, desc bool) {
		col := clause.Column{Name: f.Column}
		if f.Type.Textual() && dialect.Collation != "" {
			col = clause.Column{Name: querysql.Quote(f.Column) + " COLLATE " + dialect.Collation, Raw: true}
		}
		// gorm writes DESC after the column, so a NULLS suffix needs the
		// whole term raw.
		if nulls := dialect.Nulls(f, desc); nulls != "" {
			term := querysql.Quote(f.Column)
			if col.Raw {
				term = col.Name
			}
			dir := " ASC"
			if desc {
				dir = " DESC"
			}
			col, desc = clause.Column{Name: term + dir + nulls, Raw: true}, false
		}
		cols = append(cols, clause.OrderByColumn{Column: col, Desc: desc})
	}

	for _, o := range order {
		f, ok := d.Field(o.Field)
		if !ok {
			return clause.OrderBy{}, fmt.Errorf("order by: entity %s has no field %q", d.Name(), o.Field)
		}
		add(f, o.Direction == queryir.Desc)
		seenID = seenID || f.Name == idField.Name
	}
	if !seenID {
		add(idField, false)
	}
	return clause.OrderBy{Columns: cols}, nil
}

// selectColumns lists every column of d in d.Fields() order.
func selectColumns(d *entity.Descriptor) clause.Select {
	fields := d.Fields()
	cols := make([]clause.Column, len(fields))
	for i, f := range fields {
		cols[i] = clause.Column{Name: f.Column}
	}
	return clause.Select{Columns: cols}
}
