package querysql

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/queryir"
)

// SQLCompiler compiles bound filters and CRUD operations on an entity to
// parameterized SQL.
//
// CRITICAL: every SELECT ends with ORDER BY on the identifier as tiebreaker,
// so results are deterministic across backends.
// CRITICAL: values are always parameters (?), never interpolated. The only
// literals in generated SQL are enum members in CREATE TABLE checks.
type SQLCompiler struct {
	Dialect Dialect
}

// NewSQLCompiler creates a compiler for the given dialect.
func NewSQLCompiler(dialect Dialect) *SQLCompiler {
	return &SQLCompiler{Dialect: dialect}
}

// Select compiles a filtered, ordered, limited read of every field of d.
// Columns come back in d.Fields() order.
func (c *SQLCompiler) Select(d *entity.Descriptor, filter queryir.Filter, order []queryir.Order, limit int) (string, []any, error) {
	where, params, err := c.Where(d, filter)
	if err != nil {
		return "", nil, err
	}
	orderBy, err := c.OrderBy(d, order)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s", c.columnList(d), Quote(d.Table()), where, orderBy)
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}
	return sql, params, nil
}

// Count compiles SELECT COUNT(*) over the rows matching filter.
func (c *SQLCompiler) Count(d *entity.Descriptor, filter queryir.Filter) (string, []any, error) {
	where, params, err := c.Where(d, filter)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", Quote(d.Table()), where), params, nil
}

// DeleteWhere compiles a DELETE of the rows matching filter.
func (c *SQLCompiler) DeleteWhere(d *entity.Descriptor, filter queryir.Filter) (string, []any, error) {
	where, params, err := c.Where(d, filter)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("DELETE FROM %s%s", Quote(d.Table()), where), params, nil
}

// Get compiles a read of one row by identifier.
func (c *SQLCompiler) Get(d *entity.Descriptor, id any) (string, []any) {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", c.columnList(d), Quote(d.Table()), Quote(d.ID().Column)),
		[]any{c.Dialect.Param(id)}
}

// Delete compiles a delete of one row by identifier.
func (c *SQLCompiler) Delete(d *entity.Descriptor, id any) (string, []any) {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = ?", Quote(d.Table()), Quote(d.ID().Column)),
		[]any{c.Dialect.Param(id)}
}

// Upsert compiles an insert-or-replace of row that returns the stored
// identifier. A zero identifier is left out of the column list so the
// database assigns one; that statement is a plain INSERT, so an assigned
// identifier that is already taken fails instead of replacing the row.
func (c *SQLCompiler) Upsert(d *entity.Descriptor, row entity.Row) (string, []any) {
	idField := d.ID()
	assigned := entity.IsZeroID(row[idField.Name])

	var (
		cols    []string
		holders []string
		updates []string
		params  []any
	)
	for _, f := range d.Fields() {
		v := row[f.Name]
		if f.Name == idField.Name && entity.IsZeroID(v) {
			continue
		}
		col := Quote(f.Column)
		cols = append(cols, col)
		holders = append(holders, "?")
		params = append(params, c.Dialect.Param(v))
		if f.Name != idField.Name {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}

	idCol := Quote(idField.Column)
	if assigned {
		if len(cols) == 0 {
			return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", Quote(d.Table()), idCol), nil
		}
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			Quote(d.Table()),
			strings.Join(cols, ", "),
			strings.Join(holders, ", "),
			idCol), params
	}
	if len(updates) == 0 {
		updates = []string{fmt.Sprintf("%s = excluded.%s", idCol, idCol)}
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING %s",
		Quote(d.Table()),
		strings.Join(cols, ", "),
		strings.Join(holders, ", "),
		idCol,
		strings.Join(updates, ", "),
		idCol)
	return sql, params
}

// SyncIdentity compiles the statement that moves a database-side identity
// sequence past the largest stored identifier, or returns "" when the
// dialect needs none. Run it after writing an explicit number identifier.
func (c *SQLCompiler) SyncIdentity(d *entity.Descriptor) string {
	idField := d.ID()
	if !c.Dialect.identitySequence || idField.Type != entity.TypeNumber {
		return ""
	}
	table := strings.ReplaceAll(Quote(d.Table()), "'", "''")
	column := strings.ReplaceAll(idField.Column, "'", "''")
	return fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', '%s'), (SELECT COALESCE(MAX(%s), 1) FROM %s))",
		table, column, Quote(idField.Column), Quote(d.Table()))
}

// CreateTable compiles the DDL for d.
func (c *SQLCompiler) CreateTable(d *entity.Descriptor) string {
	idField := d.ID()
	defs := make([]string, 0, len(d.Fields()))
	for _, f := range d.Fields() {
		col := Quote(f.Column)
		if f.Name == idField.Name {
			defs = append(defs, col+" "+c.Dialect.IDColumnType(f.Type))
			continue
		}
		def := col + " " + c.Dialect.ColumnType(f.Type)
		if !f.Nullable {
			def += " NOT NULL"
		}
		if f.Type == entity.TypeEnum {
			members := make([]string, len(f.Enum))
			for i, m := range f.Enum {
				members[i] = "'" + strings.ReplaceAll(m, "'", "''") + "'"
			}
			def += fmt.Sprintf(" CHECK (%s IN (%s))", col, strings.Join(members, ", "))
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", Quote(d.Table()), strings.Join(defs, ",\n\t"))
}

// Where compiles filter to a " WHERE ..." fragment, empty for a nil filter.
func (c *SQLCompiler) Where(d *entity.Descriptor, filter queryir.Filter) (string, []any, error) {
	if filter == nil {
		return "", nil, nil
	}
	sql, params, err := c.compileFilter(d, filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return " WHERE " + sql, params, nil
}

// OrderBy compiles sort keys followed by the identifier tiebreaker.
// MANDATORY: every SELECT calls this.
func (c *SQLCompiler) OrderBy(d *entity.Descriptor, order []queryir.Order) (string, error) {
	idField := d.ID()
	parts := make([]string, 0, len(order)+1)
	seenID := false
	for _, o := range order {
		f, ok := d.Field(o.Field)
		if !ok {
			return "", fmt.Errorf("order by: entity %s has no field %q", d.Name(), o.Field)
		}
		dir := "ASC"
		if o.Direction == queryir.Desc {
			dir = "DESC"
		}
		parts = append(parts, c.orderTerm(f, dir))
		seenID = seenID || f.Name == idField.Name
	}
	if !seenID {
		parts = append(parts, c.orderTerm(idField, "ASC"))
	}
	return strings.Join(parts, ", "), nil
}

func (c *SQLCompiler) orderTerm(f entity.Field, dir string) string {
	term := Quote(f.Column)
	if f.Type.Textual() && c.Dialect.Collation != "" {
		term += " COLLATE " + c.Dialect.Collation
	}
	return term + " " + dir + c.Dialect.Nulls(f, dir == "DESC")
}

func (c *SQLCompiler) columnList(d *entity.Descriptor) string {
	cols := make([]string, 0, len(d.Fields()))
	for _, f := range d.Fields() {
		cols = append(cols, Quote(f.Column))
	}
	return strings.Join(cols, ", ")
}

// compileFilter renders a filter tree. Every junction is parenthesized, so
// the SQL grouping is exactly the tree's grouping.
func (c *SQLCompiler) compileFilter(d *entity.Descriptor, filter queryir.Filter) (string, []any, error) {
	switch n := filter.(type) {
	case queryir.Condition:
		return c.compileCondition(d, n)
	case queryir.Junction:
		if n.Left == nil || n.Right == nil {
			return "", nil, fmt.Errorf("%s with missing operand", n.Connective)
		}
		left, lp, err := c.compileFilter(d, n.Left)
		if err != nil {
			return "", nil, err
		}
		right, rp, err := c.compileFilter(d, n.Right)
		if err != nil {
			return "", nil, err
		}
		var conn string
		switch n.Connective {
		case queryir.And:
			conn = "AND"
		case queryir.Or:
			conn = "OR"
		default:
			return "", nil, fmt.Errorf("unknown connective %q", n.Connective)
		}
		return fmt.Sprintf("(%s %s %s)", left, conn, right), append(lp, rp...), nil
	default:
		return "", nil, fmt.Errorf("unsupported filter type: %T", filter)
	}
}

func (c *SQLCompiler) compileCondition(d *entity.Descriptor, cond queryir.Condition) (string, []any, error) {
	f, ok := d.Field(cond.Field)
	if !ok {
		return "", nil, fmt.Errorf("entity %s has no field %q", d.Name(), cond.Field)
	}
	col := Quote(f.Column)

	switch cond.Op {
	case queryir.OpEquals:
		if cond.Value == nil {
			return col + " IS NULL", nil, nil
		}
		return col + " = ?", []any{c.Dialect.Param(cond.Value)}, nil
	case queryir.OpLessThan:
		return col + " < ?", []any{c.Dialect.Param(cond.Value)}, nil
	case queryir.OpGreaterThan:
		return col + " > ?", []any{c.Dialect.Param(cond.Value)}, nil
	case queryir.OpLike:
		op, pattern := c.Dialect.Like(cond.Value)
		return col + " " + op + " ?", []any{pattern}, nil
	case queryir.OpIsNull:
		return col + " IS NULL", nil, nil
	case queryir.OpIsNotNull:
		return col + " IS NOT NULL", nil, nil
	case queryir.OpIn:
		list, ok := cond.Value.([]any)
		if !ok {
			return "", nil, fmt.Errorf("In on %q needs a list value, got %T", f.Name, cond.Value)
		}
		if len(list) == 0 {
			return "1 = 0", nil, nil
		}
		holders := make([]string, len(list))
		params := make([]any, len(list))
		for i, v := range list {
			holders[i] = "?"
			params[i] = c.Dialect.Param(v)
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(holders, ", ")), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported operator %q", cond.Op)
	}
}

// Quote quotes an identifier with double quotes.
func Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// DateLayout is the fixed-width text form dates are stored in on SQLite.
// Fixed width keeps text comparison in date order.
const DateLayout = "2006-01-02T15:04:05.000000000Z"

// Dialect captures the differences between the supported databases.
type Dialect struct {
	// Name identifies the dialect ("sqlite", "postgres").
	Name string

	// Collation applied to textual ORDER BY terms, empty for none.
	Collation string

	// columnTypes maps semantic types to column types.
	columnTypes map[entity.SemanticType]string

	// idTypes maps identifier semantic types to column definitions.
	idTypes map[entity.SemanticType]string

	// datesAsText stores dates as DateLayout text.
	datesAsText bool

	// explicitNulls spells out NULL placement, for databases that sort
	// NULLs last in ascending order.
	explicitNulls bool

	// globLike matches Like patterns with GLOB, which is case-sensitive
	// whatever the connection's settings.
	globLike bool

	// identitySequence means explicit identifiers do not advance the
	// generator, see SyncIdentity.
	identitySequence bool
}

var (
	// SQLite stores dates as fixed-width UTC text and booleans as integers.
	SQLite = Dialect{
		Name:      "sqlite",
		Collation: "BINARY",
		columnTypes: map[entity.SemanticType]string{
			entity.TypeString:  "TEXT",
			entity.TypeEnum:    "TEXT",
			entity.TypeNumber:  "NUMERIC",
			entity.TypeBoolean: "INTEGER",
			entity.TypeDate:    "TEXT",
		},
		idTypes: map[entity.SemanticType]string{
			entity.TypeNumber: "INTEGER PRIMARY KEY AUTOINCREMENT",
			entity.TypeString: "TEXT PRIMARY KEY",
		},
		datesAsText: true,
		globLike:    true,
	}

	// Postgres stores number fields as double precision.
	Postgres = Dialect{
		Name:      "postgres",
		Collation: `"C"`,
		columnTypes: map[entity.SemanticType]string{
			entity.TypeString:  "TEXT",
			entity.TypeEnum:    "TEXT",
			entity.TypeNumber:  "DOUBLE PRECISION",
			entity.TypeBoolean: "BOOLEAN",
			entity.TypeDate:    "TIMESTAMPTZ",
		},
		idTypes: map[entity.SemanticType]string{
			entity.TypeNumber: "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY",
			entity.TypeString: "TEXT PRIMARY KEY",
		},
		explicitNulls:    true,
		identitySequence: true,
	}
)

// DialectByName returns the dialect called name.
func DialectByName(name string) (Dialect, error) {
	switch name {
	case SQLite.Name:
		return SQLite, nil
	case Postgres.Name:
		return Postgres, nil
	}
	return Dialect{}, fmt.Errorf("unknown SQL dialect %q", name)
}

// ColumnType returns the column type for a non-identifier field.
func (d Dialect) ColumnType(t entity.SemanticType) string {
	return d.columnTypes[t]
}

// IDColumnType returns the column definition for the identifier.
func (d Dialect) IDColumnType(t entity.SemanticType) string {
	return d.idTypes[t]
}

// Nulls returns the NULLS FIRST/LAST suffix that keeps NULLs first in
// ascending order for a nullable field, or "" when the database already
// sorts them that way.
func (d Dialect) Nulls(f entity.Field, desc bool) string {
	if !d.explicitNulls || !f.Nullable {
		return ""
	}
	if desc {
		return " NULLS LAST"
	}
	return " NULLS FIRST"
}

// Like returns the operator and parameter for a Like pattern, where %
// matches any run of characters and _ matches one.
func (d Dialect) Like(pattern any) (string, any) {
	s, ok := pattern.(string)
	if !d.globLike || !ok {
		return "LIKE", pattern
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '%':
			b.WriteByte('*')
		case '_':
			b.WriteByte('?')
		case '*', '?', '[':
			b.WriteString("[" + string(r) + "]")
		default:
			b.WriteRune(r)
		}
	}
	return "GLOB", b.String()
}

// Param converts a canonical value to the driver parameter for it.
func (d Dialect) Param(v any) any {
	if t, ok := v.(time.Time); ok && d.datesAsText {
		return t.UTC().Format(DateLayout)
	}
	return v
}
