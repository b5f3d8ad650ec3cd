package compiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/methodname"
	"github.com/roach88/derive/internal/queryir"
)

var userDesc = entity.MustDescriptor("User", "id", []entity.Field{
	{Name: "id", Type: entity.TypeNumber},
	{Name: "email", Type: entity.TypeString},
	{Name: "status", Type: entity.TypeEnum, Enum: []string{"active", "disabled"}},
	{Name: "name", Type: entity.TypeString, Nullable: true},
	{Name: "verified", Type: entity.TypeBoolean},
	{Name: "createdAt", Type: entity.TypeDate},
})

func mustParse(t *testing.T, name string) *methodname.Method {
	t.Helper()
	m, err := methodname.Parse(name, userDesc)
	require.NoError(t, err)
	return m
}

func TestCompile_FindByEmail(t *testing.T) {
	q, err := Compile(mustParse(t, "findByEmail"), userDesc, []any{"a@b.com"})
	require.NoError(t, err)

	assert.Equal(t, "User", q.Entity)
	assert.Equal(t, queryir.Comparison{Field: "email", Op: queryir.OpEquals, ArgIndex: 0}, q.Predicate)
	assert.Equal(t, []any{"a@b.com"}, q.Args)
}

func TestCompile_MirrorsClauseOrder(t *testing.T) {
	q, err := Compile(mustParse(t, "findByStatusAndEmail"), userDesc, []any{"active", "a@b.com"})
	require.NoError(t, err)

	assert.Equal(t, queryir.Logical{
		Connective: queryir.And,
		Left:       queryir.Comparison{Field: "status", Op: queryir.OpEquals, ArgIndex: 0},
		Right:      queryir.Comparison{Field: "email", Op: queryir.OpEquals, ArgIndex: 1},
	}, q.Predicate)
	assert.Equal(t, []any{"active", "a@b.com"}, q.Args)
}

func TestCompile_CarriesModifiers(t *testing.T) {
	q, err := Compile(mustParse(t, "findTop2ByVerifiedOrderByCreatedAtDesc"), userDesc, []any{true})
	require.NoError(t, err)

	assert.Equal(t, 2, q.Limit)
	assert.Equal(t, []queryir.Order{{Field: "createdAt", Direction: queryir.Desc}}, q.OrderBy)
}

func TestCompile_CoercesArguments(t *testing.T) {
	type Status string
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name   string
		method string
		args   []any
		want   []any
	}{
		{"int to int64", "findById", []any{7}, []any{int64(7)}},
		{"named string to enum", "findByStatus", []any{Status("active")}, []any{"active"}},
		{"date to utc", "findByCreatedAtGreaterThan", []any{stamp}, []any{stamp.UTC()}},
		{"in list", "findByStatusIn", []any{[]string{"active", "disabled"}}, []any{[]any{"active", "disabled"}}},
		{"like pattern on enum", "findByStatusLike", []any{"act%"}, []any{"act%"}},
		{"nil equals on nullable", "findByName", []any{nil}, []any{nil}},
		{"null check binds nothing", "findByNameIsNullAndEmail", []any{"x"}, []any{"x"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Compile(mustParse(t, tc.method), userDesc, tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.want, q.Args)
		})
	}
}

func TestCompile_ArgumentCountMismatch(t *testing.T) {
	_, err := Compile(mustParse(t, "findByEmailAndStatus"), userDesc, []any{"a@b.com"})
	require.Error(t, err)

	assert.True(t, IsArgumentCountMismatch(err))
	assert.False(t, IsTypeMismatch(err))
	assert.Contains(t, err.Error(), "expected 2 arguments, got 1")
}

func TestCompile_TypeMismatch(t *testing.T) {
	tests := []struct {
		name   string
		method string
		args   []any
		field  string
	}{
		{"string for number", "findById", []any{"seven"}, "id"},
		{"unknown enum member", "findByStatus", []any{"banned"}, "status"},
		{"nil on non-nullable", "findByEmail", []any{nil}, "email"},
		{"nil with operator", "findByNameLike", []any{nil}, "name"},
		{"like on boolean", "findByVerifiedLike", []any{"t%"}, "verified"},
		{"like with number", "findByEmailLike", []any{3}, "email"},
		{"less than on boolean", "findByVerifiedLessThan", []any{true}, "verified"},
		{"in without slice", "findByStatusIn", []any{"active"}, "status"},
		{"in with bad element", "findByStatusIn", []any{[]string{"active", "banned"}}, "status"},
		{"bool for date", "findByCreatedAt", []any{false}, "createdAt"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(mustParse(t, tc.method), userDesc, tc.args)
			require.Error(t, err)
			assert.True(t, IsTypeMismatch(err))

			var be *BindError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tc.field, be.Field)
			assert.Equal(t, 0, be.ArgIndex)
		})
	}
}

func TestCompile_TypeMismatchUnwraps(t *testing.T) {
	_, err := Compile(mustParse(t, "findByEmail"), userDesc, []any{nil})
	assert.ErrorIs(t, err, entity.ErrNull)

	_, err = Compile(mustParse(t, "findById"), userDesc, []any{"seven"})
	assert.ErrorIs(t, err, entity.ErrIncompatible)
}

func TestCompile_WrongEntity(t *testing.T) {
	other := entity.MustDescriptor("Order", "id", []entity.Field{
		{Name: "id", Type: entity.TypeNumber},
		{Name: "email", Type: entity.TypeString},
	})
	_, err := Compile(mustParse(t, "findByEmail"), other, []any{"a@b.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not Order")
}

func TestCompile_RejectsMalformedTree(t *testing.T) {
	tests := []struct {
		name string
		pred queryir.Predicate
		want string
	}{
		{"unknown field", queryir.Comparison{Field: "phone", Op: queryir.OpEquals, ArgIndex: 0}, `no field "phone"`},
		{"index gap", queryir.Comparison{Field: "email", Op: queryir.OpEquals, ArgIndex: 1}, "index 0 is unused"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := &methodname.Method{Name: "findByX", Entity: "User", Action: methodname.ActionFind, Predicate: tc.pred, ArgCount: 1}

			_, err := Compile(m, userDesc, []any{"a@b.com"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)

			err = CheckSignature(m, userDesc, []ArgType{{Type: entity.TypeString}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

// The expected arity comes from the tree, not from the parser's count.
func TestCompile_ArityFromPredicate(t *testing.T) {
	m := *mustParse(t, "findByEmailAndStatus")
	m.ArgCount = 1

	_, err := Compile(&m, userDesc, []any{"a@b.com"})
	assert.True(t, IsArgumentCountMismatch(err))
}
