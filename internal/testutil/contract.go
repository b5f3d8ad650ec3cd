package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/derive/internal/compiler"
	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/executor"
	"github.com/roach88/derive/internal/methodname"
	"github.com/roach88/derive/internal/queryir"
)

// OpenBackend returns a fresh, empty backend for one subtest.
type OpenBackend func(t *testing.T) executor.Backend

// SeedUsers saves UserRows into b and returns the stored rows in
// canonical form.
func SeedUsers(t *testing.T, b executor.Backend) []entity.Row {
	t.Helper()
	d := UserDescriptor()

	var stored []entity.Row
	for _, row := range UserRows() {
		out, err := b.Upsert(context.Background(), d, row)
		require.NoError(t, err)
		stored = append(stored, out)
	}
	rows, err := executor.Materialize(stored, d)
	require.NoError(t, err)
	return rows
}

// RunBackendContract runs the behavioral contract every backend must pass.
func RunBackendContract(t *testing.T, open OpenBackend) {
	t.Run("upsert assigns sequential number ids", func(t *testing.T) {
		rows := SeedUsers(t, open(t))
		for i, row := range rows {
			assert.Equal(t, int64(i+1), row["id"])
		}
	})

	t.Run("upsert assigns uuid string ids", func(t *testing.T) {
		b := open(t)
		d := AccountDescriptor()

		out, err := b.Upsert(context.Background(), d, entity.Row{"owner": "alice", "balance": int64(10)})
		require.NoError(t, err)

		id, err := uuid.Parse(out["id"].(string))
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), id.Version())
	})

	t.Run("get round-trips every field", func(t *testing.T) {
		b := open(t)
		d := UserDescriptor()
		seeded := SeedUsers(t, b)

		for _, want := range seeded {
			got, ok, err := b.Get(context.Background(), d, want["id"])
			require.NoError(t, err)
			require.True(t, ok)

			canonical, err := executor.Materialize([]entity.Row{got}, d)
			require.NoError(t, err)
			assert.Equal(t, want, canonical[0])
		}
	})

	t.Run("get missing row", func(t *testing.T) {
		b := open(t)
		SeedUsers(t, b)

		row, ok, err := b.Get(context.Background(), UserDescriptor(), int64(99))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, row)
	})

	t.Run("upsert replaces existing row", func(t *testing.T) {
		b := open(t)
		d := UserDescriptor()
		seeded := SeedUsers(t, b)

		changed := seeded[1].Clone()
		changed["name"] = "Bobby"
		changed["status"] = "disabled"
		_, err := b.Upsert(context.Background(), d, changed)
		require.NoError(t, err)

		got, ok, err := b.Get(context.Background(), d, int64(2))
		require.NoError(t, err)
		require.True(t, ok)
		canonical, err := executor.Materialize([]entity.Row{got}, d)
		require.NoError(t, err)
		assert.Equal(t, changed, canonical[0])

		all, err := b.Scan(context.Background(), d, nil, nil, 0)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("explicit id keeps autoincrement ahead", func(t *testing.T) {
		b := open(t)
		d := UserDescriptor()

		row := UserRows()[0]
		row["id"] = int64(10)
		_, err := b.Upsert(context.Background(), d, row)
		require.NoError(t, err)

		out, err := b.Upsert(context.Background(), d, UserRows()[1])
		require.NoError(t, err)
		canonical, err := executor.Materialize([]entity.Row{out}, d)
		require.NoError(t, err)
		assert.Equal(t, int64(11), canonical[0]["id"])
	})

	t.Run("whole float id is a number id", func(t *testing.T) {
		b := open(t)
		d := UserDescriptor()

		row := UserRows()[0]
		row["id"] = float64(2)
		_, err := b.Upsert(context.Background(), d, row)
		require.NoError(t, err)

		var assigned []int64
		for _, next := range UserRows()[1:3] {
			out, err := b.Upsert(context.Background(), d, next)
			require.NoError(t, err)
			canonical, err := executor.Materialize([]entity.Row{out}, d)
			require.NoError(t, err)
			assigned = append(assigned, canonical[0]["id"].(int64))
		}
		assert.Equal(t, []int64{3, 4}, assigned)

		got, ok, err := b.Get(context.Background(), d, int64(2))
		require.NoError(t, err)
		require.True(t, ok)
		stored, err := executor.Materialize([]entity.Row{got}, d)
		require.NoError(t, err)
		assert.Equal(t, "alice@x.com", stored[0]["email"])

		all, err := b.Scan(context.Background(), d, nil, nil, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("strings keep their bytes", func(t *testing.T) {
		b := open(t)
		d := UserDescriptor()

		// "e" followed by a combining acute accent
		decomposed := "jose\u0301@x.com"
		row := UserRows()[0]
		row["email"] = decomposed
		out, err := b.Upsert(context.Background(), d, row)
		require.NoError(t, err)
		canonical, err := executor.Materialize([]entity.Row{out}, d)
		require.NoError(t, err)

		got, ok, err := b.Get(context.Background(), d, canonical[0]["id"])
		require.NoError(t, err)
		require.True(t, ok)
		stored, err := executor.Materialize([]entity.Row{got}, d)
		require.NoError(t, err)
		assert.Equal(t, []byte(decomposed), []byte(stored[0]["email"].(string)))
	})

	t.Run("delete reports existence", func(t *testing.T) {
		b := open(t)
		d := UserDescriptor()
		SeedUsers(t, b)

		ok, err := b.Delete(context.Background(), d, int64(3))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = b.Delete(context.Background(), d, int64(3))
		require.NoError(t, err)
		assert.False(t, ok)

		_, found, err := b.Get(context.Background(), d, int64(3))
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("scan on empty table", func(t *testing.T) {
		rows, err := open(t).Scan(context.Background(), UserDescriptor(), nil, nil, 0)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("derived filters", func(t *testing.T) {
		b := open(t)
		SeedUsers(t, b)
		for _, tc := range derivedCases {
			t.Run(tc.method, func(t *testing.T) {
				rows := runDerived(t, b, tc.method, tc.args...)
				assert.Equal(t, tc.ids, ids(rows))
			})
		}
	})

	t.Run("count", func(t *testing.T) {
		b := open(t)
		SeedUsers(t, b)
		ex := executor.New(b, nil)
		d := UserDescriptor()

		n, err := ex.Count(context.Background(), d, compile(t, "countByStatus", "active"))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = ex.Count(context.Background(), d, compile(t, "count"))
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})

	t.Run("delete by filter", func(t *testing.T) {
		b := open(t)
		SeedUsers(t, b)
		ex := executor.New(b, nil)
		d := UserDescriptor()

		n, err := ex.Delete(context.Background(), d, compile(t, "deleteByNameIsNull"))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		rows := runDerived(t, b, "findAll")
		assert.Equal(t, []int64{1, 3}, ids(rows))
	})

	t.Run("cancelled context", func(t *testing.T) {
		b := open(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := b.Scan(ctx, UserDescriptor(), nil, nil, 0)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type derivedCase struct {
	method string
	args   []any
	ids    []int64
}

var derivedCases = []derivedCase{
	{"findByEmail", []any{"alice@x.com"}, []int64{1}},
	{"findByEmail", []any{"nobody@x.com"}, nil},
	{"findByStatusAndEmail", []any{"active", "bob@y.com"}, []int64{2}},
	// (email = alice OR status = disabled) AND age = 19
	{"findByEmailOrStatusAndAge", []any{"alice@x.com", "disabled", 19}, []int64{4}},
	{"findByNameIsNull", nil, []int64{2, 4}},
	{"findByNameIsNotNull", nil, []int64{1, 3}},
	{"findByName", []any{nil}, []int64{2, 4}},
	{"findByAgeGreaterThan", []any{30}, []int64{1, 3}},
	{"findByAgeLessThan", []any{25}, []int64{4}},
	{"findByEmailLike", []any{"%@y.com"}, []int64{2, 3}},
	{"findByEmailLike", []any{"_ob%"}, []int64{2}},
	{"findByEmailLike", []any{"ALICE%"}, nil},
	{"findByStatusIn", []any{[]string{"disabled"}}, []int64{3, 4}},
	{"findByStatusIn", []any{[]string{}}, nil},
	{"findByVerified", []any{true}, []int64{1, 3}},
	{"findByCreatedAtGreaterThan", []any{Epoch.Add(2 * time.Minute)}, []int64{3, 4}},
	{"findByOrderByAgeDesc", nil, []int64{3, 1, 2, 4}},
	{"findByStatusOrderByEmailDesc", []any{"disabled"}, []int64{4, 3}},
	{"findByOrderByNameAsc", nil, []int64{2, 4, 1, 3}},
	{"findTop2ByOrderByCreatedAtDesc", nil, []int64{4, 3}},
	{"findFirstByStatus", []any{"disabled"}, []int64{3}},
	{"findAll", nil, []int64{1, 2, 3, 4}},
}

func compile(t *testing.T, method string, args ...any) *queryir.Query {
	t.Helper()
	d := UserDescriptor()
	m, err := methodname.Parse(method, d)
	require.NoError(t, err)
	q, err := compiler.Compile(m, d, args)
	require.NoError(t, err)
	return q
}

func runDerived(t *testing.T, b executor.Backend, method string, args ...any) []entity.Row {
	t.Helper()
	rows, err := executor.New(b, nil).Execute(context.Background(), UserDescriptor(), compile(t, method, args...))
	require.NoError(t, err)
	return rows
}

func ids(rows []entity.Row) []int64 {
	var out []int64
	for _, r := range rows {
		out = append(out, r["id"].(int64))
	}
	return out
}
