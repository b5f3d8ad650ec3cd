package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/derive/internal/compiler"
	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/memstore"
	"github.com/roach88/derive/internal/methodname"
)

func args(types ...entity.SemanticType) []compiler.ArgType {
	out := make([]compiler.ArgType, len(types))
	for i, t := range types {
		out[i] = compiler.ArgType{Type: t}
	}
	return out
}

func TestFindByEmail_SingleEntity(t *testing.T) {
	d := entity.MustDescriptor("User", "id", []entity.Field{
		{Name: "id", Type: entity.TypeNumber},
		{Name: "email", Type: entity.TypeString},
		{Name: "status", Type: entity.TypeString},
	})
	type plain struct {
		ID     int64
		Email  string
		Status string
	}
	mapper := entity.MapperFuncs[plain]{
		To: func(p plain) entity.Row {
			return entity.Row{"id": p.ID, "email": p.Email, "status": p.Status}
		},
		From: func(r entity.Row) (plain, error) {
			return plain{ID: r["id"].(int64), Email: r["email"].(string), Status: r["status"].(string)}, nil
		},
	}
	repo := New(d, mapper, memstore.New(), WithLogger(quietLogger()))
	ctx := context.Background()

	_, err := repo.Save(ctx, plain{ID: 1, Email: "a@b.com", Status: "active"})
	require.NoError(t, err)

	m, err := repo.Declare(Signature{Name: "findByEmail", Args: args(entity.TypeString)})
	require.NoError(t, err)
	assert.Equal(t, "find User WHERE Comparison{email, Equals, 0}", m.Parsed().String())

	found, err := m.Find(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, []plain{{ID: 1, Email: "a@b.com", Status: "active"}}, found)
}

func TestDeclare_Errors(t *testing.T) {
	repo := newSeededRepo(t)

	tests := []struct {
		name  string
		sig   Signature
		check func(t *testing.T, err error)
	}{
		{
			name: "unknown field",
			sig:  Signature{Name: "findByPhone", Args: args(entity.TypeString)},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, methodname.ErrUnknownField)
			},
		},
		{
			name: "malformed",
			sig:  Signature{Name: "fetchByEmail", Args: args(entity.TypeString)},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, methodname.ErrMalformedName)
			},
		},
		{
			name: "too few arguments",
			sig:  Signature{Name: "findByEmailAndStatus", Args: args(entity.TypeString)},
			check: func(t *testing.T, err error) {
				assert.True(t, compiler.IsArgumentCountMismatch(err), err)
			},
		},
		{
			name: "wrong type",
			sig:  Signature{Name: "findByAge", Args: args(entity.TypeString)},
			check: func(t *testing.T, err error) {
				assert.True(t, compiler.IsTypeMismatch(err), err)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := repo.Declare(tc.sig)
			require.Error(t, err)
			assert.Nil(t, m)
			tc.check(t, err)
		})
	}
}

func TestMethod_EntryPoints(t *testing.T) {
	repo := newSeededRepo(t)
	ctx := context.Background()

	find, err := repo.Declare(Signature{Name: "findByStatusOrderByAgeDesc", Args: args(entity.TypeEnum)})
	require.NoError(t, err)
	found, err := find.Find(ctx, "active")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@x.com", "bob@y.com"}, emails(found))

	first, ok, err := find.One(ctx, "disabled")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "carol@y.com", first.Email)

	_, ok, err = find.One(ctx, "active")
	require.NoError(t, err)
	assert.True(t, ok)

	exists, err := repo.Declare(Signature{Name: "existsByEmail", Args: args(entity.TypeString)})
	require.NoError(t, err)
	ok, err = exists.Exists(ctx, "dave@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = exists.Exists(ctx, "erin@z.com")
	require.NoError(t, err)
	assert.False(t, ok)

	count, err := repo.Declare(Signature{Name: "countByVerified", Args: args(entity.TypeBoolean)})
	require.NoError(t, err)
	n, err := count.Count(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	del, err := repo.Declare(Signature{Name: "deleteByAgeLessThan", Args: args(entity.TypeNumber)})
	require.NoError(t, err)
	n, err = del.Delete(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestMethod_OneWithoutMatch(t *testing.T) {
	repo := newSeededRepo(t)

	m, err := repo.Declare(Signature{Name: "findByEmail", Args: args(entity.TypeString)})
	require.NoError(t, err)

	got, ok, err := m.One(context.Background(), "nobody@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, user{}, got)
}

func TestMethod_ActionMismatch(t *testing.T) {
	repo := newSeededRepo(t)
	ctx := context.Background()

	count, err := repo.Declare(Signature{Name: "countByStatus", Args: args(entity.TypeEnum)})
	require.NoError(t, err)

	_, err = count.Find(ctx, "active")
	assert.ErrorIs(t, err, ErrActionMismatch)
	_, _, err = count.One(ctx, "active")
	assert.ErrorIs(t, err, ErrActionMismatch)
	_, err = count.Exists(ctx, "active")
	assert.ErrorIs(t, err, ErrActionMismatch)
	_, err = count.Delete(ctx, "active")
	assert.ErrorIs(t, err, ErrActionMismatch)

	// nothing was deleted
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestMethod_CallTimeBindErrors(t *testing.T) {
	repo := newSeededRepo(t)
	ctx := context.Background()

	m, err := repo.Declare(Signature{Name: "findByEmailAndStatus", Args: args(entity.TypeString, entity.TypeEnum)})
	require.NoError(t, err)

	_, err = m.Find(ctx, "alice@x.com")
	assert.True(t, compiler.IsArgumentCountMismatch(err), err)

	_, err = m.Find(ctx, "alice@x.com", "banned")
	assert.True(t, compiler.IsTypeMismatch(err), err)
}

func TestMethod_NullableEquals(t *testing.T) {
	repo := newSeededRepo(t)

	m, err := repo.Declare(Signature{Name: "findByName", Args: args(entity.TypeString)})
	require.NoError(t, err)

	found, err := m.Find(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob@y.com", "dave@x.com"}, emails(found))
}

func TestMethod_ConcurrentCalls(t *testing.T) {
	repo := newSeededRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := repo.Declare(Signature{Name: "findByEmailLike", Args: args(entity.TypeString)})
			if !assert.NoError(t, err) {
				return
			}
			found, err := m.Find(ctx, "%@y.com")
			assert.NoError(t, err)
			assert.Len(t, found, 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), repo.Cache().Parses())
}
