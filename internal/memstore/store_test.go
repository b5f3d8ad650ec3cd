package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/executor"
	"github.com/roach88/derive/internal/testutil"
)

func TestBackendContract(t *testing.T) {
	testutil.RunBackendContract(t, func(t *testing.T) executor.Backend {
		return New()
	})
}

func TestStore_RowsAreCopied(t *testing.T) {
	s := New()
	d := testutil.UserDescriptor()
	ctx := context.Background()

	in := testutil.UserRows()[0]
	out, err := s.Upsert(ctx, d, in)
	require.NoError(t, err)
	assert.NotContains(t, in, "id", "caller's row must not be modified")

	out["email"] = "mutated"
	got, ok, err := s.Get(ctx, d, out["id"])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice@x.com", got["email"])

	got["email"] = "mutated again"
	rows, err := s.Scan(ctx, d, nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", rows[0]["email"])
}

func TestStore_TablesAreSeparate(t *testing.T) {
	s := New()
	ctx := context.Background()
	testutil.SeedUsers(t, s)

	_, err := s.Upsert(ctx, testutil.AccountDescriptor(), entity.Row{"owner": "alice", "balance": int64(1)})
	require.NoError(t, err)

	n, err := s.Count(ctx, testutil.AccountDescriptor(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_GetRejectsBadIdentifier(t *testing.T) {
	_, _, err := New().Get(context.Background(), testutil.UserDescriptor(), "not-a-number")
	assert.ErrorIs(t, err, entity.ErrIncompatible)
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	s := New()
	d := testutil.AccountDescriptor()
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Upsert(ctx, d, entity.Row{"owner": fmt.Sprintf("owner-%d", i), "balance": int64(i)})
			assert.NoError(t, err)
			_, err = s.Scan(ctx, d, nil, nil, 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := s.Count(ctx, d, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(writers), n)
}
