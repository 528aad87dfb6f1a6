package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationStore(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryRevocationStore()
	store.now = clock.Now

	t.Run("UnknownID", func(t *testing.T) {
		revoked, err := store.IsRevoked(ctx, "missing")
		assert.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("RevokeIsVisible", func(t *testing.T) {
		require.NoError(t, store.Revoke(ctx, "a", clock.Now().Add(time.Minute)))
		revoked, err := store.IsRevoked(ctx, "a")
		assert.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("RevokeTwice", func(t *testing.T) {
		exp := clock.Now().Add(time.Minute)
		require.NoError(t, store.Revoke(ctx, "b", exp))
		require.NoError(t, store.Revoke(ctx, "b", exp))
		revoked, _ := store.IsRevoked(ctx, "b")
		assert.True(t, revoked)
	})

	t.Run("ExpiredEntryIsAbsent", func(t *testing.T) {
		require.NoError(t, store.Revoke(ctx, "c", clock.Now().Add(time.Second)))
		clock.Advance(time.Second)
		revoked, _ := store.IsRevoked(ctx, "c")
		assert.False(t, revoked)
	})
}

func TestMemoryRevocationStorePurge(t *testing.T) {
	ctx := context.Background()
	now := testEpoch
	store := NewMemoryRevocationStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Revoke(ctx, "past", now.Add(-time.Second)))
	require.NoError(t, store.Revoke(ctx, "boundary", now))
	require.NoError(t, store.Revoke(ctx, "future", now.Add(time.Nanosecond)))

	n, err := store.Purge(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 1, store.Len())

	revoked, _ := store.IsRevoked(ctx, "future")
	assert.True(t, revoked, "purge must keep entries that have not expired")
}

func TestMemoryRevocationStoreConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()
	exp := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				if err := store.Revoke(ctx, id, exp); err != nil {
					t.Errorf("revoke: %v", err)
					return
				}
				if ok, _ := store.IsRevoked(ctx, id); !ok {
					t.Errorf("revoke of %s not visible", id)
					return
				}
				if i%50 == 0 {
					_, _ = store.Purge(ctx, time.Now())
				}
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 8*200, store.Len())
}

func TestRevocationRegistry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tok, err := env.codec.Issue("alice", time.Hour)
	require.NoError(t, err)

	revoked, err := env.registry.IsRevoked(ctx, tok)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, env.registry.Revoke(ctx, tok))
	require.NoError(t, env.registry.Revoke(ctx, tok))
	revoked, err = env.registry.IsRevoked(ctx, tok)
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 1, env.store.Len())

	claims, err := env.codec.Decode(tok)
	require.NoError(t, err)
	revoked, err = env.registry.IsRevokedID(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.ErrorIs(t, env.registry.Revoke(ctx, "garbage"), ErrMalformedToken)
	_, err = env.registry.IsRevoked(ctx, "garbage")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestRevocationSweeper(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryRevocationStore()
	store.now = clock.Now
	sweeper := NewRevocationSweeper(store, time.Minute)
	sweeper.now = clock.Now

	require.NoError(t, store.Revoke(ctx, "short", clock.Now().Add(time.Minute)))
	require.NoError(t, store.Revoke(ctx, "long", clock.Now().Add(time.Hour)))

	assert.Equal(t, int64(0), sweeper.Sweep(ctx))
	clock.Advance(2 * time.Minute)
	assert.Equal(t, int64(1), sweeper.Sweep(ctx))
	assert.Equal(t, 1, store.Len())
}

func TestRevocationSweeperStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := NewRevocationSweeper(NewMemoryRevocationStore(), time.Millisecond)

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
