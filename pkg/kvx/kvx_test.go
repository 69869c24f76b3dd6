package kvx_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/tokengate/pkg/kvx"
	"github.com/stretchr/testify/require"
)

// testStore exercises the Store contract. Both backends run it.
func testStore(t *testing.T, s kvx.Store) {
	ctx := context.Background()

	t.Run("put get exists delete", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "refresh:alice", "token-1", time.Minute))

		v, err := s.Get(ctx, "refresh:alice")
		require.NoError(t, err)
		require.Equal(t, "token-1", v)

		ok, err := s.Exists(ctx, "refresh:alice")
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, s.Delete(ctx, "refresh:alice"))

		_, err = s.Get(ctx, "refresh:alice")
		require.ErrorIs(t, err, kvx.ErrNotFound)

		ok, err = s.Exists(ctx, "refresh:alice")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("put overwrites", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "refresh:bob", "old", time.Minute))
		require.NoError(t, s.Put(ctx, "refresh:bob", "new", time.Minute))

		v, err := s.Get(ctx, "refresh:bob")
		require.NoError(t, err)
		require.Equal(t, "new", v)
	})

	t.Run("delete absent key", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "never-written"))
	})

	t.Run("rejects non positive ttl", func(t *testing.T) {
		require.ErrorIs(t, s.Put(ctx, "k", "v", 0), kvx.ErrInvalidTTL)
		require.ErrorIs(t, s.Put(ctx, "k", "v", -time.Second), kvx.ErrInvalidTTL)

		ok, err := s.Exists(ctx, "k")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("entries expire", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "blacklist:short", "true", 150*time.Millisecond))

		ok, err := s.Exists(ctx, "blacklist:short")
		require.NoError(t, err)
		require.True(t, ok)

		require.Eventually(t, func() bool {
			ok, err := s.Exists(ctx, "blacklist:short")
			return err == nil && !ok
		}, 3*time.Second, 25*time.Millisecond)
	})

	t.Run("reads do not extend ttl", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "blacklist:touch", "true", 300*time.Millisecond))

		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			ok, err := s.Exists(ctx, "blacklist:touch")
			require.NoError(t, err)
			if !ok {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		t.Fatal("key kept alive by reads")
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, s.Ping(ctx))
	})
}
