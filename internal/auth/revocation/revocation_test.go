package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/tokengate/internal/auth/revocation"
	"github.com/aussiebroadwan/tokengate/pkg/kvx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*revocation.Store, *kvx.MemoryStore) {
	t.Helper()
	kv := kvx.NewMemoryStore()
	t.Cleanup(func() { _ = kv.Close() })
	return revocation.New(kv), kv
}

func TestKeys(t *testing.T) {
	require.Equal(t, "blacklist:01HQ", revocation.BlacklistKey("01HQ"))
	require.Equal(t, "refresh:alice", revocation.RefreshKey("alice"))
	require.Equal(t, "refresh_revoked:alice", revocation.CutoffKey("alice"))
}

func TestMarkRevoked(t *testing.T) {
	ctx := context.Background()
	s, kv := newStore(t)

	revoked, err := s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, s.MarkRevoked(ctx, "jti-1", time.Minute))

	revoked, err = s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	// Stored with the sentinel under the documented key
	v, err := kv.Get(ctx, "blacklist:jti-1")
	require.NoError(t, err)
	require.Equal(t, "true", v)

	other, err := s.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	require.False(t, other)
}

func TestRevocationSelfExpires(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	require.NoError(t, s.MarkRevoked(ctx, "jti-short", 100*time.Millisecond))

	require.Eventually(t, func() bool {
		revoked, err := s.IsRevoked(ctx, "jti-short")
		return err == nil && !revoked
	}, 2*time.Second, 20*time.Millisecond)
}

func TestActiveRefresh(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	_, ok, err := s.GetActiveRefresh(ctx, "alice")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SetActiveRefresh(ctx, "alice", "refresh-1", time.Hour))
	require.NoError(t, s.SetActiveRefresh(ctx, "alice", "refresh-2", time.Hour))

	tok, ok, err := s.GetActiveRefresh(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "refresh-2", tok, "last write wins")

	require.NoError(t, s.ClearActiveRefresh(ctx, "alice"))
	_, ok, err = s.GetActiveRefresh(ctx, "alice")
	require.NoError(t, err)
	require.False(t, ok)

	// Clearing twice is fine
	require.NoError(t, s.ClearActiveRefresh(ctx, "alice"))
}

func TestSessionCutoff(t *testing.T) {
	ctx := context.Background()
	s, kv := newStore(t)

	_, ok, err := s.SessionCutoff(ctx, "alice")
	require.NoError(t, err)
	require.False(t, ok)

	at := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	require.NoError(t, s.MarkSessionCutoff(ctx, "alice", at, time.Hour))

	got, ok, err := s.SessionCutoff(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, at.Truncate(time.Millisecond), got, "kept to the millisecond")

	v, err := kv.Get(ctx, "refresh_revoked:alice")
	require.NoError(t, err)
	require.Equal(t, "1772366400123", v)

	later := at.Add(time.Minute)
	require.NoError(t, s.MarkSessionCutoff(ctx, "alice", later, time.Hour))
	got, _, err = s.SessionCutoff(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, later.Truncate(time.Millisecond), got)

	_, ok, err = s.SessionCutoff(ctx, "bob")
	require.NoError(t, err)
	require.False(t, ok, "cutoffs are per subject")
}

func TestSessionCutoffExpires(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	require.NoError(t, s.MarkSessionCutoff(ctx, "alice", time.Now(), 100*time.Millisecond))

	require.Eventually(t, func() bool {
		_, ok, err := s.SessionCutoff(ctx, "alice")
		return err == nil && !ok
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSessionCutoffGarbage(t *testing.T) {
	ctx := context.Background()
	s, kv := newStore(t)

	require.NoError(t, kv.Put(ctx, revocation.CutoffKey("alice"), "yesterday", time.Hour))
	_, _, err := s.SessionCutoff(ctx, "alice")
	require.Error(t, err)
}

func TestStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	s, kv := newStore(t)
	require.NoError(t, kv.Close())

	_, err := s.IsRevoked(ctx, "jti-1")
	require.ErrorIs(t, err, kvx.ErrUnavailable)

	require.ErrorIs(t, s.MarkRevoked(ctx, "jti-1", time.Minute), kvx.ErrUnavailable)
	require.ErrorIs(t, s.SetActiveRefresh(ctx, "alice", "t", time.Minute), kvx.ErrUnavailable)
	require.ErrorIs(t, s.ClearActiveRefresh(ctx, "alice"), kvx.ErrUnavailable)
	require.ErrorIs(t, s.MarkSessionCutoff(ctx, "alice", time.Now(), time.Minute), kvx.ErrUnavailable)

	_, _, err = s.GetActiveRefresh(ctx, "alice")
	require.ErrorIs(t, err, kvx.ErrUnavailable)

	_, _, err = s.SessionCutoff(ctx, "alice")
	require.ErrorIs(t, err, kvx.ErrUnavailable)
}
