// Package revocation records blacklisted access tokens, the active refresh
// session of each account and the instant each account's sessions were last
// ended, all on top of a kvx.Store.
//
// Blacklist entries live exactly as long as the token they block would have,
// so the blacklist never grows past the set of unexpired revoked tokens.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aussiebroadwan/tokengate/pkg/kvx"
)

const (
	blacklistPrefix = "blacklist:"
	refreshPrefix   = "refresh:"
	cutoffPrefix    = "refresh_revoked:"

	// revokedValue is the sentinel stored under a blacklist key. Only the
	// key's presence matters.
	revokedValue = "true"
)

// BlacklistKey is the store key marking tokenID as revoked.
func BlacklistKey(tokenID string) string { return blacklistPrefix + tokenID }

// RefreshKey is the store key holding subject's active refresh token.
func RefreshKey(subject string) string { return refreshPrefix + subject }

// CutoffKey is the store key holding the instant subject's refresh
// sessions were last ended.
func CutoffKey(subject string) string { return cutoffPrefix + subject }

// Store is the revocation view over a key-value backend. Backend failures
// come back wrapping kvx.ErrUnavailable.
type Store struct {
	KV kvx.Store
}

// New returns a Store over kv.
func New(kv kvx.Store) *Store {
	return &Store{KV: kv}
}

// MarkRevoked blacklists tokenID for remaining. Callers skip the call for
// tokens that have already expired.
func (s *Store) MarkRevoked(ctx context.Context, tokenID string, remaining time.Duration) error {
	if err := s.KV.Put(ctx, BlacklistKey(tokenID), revokedValue, remaining); err != nil {
		return fmt.Errorf("revocation: mark %s: %w", tokenID, err)
	}
	return nil
}

// IsRevoked reports whether tokenID is blacklisted. An unreachable store is
// an error, never a "no".
func (s *Store) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ok, err := s.KV.Exists(ctx, BlacklistKey(tokenID))
	if err != nil {
		return false, fmt.Errorf("revocation: check %s: %w", tokenID, err)
	}
	return ok, nil
}

// SetActiveRefresh records token as subject's one live refresh session,
// replacing whatever was there.
func (s *Store) SetActiveRefresh(ctx context.Context, subject, token string, ttl time.Duration) error {
	if err := s.KV.Put(ctx, RefreshKey(subject), token, ttl); err != nil {
		return fmt.Errorf("revocation: set refresh for %s: %w", subject, err)
	}
	return nil
}

// GetActiveRefresh returns subject's active refresh token. ok is false when
// there is no live session.
func (s *Store) GetActiveRefresh(ctx context.Context, subject string) (token string, ok bool, err error) {
	token, err = s.KV.Get(ctx, RefreshKey(subject))
	switch {
	case err == nil:
		return token, true, nil
	case errors.Is(err, kvx.ErrNotFound):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("revocation: get refresh for %s: %w", subject, err)
	}
}

// ClearActiveRefresh ends subject's refresh session.
func (s *Store) ClearActiveRefresh(ctx context.Context, subject string) error {
	if err := s.KV.Delete(ctx, RefreshKey(subject)); err != nil {
		return fmt.Errorf("revocation: clear refresh for %s: %w", subject, err)
	}
	return nil
}

// MarkSessionCutoff records that every refresh token subject holds minted
// at or before at is dead. The entry outlives the longest refresh token
// when ttl is the refresh lifetime. A later cutoff replaces an earlier one.
func (s *Store) MarkSessionCutoff(ctx context.Context, subject string, at time.Time, ttl time.Duration) error {
	v := strconv.FormatInt(at.UnixMilli(), 10)
	if err := s.KV.Put(ctx, CutoffKey(subject), v, ttl); err != nil {
		return fmt.Errorf("revocation: mark cutoff for %s: %w", subject, err)
	}
	return nil
}

// SessionCutoff returns subject's last session cutoff at millisecond
// precision. ok is false when no session was ended within the refresh
// lifetime.
func (s *Store) SessionCutoff(ctx context.Context, subject string) (at time.Time, ok bool, err error) {
	v, err := s.KV.Get(ctx, CutoffKey(subject))
	switch {
	case errors.Is(err, kvx.ErrNotFound):
		return time.Time{}, false, nil
	case err != nil:
		return time.Time{}, false, fmt.Errorf("revocation: get cutoff for %s: %w", subject, err)
	}

	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("revocation: cutoff for %s: %w", subject, err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.KV.Ping(ctx)
}
