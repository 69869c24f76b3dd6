package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tokengate/internal/auth/domain"
	"github.com/aussiebroadwan/tokengate/internal/auth/store"
	"github.com/aussiebroadwan/tokengate/pkg/cryptox"
	"github.com/aussiebroadwan/tokengate/pkg/jwtx"
	"github.com/aussiebroadwan/tokengate/pkg/slogx"
)

// Revocations is the revocation store as the token service sees it.
type Revocations interface {
	MarkRevoked(ctx context.Context, tokenID string, remaining time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	SetActiveRefresh(ctx context.Context, subject, token string, ttl time.Duration) error
	GetActiveRefresh(ctx context.Context, subject string) (string, bool, error)
	ClearActiveRefresh(ctx context.Context, subject string) error
	MarkSessionCutoff(ctx context.Context, subject string, at time.Time, ttl time.Duration) error
	SessionCutoff(ctx context.Context, subject string) (time.Time, bool, error)
}

// UserLookup resolves a token subject to its account.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
}

// TokenService owns what makes a token usable: a valid signature, a future
// expiry, a complete claim set and, for access tokens, no blacklist entry.
//
// It holds no mutable state of its own. Everything shared between requests
// lives in Revocations, so it is safe for concurrent use.
type TokenService struct {
	Codec       jwtx.Codec
	Revocations Revocations
	Users       UserLookup
	Issuer      string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

// IssueAccessToken signs a fresh access token. It does not touch any store.
func (s *TokenService) IssueAccessToken(ctx context.Context, subject string, role domain.Role) (string, error) {
	if subject == "" || !role.Valid() {
		return "", ErrInvalidRequest
	}

	claims := jwtx.NewAccessClaims(subject, role.String(), s.accessTTL(), s.Issuer, s.now())
	token, err := s.Codec.Encode(claims)
	if err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Debug("issued access token",
		slog.String("sub", subject),
		slog.String("jti", claims.ID),
		slog.Time("exp", claims.ExpiresAt.Time),
	)
	return token, nil
}

// IssueRefreshToken signs a refresh token and makes it subject's one active
// refresh session, replacing any earlier one. The session write is done
// before returning.
func (s *TokenService) IssueRefreshToken(ctx context.Context, subject string) (string, error) {
	if subject == "" {
		return "", ErrInvalidRequest
	}

	ttl := s.refreshTTL()
	claims := jwtx.NewRefreshClaims(subject, ttl, s.Issuer, s.now())
	token, err := s.Codec.Encode(claims)
	if err != nil {
		return "", err
	}

	if err := s.Revocations.SetActiveRefresh(ctx, subject, token, ttl); err != nil {
		return "", unavailable("set active refresh", err)
	}

	slogx.FromContext(ctx).Debug("issued refresh token",
		slog.String("sub", subject),
		slog.String("jti", claims.ID),
	)
	return token, nil
}

// IssueTokenPair issues an access and a refresh token for user.
func (s *TokenService) IssueTokenPair(ctx context.Context, user domain.User) (domain.TokenPair, error) {
	access, err := s.IssueAccessToken(ctx, user.Username, user.Role)
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh, err := s.IssueRefreshToken(ctx, user.Username)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return s.pair(access, refresh), nil
}

func (s *TokenService) pair(access, refresh string) domain.TokenPair {
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL().Seconds()),
	}
}

// Validate decodes token and checks it is usable right now. Failures wrap
// ErrTokenInvalid together with ErrMalformedToken, ErrBadSignature,
// ErrTokenExpired or ErrTokenRevoked. A revocation store that can't be
// reached yields ErrStoreUnavailable instead.
func (s *TokenService) Validate(ctx context.Context, token string) (jwtx.Claims, error) {
	// 1. Structure and signature
	claims, err := s.Codec.Decode(token)
	switch {
	case err == nil:
	case errors.Is(err, jwtx.ErrInvalidSig):
		return s.reject(ctx, token, invalid(ErrBadSignature, err))
	default:
		return s.reject(ctx, token, invalid(ErrMalformedToken, err))
	}

	// 2. Expiry, the boundary instant already counts as expired
	if claims.Expired(s.now()) {
		return s.reject(ctx, token, invalid(ErrTokenExpired, nil))
	}

	// 3. Claim completeness (role on access tokens)
	if err := claims.ValidateRequired(); err != nil {
		return s.reject(ctx, token, invalid(ErrMalformedToken, err))
	}

	// 4. Blacklist, access tokens only. Refresh tokens are superseded
	// through their session record instead.
	if claims.IsAccess() {
		revoked, err := s.Revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return jwtx.Claims{}, unavailable("check revocation", err)
		}
		if revoked {
			return s.reject(ctx, token, invalid(ErrTokenRevoked, nil))
		}
	}

	return claims, nil
}

// reject logs a failed validation by fingerprint and passes err through.
func (s *TokenService) reject(ctx context.Context, token string, err error) (jwtx.Claims, error) {
	slogx.FromContext(ctx).Debug("token rejected",
		slog.String("token_fp", cryptox.FingerprintToken(token)),
		slog.Any("error", err),
	)
	return jwtx.Claims{}, err
}

// ValidateAccess is Validate restricted to access tokens.
func (s *TokenService) ValidateAccess(ctx context.Context, token string) (jwtx.Claims, error) {
	claims, err := s.Validate(ctx, token)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if !claims.IsAccess() {
		return jwtx.Claims{}, invalid(ErrMalformedToken, "not an access token")
	}
	return claims, nil
}

// ResolveIdentity validates an access token and loads the account named by
// its subject.
func (s *TokenService) ResolveIdentity(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.ValidateAccess(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}

	user, err := s.lookup(ctx, claims.Subject)
	if err != nil {
		return domain.Identity{}, err
	}
	if predates(&claims, user) {
		return domain.Identity{}, invalid(ErrTokenRevoked, "token predates account")
	}
	return user.Identity(), nil
}

// predates reports whether the token was minted before the account it names
// was created. That only happens when a deleted username is taken again.
func predates(claims *jwtx.Claims, user domain.User) bool {
	if user.CreatedAt.IsZero() {
		return false
	}
	return claims.Minted().Before(user.CreatedAt.Truncate(time.Millisecond))
}

func (s *TokenService) lookup(ctx context.Context, subject string) (domain.User, error) {
	user, err := s.Users.GetUserByUsername(ctx, subject)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, store.ErrNotFound):
		return domain.User{}, ErrUserNotFound
	default:
		return domain.User{}, unavailable("lookup user", err)
	}
}

// RevokeAccessToken blacklists a still-valid access token for the rest of
// its lifetime and returns its claims. Revoking an invalid token, including
// one already revoked, fails.
func (s *TokenService) RevokeAccessToken(ctx context.Context, token string) (jwtx.Claims, error) {
	claims, err := s.ValidateAccess(ctx, token)
	if err != nil {
		return jwtx.Claims{}, err
	}

	remaining := claims.Remaining(s.now())
	if remaining <= 0 {
		// Expired between validation and now, nothing left to block.
		return claims, nil
	}

	if err := s.Revocations.MarkRevoked(ctx, claims.ID, remaining); err != nil {
		return jwtx.Claims{}, unavailable("mark revoked", err)
	}

	slogx.FromContext(ctx).Info("access token revoked",
		slog.String("sub", claims.Subject),
		slog.String("jti", claims.ID),
		slog.Duration("remaining", remaining),
	)
	return claims, nil
}

// RevokeRefreshSession ends subject's refresh session. Every refresh token
// subject holds right now stops rotating for good, a later login starts a
// fresh session that is unaffected.
func (s *TokenService) RevokeRefreshSession(ctx context.Context, subject string) error {
	if err := s.Revocations.MarkSessionCutoff(ctx, subject, s.now(), s.refreshTTL()); err != nil {
		return unavailable("mark session cutoff", err)
	}
	if err := s.Revocations.ClearActiveRefresh(ctx, subject); err != nil {
		return unavailable("clear active refresh", err)
	}
	return nil
}

// ActiveRefresh returns subject's current refresh token, if any.
func (s *TokenService) ActiveRefresh(ctx context.Context, subject string) (string, bool, error) {
	token, ok, err := s.Revocations.GetActiveRefresh(ctx, subject)
	if err != nil {
		return "", false, unavailable("get active refresh", err)
	}
	return token, ok, nil
}

// RotateAccessToken trades a refresh token for a new access token carrying
// the account's current role.
//
// The refresh token itself is not consumed: it stays usable until it expires
// or the subject's session is ended. Rotation requires the subject to still
// have a live refresh session minted after the last cutoff, so a token ended
// by logout, ban or a password change stays dead across later logins. A
// token superseded by a newer login keeps working until then.
func (s *TokenService) RotateAccessToken(ctx context.Context, refreshToken string) (string, error) {
	l := slogx.FromContext(ctx)

	// 1. Signature, expiry and claims
	claims, err := s.Validate(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if !claims.IsRefresh() {
		return "", invalid(ErrMalformedToken, "not a refresh token")
	}

	// 2. The subject must still hold a session
	if _, ok, err := s.ActiveRefresh(ctx, claims.Subject); err != nil {
		return "", err
	} else if !ok {
		l.Info("refresh rejected, no active session", slog.String("sub", claims.Subject))
		return "", invalid(ErrTokenRevoked, "refresh session ended")
	}

	// 3. Not minted before the session was last ended
	cutoff, ok, err := s.Revocations.SessionCutoff(ctx, claims.Subject)
	if err != nil {
		return "", unavailable("get session cutoff", err)
	}
	if ok && !claims.Minted().After(cutoff) {
		l.Info("refresh rejected, session ended after issue",
			slog.String("sub", claims.Subject),
			slog.Time("cutoff", cutoff),
		)
		return "", invalid(ErrTokenRevoked, "refresh session ended")
	}

	// 4. Current role and status, not whatever held at login
	user, err := s.lookup(ctx, claims.Subject)
	if err != nil {
		return "", err
	}
	if predates(&claims, user) {
		l.Info("refresh rejected, token predates account", slog.String("sub", claims.Subject))
		return "", invalid(ErrTokenRevoked, "token predates account")
	}
	if err := CheckAccount(user.Identity()); err != nil {
		l.Info("refresh rejected by account policy",
			slog.String("sub", claims.Subject),
			slog.Any("error", err),
		)
		return "", err
	}

	return s.IssueAccessToken(ctx, user.Username, user.Role)
}
