package jwtx

import (
	"time"

	"github.com/aussiebroadwan/tokengate/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes. Services can override both through config.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 24 * time.Hour
)

// Kind separates the two token families so a refresh token can never be
// presented where an access token is expected and vice versa.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the payload carried by every token we mint.
//
//	sub  the account username
//	jti  unique token id, also the revocation key
//	iat  issued at
//	exp  expires at
//	role granted role, access tokens only
//	typ  access | refresh
type Claims struct {
	jwt.RegisteredClaims

	Role string `json:"role,omitempty"`
	Kind Kind   `json:"typ"`
}

// NewAccessClaims builds the claim set for an access token expiring ttl
// after now.
func NewAccessClaims(subject, role string, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(subject, ttl, issuer, now),
		Role:             role,
		Kind:             KindAccess,
	}
}

// NewRefreshClaims builds the claim set for a refresh token. Refresh tokens
// carry no role, the current role is looked up again on every rotation.
func NewRefreshClaims(subject string, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(subject, ttl, issuer, now),
		Kind:             KindRefresh,
	}
}

func registered(subject string, ttl time.Duration, issuer string, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(now),
	}
}

// NewJTI returns a fresh token id. ULIDs give us 80 bits of randomness per
// millisecond plus a monotonic counter, so collisions inside one process are
// not a concern.
func NewJTI(now time.Time) string {
	return idx.NewAt(now).String()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateRequired reports ErrInvalidClaim when a claim every token must
// carry is missing. Access tokens must also name a role.
func (c *Claims) ValidateRequired() error {
	if c.Subject == "" || c.ID == "" || c.ExpiresAt == nil || c.IssuedAt == nil {
		return ErrInvalidClaim
	}

	switch c.Kind {
	case KindAccess:
		if c.Role == "" {
			return ErrInvalidClaim
		}
	case KindRefresh:
	default:
		return ErrInvalidClaim
	}

	return nil
}

// Expired reports whether the token is past its expiry at now. A token is
// already expired at the exact expiry instant.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}

// Remaining is the lifetime left at now, never negative.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(c.ExpiresAt.Sub(now), 0)
}

// Minted is when the token was issued, to the millisecond. iat only keeps
// whole seconds, so the time is read back out of the ULID jti. Claims with
// a foreign jti fall back to iat.
func (c *Claims) Minted() time.Time {
	if t := idx.ID(c.ID).Time(); !t.IsZero() {
		return t.UTC()
	}
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// IsAccess reports whether these are access-token claims.
func (c *Claims) IsAccess() bool { return c.Kind == KindAccess }

// IsRefresh reports whether these are refresh-token claims.
func (c *Claims) IsRefresh() bool { return c.Kind == KindRefresh }
