package service

import (
	"errors"
	"fmt"
)

// Token validation. Every validation failure wraps ErrTokenInvalid and one
// of the specific causes, so callers can either treat them uniformly or tell
// them apart with errors.Is.
var (
	ErrTokenInvalid   = errors.New("invalid_token")
	ErrMalformedToken = errors.New("malformed_token")
	ErrBadSignature   = errors.New("bad_signature")
	ErrTokenExpired   = errors.New("token_expired")
	ErrTokenRevoked   = errors.New("token_revoked")
)

var (
	ErrUserNotFound = errors.New("user_not_found")

	// ErrStoreUnavailable means a backing store could not answer. It is never
	// wrapped in ErrTokenInvalid: an outage must not look like a bad token.
	ErrStoreUnavailable = errors.New("store_unavailable")

	ErrAccountLocked = errors.New("account_locked")
	ErrAccountBanned = errors.New("account_banned")

	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrInvalidRequest     = errors.New("invalid_request")
)

// invalid wraps a validation failure with the umbrella error and its cause.
func invalid(cause error, detail any) error {
	if detail == nil {
		return fmt.Errorf("%w: %w", ErrTokenInvalid, cause)
	}
	return fmt.Errorf("%w: %w: %v", ErrTokenInvalid, cause, detail)
}

// badRequest wraps ErrInvalidRequest with a message fit for the caller.
func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
}

// unavailable wraps a backend failure, keeping the original error reachable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
