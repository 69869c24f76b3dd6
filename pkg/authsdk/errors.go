package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/tokengate/pkg/httpx"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	ErrorCodeInvalidRequest         = "invalid_request"
	ErrorCodeInvalidToken           = "invalid_token"
	ErrorCodeInvalidCredentials     = "invalid_credentials"
	ErrorCodeAccountLocked          = "account_locked"
	ErrorCodeAccountBanned          = "account_banned"
	ErrorCodeUsernameTaken          = "username_taken"
	ErrorCodeUserNotFound           = "user_not_found"
	ErrorCodeAccessDenied           = "access_denied"
	ErrorCodeInsufficientScope      = "insufficient_scope"
	ErrorCodeTemporarilyUnavailable = "temporarily_unavailable"
	ErrorCodeRateLimitExceeded      = "rate_limit_exceeded"
	ErrorCodeServerError            = "server_error"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is the error body every endpoint returns. The server writes it
// with WriteError; the client parses failed responses back into it, so
// errors.Is works against the predefined values on both sides.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine readable error code (e.g., "invalid_token")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on Code so a parsed response compares equal to the predefined
// error with the same code.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WriteError writes e as a JSON response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	if e.StatusCode == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="`+e.Code+`"`)
	}
	httpx.WriteJSON(w, e.StatusCode, e)
}

// WithDescription returns a copy of e with a different description.
func (e *APIError) WithDescription(desc string) *APIError {
	return &APIError{StatusCode: e.StatusCode, Code: e.Code, Description: desc}
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	// ErrInvalidRequest is returned when the body is malformed or a field
	// fails validation.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required fields",
	}

	// ErrInvalidToken is the one response for every token failure: missing,
	// malformed, forged, expired or revoked all look the same.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the token is missing, invalid, expired or revoked",
	}

	// ErrInvalidCredentials is returned by login for an unknown user or a
	// wrong password.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid username or password",
	}

	// ErrAccountLocked is returned by login once too many attempts failed.
	ErrAccountLocked = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccountLocked,
		Description: "account is locked after too many failed logins",
	}

	// ErrAccountBanned is returned by login for a banned account.
	ErrAccountBanned = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccountBanned,
		Description: "account is banned",
	}

	// ErrUsernameTaken is returned by join when the name is in use.
	ErrUsernameTaken = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeUsernameTaken,
		Description: "username is already taken",
	}

	// ErrUserNotFound is returned by admin endpoints for an unknown account.
	ErrUserNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeUserNotFound,
		Description: "user not found",
	}

	// ErrAccessDenied is returned on protected routes when the account is
	// banned or locked. It deliberately doesn't say which.
	ErrAccessDenied = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccessDenied,
		Description: "account is not permitted",
	}

	// ErrInsufficientScope is returned when the caller's role is too low.
	ErrInsufficientScope = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInsufficientScope,
		Description: "the caller's role does not allow this operation",
	}

	// ErrTemporarilyUnavailable is returned when a backing store is down.
	ErrTemporarilyUnavailable = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeTemporarilyUnavailable,
		Description: "the service is temporarily unavailable",
	}

	// ErrRateLimitExceeded is returned when a client is throttled.
	ErrRateLimitExceeded = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeRateLimitExceeded,
		Description: "too many requests",
	}

	// ErrServerError is returned for anything unexpected.
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-2xx response into an *APIError. Returns nil
// for 2xx responses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	// Fallback: create generic error from status code
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
