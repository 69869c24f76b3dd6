package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tokengate/internal/auth/service"
	"github.com/aussiebroadwan/tokengate/pkg/authsdk"
	"github.com/aussiebroadwan/tokengate/pkg/slogx"
)

// writeServiceError renders a service error. Token failures collapse into
// one invalid_token response and account status into access_denied; only
// the login handler tells locked and banned apart.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrStoreUnavailable):
		slogx.FromContext(r.Context()).Error("backing store unavailable", "err", err)
		authsdk.ErrTemporarilyUnavailable.WriteError(w)
	case errors.Is(err, service.ErrTokenInvalid):
		authsdk.ErrInvalidToken.WriteError(w)
	case errors.Is(err, service.ErrAccountBanned), errors.Is(err, service.ErrAccountLocked):
		authsdk.ErrAccessDenied.WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrUsernameTaken):
		authsdk.ErrUsernameTaken.WriteError(w)
	case errors.Is(err, service.ErrUserNotFound):
		authsdk.ErrUserNotFound.WriteError(w)
	case errors.Is(err, service.ErrInvalidRequest):
		desc := strings.TrimPrefix(err.Error(), service.ErrInvalidRequest.Error()+": ")
		authsdk.ErrInvalidRequest.WithDescription(desc).WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}
