package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tokengate/pkg/slogx"
)

// ErrUnavailable is returned by an Authenticator that could not reach a
// backing store. AuthGate fails the request instead of treating the caller as
// anonymous.
var ErrUnavailable = errors.New("httpx: authentication backend unavailable")

// Authenticator turns a raw bearer credential into a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (Principal, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, bearer string) (Principal, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, bearer string) (Principal, error) {
	return f(ctx, bearer)
}

// BearerToken extracts the credential from an "Authorization: Bearer" header.
// It returns "" when the header is missing or uses another scheme.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// AuthGate runs once per request. A usable bearer token publishes its
// principal into the request context. A missing or rejected token lets the
// request continue anonymously so public routes keep working; protected
// routes reject it later through RequireAuthenticated.
//
// ErrUnavailable is the exception: the request stops with 503 rather than
// pass unchecked.
func AuthGate(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			p, err := a.Authenticate(ctx, raw)
			switch {
			case err == nil:
				ctx = WithPrincipal(ctx, p)
				ctx = slogx.With(ctx, slog.String("sub", p.Name()))
				next.ServeHTTP(w, r.WithContext(ctx))

			case errors.Is(err, ErrUnavailable):
				slogx.FromContext(ctx).Error("authentication backend unavailable", slog.Any("error", err))
				writeError(w, http.StatusServiceUnavailable, "temporarily_unavailable",
					"authentication is temporarily unavailable")

			default:
				slogx.FromContext(ctx).Debug("bearer token rejected", slog.Any("error", err))
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RFC 6750-compliant error response for bearer auth. The description is the
// same for every token failure.
func writeBearerError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	writeError(w, http.StatusUnauthorized, "invalid_token", "authentication required")
}

func writeError(w http.ResponseWriter, code int, errCode, desc string) {
	WriteJSON(w, code, map[string]string{
		"error":             errCode,
		"error_description": desc,
	})
}
