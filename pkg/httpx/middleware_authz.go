package httpx

import (
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/tokengate/pkg/slogx"
)

// RequireAuthenticated rejects requests AuthGate left anonymous. Expired,
// revoked, forged and missing tokens all get the same 401.
func RequireAuthenticated() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFromContext(r.Context()); !ok {
				writeBearerError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUsable re-checks the account status on every request. Banned and
// locked callers get one uniform 403, the reason is only revealed at login.
func RequireUsable() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeBearerError(w)
				return
			}

			if !p.Enabled() {
				slogx.FromContext(r.Context()).Info("request from disabled account",
					slog.String("sub", p.Name()),
				)
				writeError(w, http.StatusForbidden, "access_denied", "account is not permitted")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole requires the caller to hold role or one that implies it.
func RequireRole(role string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeBearerError(w)
				return
			}

			if !p.HasRole(role) {
				w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
				writeError(w, http.StatusForbidden, "insufficient_scope", "requires role "+role)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
