package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tokengate/internal/auth/domain"
	"github.com/aussiebroadwan/tokengate/internal/auth/service"
	"github.com/aussiebroadwan/tokengate/pkg/httpx"
	"github.com/aussiebroadwan/tokengate/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler
	limiters    httpx.Limiters

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	database    Pinger
	revocations Pinger

	TokenService   *service.TokenService
	AuthService    *service.AuthService
	AccountService *service.AccountService
}

func NewRouter(
	tokens *service.TokenService,
	auth *service.AuthService,
	accounts *service.AccountService,
	database, revocations Pinger,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:            http.NewServeMux(),
		buildVersion:   buildVersion,
		startTime:      time.Now(),
		logger:         logger,
		database:       database,
		revocations:    revocations,
		TokenService:   tokens,
		AuthService:    auth,
		AccountService: accounts,
	}

	// Every request passes the gate once. It never rejects on its own except
	// when the revocation store is down.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.AuthGate(Authenticator{Tokens: tokens}),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMe()
	r.registerAdmin()
	r.registerSystem()

	r.handler = httpx.Chain(r.Mux, r.middlewares...)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Tokengate Authentication Service API
//	@version		0.1.0
//	@description	Issues, validates and revokes bearer tokens and enforces account lockout and bans.
//
//	@BasePath					/
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token, or the refresh token on /v1/auth/refresh. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// Close stops the background eviction of the route rate limiters.
func (r *Router) Close() {
	r.limiters.Stop()
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// Account creation and login - strict, login is keyed by IP + username
	r.Mux.Handle("POST /v1/auth/join",
		httpx.Chain(http.HandlerFunc(h.HandleJoin),
			r.limiters.ByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			r.limiters.ByIPAndJSONField(httpx.StrictLimit, "username"),
		),
	)

	// Refresh authenticates with the refresh token itself, not the gate
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			r.limiters.ByIP(httpx.ModerateLimit),
		),
	)

	// Logout works for banned and locked accounts too
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RequireAuthenticated(),
			r.limiters.ByPrincipal(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerMe() {
	h := &MeHandler{AuthService: r.AuthService}

	secured := func(next http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(next,
			httpx.RequireAuthenticated(),
			httpx.RequireUsable(),
			r.limiters.ByPrincipal(limit),
		)
	}

	r.Mux.Handle("GET /v1/me", secured(h.HandleGet, httpx.LenientLimit))
	r.Mux.Handle("POST /v1/me/password", secured(h.HandleChangePassword, httpx.StrictLimit))
	r.Mux.Handle("DELETE /v1/me", secured(h.HandleDelete, httpx.ModerateLimit))
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{AccountService: r.AccountService}

	admin := func(next http.HandlerFunc) http.Handler {
		return httpx.Chain(next,
			httpx.RequireAuthenticated(),
			httpx.RequireUsable(),
			httpx.RequireRole(domain.RoleAdmin.String()),
			r.limiters.ByPrincipal(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /v1/admin/users", admin(h.HandleList))
	r.Mux.Handle("GET /v1/admin/users/{username}", admin(h.HandleGet))
	r.Mux.Handle("POST /v1/admin/users/{username}/ban", admin(h.HandleBan))
	r.Mux.Handle("POST /v1/admin/users/{username}/unban", admin(h.HandleUnban))
	r.Mux.Handle("POST /v1/admin/users/{username}/unlock", admin(h.HandleUnlock))
	r.Mux.Handle("POST /v1/admin/users/{username}/role", admin(h.HandleSetRole))
}

func (r *Router) registerSystem() {
	h := &HealthHandler{
		StartTime:   r.startTime,
		Version:     r.buildVersion,
		Database:    r.database,
		Revocations: r.revocations,
	}

	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	lenient := r.limiters.ByIP(httpx.LenientLimit)
	r.Mux.Handle("GET /livez", httpx.Chain(http.HandlerFunc(h.HandleLivez), lenient))
	r.Mux.Handle("GET /readyz", httpx.Chain(http.HandlerFunc(h.HandleReadyz), lenient))
}
