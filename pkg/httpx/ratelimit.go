package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/tokengate/pkg/slogx"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Rate limit profiles. Each can be overridden through
// RATELIMIT_{STRICT,MODERATE,LENIENT}_{REQUESTS,WINDOW_SEC,BURST}.
var (
	// StrictLimit guards credential endpoints (join, login).
	StrictLimit = RateLimitConfig{
		RequestsPerWindow: 5,
		Window:            time.Minute,
		Burst:             5,
	}

	// ModerateLimit guards authenticated writes (refresh, logout, password).
	ModerateLimit = RateLimitConfig{
		RequestsPerWindow: 20,
		Window:            time.Minute,
		Burst:             20,
	}

	// LenientLimit guards authenticated reads.
	LenientLimit = RateLimitConfig{
		RequestsPerWindow: 100,
		Window:            time.Minute,
		Burst:             100,
	}
)

func init() {
	StrictLimit = ParseRateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseRateLimitFromEnv("LENIENT", LenientLimit)
}

// ParseRateLimitFromEnv reads RATELIMIT_{prefix}_REQUESTS,
// RATELIMIT_{prefix}_WINDOW_SEC and RATELIMIT_{prefix}_BURST over def.
// Values that don't parse as positive integers are ignored.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	config := def

	if n, ok := positiveEnv("RATELIMIT_" + prefix + "_REQUESTS"); ok {
		config.RequestsPerWindow = n
	}
	if n, ok := positiveEnv("RATELIMIT_" + prefix + "_WINDOW_SEC"); ok {
		config.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnv("RATELIMIT_" + prefix + "_BURST"); ok {
		config.Burst = n
	}

	return config
}

func positiveEnv(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// KeyExtractor groups requests for rate limiting. An empty key means the
// request can't be grouped and is let through.
type KeyExtractor func(*http.Request) string

// TrustProxyHeaders makes IPKeyExtractor believe X-Forwarded-For and
// X-Real-IP. Only enable it behind a proxy that overwrites both headers,
// otherwise every client picks its own rate limit key.
var TrustProxyHeaders = false

// IPKeyExtractor extracts the client IP address from the request. The
// forwarding headers are consulted only when TrustProxyHeaders is set.
func IPKeyExtractor(r *http.Request) string {
	if TrustProxyHeaders {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// PrincipalKeyExtractor keys on the authenticated caller. It must run after
// AuthGate.
func PrincipalKeyExtractor(r *http.Request) string {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return p.Name()
	}
	return ""
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep, so
// CompositeKeyExtractor(":", IPKeyExtractor, PrincipalKeyExtractor) yields
// keys like "192.168.1.1:alice".
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// JSONFieldKeyExtractor keys on a top-level string field of a JSON body, for
// example the username of a login attempt. The body is restored for the
// handler.
func JSONFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err != nil {
			return ""
		}

		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			return ""
		}
		s, _ := fields[field].(string)
		return strings.ToLower(strings.TrimSpace(s))
	}
}

// limiterIdle is how long an unused per-key limiter is kept.
const limiterIdle = 10 * time.Minute

// Limiters builds rate limit middleware. Each middleware keeps its own
// per-key table with a background expiry loop, and Stop ends every loop
// started so far. The zero value is ready to use.
type Limiters struct {
	mu     sync.Mutex
	tables []*ttlcache.Cache[string, *rate.Limiter]
}

func (ls *Limiters) table() *ttlcache.Cache[string, *rate.Limiter] {
	limiters := ttlcache.New(
		ttlcache.WithTTL[string, *rate.Limiter](limiterIdle),
	)
	go limiters.Start()

	ls.mu.Lock()
	ls.tables = append(ls.tables, limiters)
	ls.mu.Unlock()
	return limiters
}

// Running is the number of expiry loops not yet stopped.
func (ls *Limiters) Running() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return len(ls.tables)
}

// Stop ends the expiry loops. Middleware built earlier keeps limiting but no
// longer evicts idle keys. Calling Stop again is a no-op.
func (ls *Limiters) Stop() {
	ls.mu.Lock()
	tables := ls.tables
	ls.tables = nil
	ls.mu.Unlock()

	for _, t := range tables {
		t.Stop()
	}
}

// Middleware limits requests per key with a token bucket. Limiters for keys
// that go quiet are evicted after limiterIdle.
func (ls *Limiters) Middleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	perSecond := rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds())
	limiters := ls.table()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := slogx.FromContext(r.Context())

			key := keyExtractor(r)
			if key == "" {
				l.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			item, _ := limiters.GetOrSet(key, rate.NewLimiter(perSecond, config.Burst))
			limiter := item.Value()

			if !limiter.Allow() {
				// Peek at when the next token lands without consuming it.
				reservation := limiter.Reserve()
				retryAfter := max(int(reservation.Delay().Seconds()), 1)
				reservation.Cancel()

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", config.Window.String())

				l.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("endpoint", r.URL.Path),
					slog.Int("retry_after", retryAfter),
				)

				writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
					"Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ByIP limits by client address.
func (ls *Limiters) ByIP(config RateLimitConfig) Middleware {
	return ls.Middleware(config, IPKeyExtractor)
}

// ByPrincipal limits by authenticated caller, falling back to the client
// address for anonymous requests.
func (ls *Limiters) ByPrincipal(config RateLimitConfig) Middleware {
	return ls.Middleware(config, CompositeKeyExtractor(":",
		PrincipalKeyExtractor,
		IPKeyExtractor,
	))
}

// ByIPAndJSONField limits by client address plus a body field, the usual
// shape for login throttling.
func (ls *Limiters) ByIPAndJSONField(config RateLimitConfig, field string) Middleware {
	return ls.Middleware(config, CompositeKeyExtractor(":",
		IPKeyExtractor,
		JSONFieldKeyExtractor(field),
	))
}
