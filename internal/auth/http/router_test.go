package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	authhttp "github.com/aussiebroadwan/tokengate/internal/auth/http"
	"github.com/aussiebroadwan/tokengate/internal/auth/domain"
	"github.com/aussiebroadwan/tokengate/internal/auth/revocation"
	"github.com/aussiebroadwan/tokengate/internal/auth/service"
	"github.com/aussiebroadwan/tokengate/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tokengate/pkg/authsdk"
	"github.com/aussiebroadwan/tokengate/pkg/cryptox"
	"github.com/aussiebroadwan/tokengate/pkg/httpx"
	"github.com/aussiebroadwan/tokengate/pkg/jwtx"
	"github.com/aussiebroadwan/tokengate/pkg/kvx"
	"github.com/aussiebroadwan/tokengate/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const (
	adminName = "root"
	adminPass = "root-password"
)

func TestMain(m *testing.M) {
	// Scenarios below log in far more often than a real client would.
	relaxed := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	httpx.StrictLimit = relaxed
	httpx.ModerateLimit = relaxed
	httpx.LenientLimit = relaxed

	os.Exit(m.Run())
}

type env struct {
	client *authsdk.SDKClient
	kv     *kvx.MemoryStore
	admin  *authsdk.Session
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	kv := kvx.NewMemoryStore()
	t.Cleanup(func() { _ = kv.Close() })
	revocations := revocation.New(kv)

	codec, err := jwtx.NewCodecHS256([]byte("0123456789abcdef0123456789abcdef"), "https://auth.test")
	require.NoError(t, err)

	passwords := cryptox.NewPasswordHasher("")
	tokens := &service.TokenService{
		Codec:       codec,
		Revocations: revocations,
		Users:       st.Users(),
		Issuer:      "https://auth.test",
	}
	auth := &service.AuthService{Users: st.Users(), Tokens: tokens, Passwords: passwords}
	accounts := &service.AccountService{Users: st.Users(), Tokens: tokens}

	boot := &service.BootstrapService{Store: st, Passwords: passwords}
	require.NoError(t, boot.EnsureAdmin(ctx, domain.BootstrapAdmin{Username: adminName, Password: adminPass}))

	router := authhttp.NewRouter(tokens, auth, accounts, st, revocations, "test", slogx.Discard())
	router.ApplyRoutes()
	t.Cleanup(router.Close)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	client := authsdk.NewSDKClient(srv.URL)
	admin, err := client.AuthenticateWithPassword(ctx, adminName, adminPass)
	require.NoError(t, err)

	return &env{client: client, kv: kv, admin: admin}
}

func (e *env) signup(t *testing.T, username string) *authsdk.Session {
	t.Helper()
	ctx := context.Background()

	_, err := e.client.Join(ctx, username, "correct horse")
	require.NoError(t, err)

	s, err := e.client.AuthenticateWithPassword(ctx, username, "correct horse")
	require.NoError(t, err)
	return s
}

func get(t *testing.T, url, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestLoginFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	user, err := e.client.Join(ctx, "alice", "correct horse")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "USER", user.Role)

	_, err = e.client.Join(ctx, "alice", "correct horse")
	require.ErrorIs(t, err, authsdk.ErrUsernameTaken)

	tokens, err := e.client.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	require.Equal(t, "Bearer", tokens.TokenType)
	require.EqualValues(t, 900, tokens.ExpiresIn)

	s := e.client.NewSessionFromTokens(tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresIn)
	me, err := s.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", me.Username)

	refreshed, err := e.client.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, tokens.RefreshToken, refreshed.RefreshToken)
	require.NotEmpty(t, refreshed.AccessToken)

	_, err = e.client.Login(ctx, "alice", "wrong password")
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)
}

func TestRouterCloseStopsLimiters(t *testing.T) {
	before := runtime.NumGoroutine()

	router := authhttp.NewRouter(nil, nil, nil, nil, nil, "test", slogx.Discard())
	router.ApplyRoutes()
	require.Greater(t, runtime.NumGoroutine(), before, "each route limiter runs an expiry loop")

	router.Close()
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond)

	router.Close()
}

func TestLogoutRevokesImmediately(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "alice")

	first, err := e.client.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	second, err := e.client.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)

	s := e.client.NewSessionFromTokens(first.AccessToken, first.RefreshToken, first.ExpiresIn)
	require.NoError(t, s.Logout(ctx))

	resp := get(t, e.client.BaseURL+"/v1/me", first.AccessToken)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get(t, e.client.BaseURL+"/v1/me", second.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode, "a different access token is unaffected")

	_, err = e.client.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)

	// Logging in again starts a new session without reviving the old one.
	third, err := e.client.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	_, err = e.client.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)
	_, err = e.client.Refresh(ctx, third.RefreshToken)
	require.NoError(t, err)
}

func TestUniformUnauthenticated(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "alice")

	tokens, err := e.client.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)

	for name, bearer := range map[string]string{
		"missing":       "",
		"garbage":       "not.a.token",
		"refresh token": tokens.RefreshToken,
		"tampered":      tokens.AccessToken[:len(tokens.AccessToken)-2] + "xx",
	} {
		t.Run(name, func(t *testing.T) {
			resp := get(t, e.client.BaseURL+"/v1/me", bearer)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.Contains(t, resp.Header.Get("WWW-Authenticate"), "invalid_token")
		})
	}
}

func TestLockout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "alice")

	for range domain.LockoutThreshold + 1 {
		_, err := e.client.Login(ctx, "alice", "wrong password")
		require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)
	}

	_, err := e.client.Login(ctx, "alice", "correct horse")
	require.ErrorIs(t, err, authsdk.ErrAccountLocked)

	status, err := e.admin.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.True(t, status.Locked)
	require.Equal(t, domain.LockoutThreshold+1, status.FailedLoginCount)

	require.NoError(t, e.admin.UnlockUser(ctx, "alice"))

	_, err = e.client.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
}

func TestBan(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice")

	require.NoError(t, e.admin.BanUser(ctx, "alice"))

	// Still a genuine token, but protected routes re-check the account.
	_, err := alice.Me(ctx)
	require.ErrorIs(t, err, authsdk.ErrAccessDenied)

	_, err = e.client.Login(ctx, "alice", "correct horse")
	require.ErrorIs(t, err, authsdk.ErrAccountBanned)

	_, err = e.client.Refresh(ctx, alice.RefreshToken())
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)

	require.NoError(t, e.admin.UnbanUser(ctx, "alice"))
	_, err = e.client.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)

	require.ErrorIs(t, e.admin.BanUser(ctx, "nobody"), authsdk.ErrUserNotFound)
}

func TestAdminRoutesNeedAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice")

	_, err := alice.ListUsers(ctx, 10, 0)
	require.ErrorIs(t, err, authsdk.ErrInsufficientScope)

	users, err := e.admin.ListUsers(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)

	// The new role shows up on the next refresh.
	require.NoError(t, e.admin.SetRole(ctx, "alice", "admin"))
	refreshed, err := e.client.Refresh(ctx, alice.RefreshToken())
	require.NoError(t, err)

	promoted := e.client.NewSessionFromTokens(refreshed.AccessToken, refreshed.RefreshToken, refreshed.ExpiresIn)
	_, err = promoted.ListUsers(ctx, 10, 0)
	require.NoError(t, err)

	require.ErrorIs(t, e.admin.SetRole(ctx, "alice", "root"), authsdk.ErrInvalidRequest)
}

func TestChangePasswordAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice")

	err := alice.ChangePassword(ctx, "wrong", "battery staple")
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	require.NoError(t, alice.ChangePassword(ctx, "correct horse", "battery staple"))
	_, err = e.client.Login(ctx, "alice", "battery staple")
	require.NoError(t, err)

	require.NoError(t, alice.DeleteAccount(ctx))
	_, err = e.client.Login(ctx, "alice", "battery staple")
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)
}

func TestRevocationStoreOutageFailsClosed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice")

	require.NoError(t, e.kv.Close())

	_, err := alice.Me(ctx)
	require.ErrorIs(t, err, authsdk.ErrTemporarilyUnavailable)

	report, err := e.client.GetReadiness(ctx)
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	require.Equal(t, "degraded", report.Status)
	require.Equal(t, "ok", report.Checks.Database)
	require.Contains(t, report.Checks.Revocation, "error")

	health, err := e.client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
}

func TestReadiness(t *testing.T) {
	e := newEnv(t)

	health, err := e.client.GetReadiness(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "ok", health.Checks.Database)
	require.Equal(t, "ok", health.Checks.Revocation)
}
