//go:build e2e

package auth_test

import (
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tokengate/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitLoginEndpoint verifies /v1/auth/login is rate limited.
// Login has strict limits (5 req/min) keyed by IP and username.
func TestRateLimitLoginEndpoint(t *testing.T) {
	baseURL := setupAuthContainer(t, withDefaultRateLimits())
	client := authsdk.NewSDKClient(baseURL)
	ctx := t.Context()

	for i := range 5 {
		_, err := client.Login(ctx, "wronguser", "wrongpass")
		assertAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
		t.Logf("request %d rejected without rate limiting", i+1)
	}

	_, err := client.Login(ctx, "wronguser", "wrongpass")
	assertAPIError(t, err, http.StatusTooManyRequests, authsdk.ErrorCodeRateLimitExceeded)
}

// TestRateLimitCompositeKeys verifies login buckets are per username, so
// hammering one account does not lock everyone else out.
func TestRateLimitCompositeKeys(t *testing.T) {
	baseURL := setupAuthContainer(t, withDefaultRateLimits())
	client := authsdk.NewSDKClient(baseURL)
	ctx := t.Context()

	for range 6 {
		_, _ = client.Login(ctx, "target", "wrongpass")
	}
	_, err := client.Login(ctx, "target", "wrongpass")
	assertAPIError(t, err, http.StatusTooManyRequests, authsdk.ErrorCodeRateLimitExceeded)

	_, err = client.Login(ctx, adminUsername, adminPassword)
	require.NoError(t, err, "a different username has its own bucket")
}

// TestRateLimitHeadersPresent verifies a 429 carries the retry headers and
// the standard error body.
func TestRateLimitHeadersPresent(t *testing.T) {
	baseURL := setupAuthContainer(t, withDefaultRateLimits())
	httpClient := &http.Client{Timeout: 5 * time.Second}

	post := func() *http.Response {
		req, err := http.NewRequest(http.MethodPost, baseURL+"/v1/auth/join",
			strings.NewReader(`{"username":"x","password":"short"}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		resp, err := httpClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	for range 5 {
		resp := post()
		_ = resp.Body.Close()
		require.NotEqual(t, http.StatusTooManyRequests, resp.StatusCode)
	}

	resp := post()
	defer resp.Body.Close()

	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode, "Should receive 429 status")
	require.NotEmpty(t, resp.Header.Get("Retry-After"), "Should include Retry-After header")
	require.NotEmpty(t, resp.Header.Get("X-RateLimit-Limit"), "Should include X-RateLimit-Limit header")
	require.NotEmpty(t, resp.Header.Get("X-RateLimit-Window"), "Should include X-RateLimit-Window header")
	require.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}

// TestRateLimitHealthEndpoints verifies health check endpoints have lenient limits.
// Monitoring systems poll these frequently, so they need higher limits.
func TestRateLimitHealthEndpoints(t *testing.T) {
	baseURL := setupAuthContainer(t, withDefaultRateLimits())
	client := authsdk.NewSDKClient(baseURL)

	for i := range 30 {
		health, err := client.GetLiveness(t.Context())
		require.NoError(t, err, "Liveness request %d should not be rate limited", i+1)
		require.Equal(t, "ok", health.Status)

		health, err = client.GetReadiness(t.Context())
		require.NoError(t, err, "Readiness request %d should not be rate limited", i+1)
		require.Equal(t, "ok", health.Status)
	}
}

// TestRateLimitConcurrentRequests verifies the limiter holds under
// concurrent load: no more than the burst gets through.
func TestRateLimitConcurrentRequests(t *testing.T) {
	baseURL := setupAuthContainer(t, withDefaultRateLimits())
	httpClient := &http.Client{Timeout: 5 * time.Second}

	var (
		mu      sync.Mutex
		allowed int
		limited int
		wg      sync.WaitGroup
	)
	for range 20 {
		wg.Go(func() {
			req, err := http.NewRequest(http.MethodPost, baseURL+"/v1/auth/login",
				strings.NewReader(`{"username":"racer","password":"wrongpass"}`))
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := httpClient.Do(req)
			if err != nil {
				return
			}
			_ = resp.Body.Close()

			mu.Lock()
			defer mu.Unlock()
			if resp.StatusCode == http.StatusTooManyRequests {
				limited++
			} else {
				allowed++
			}
		})
	}
	wg.Wait()

	require.LessOrEqual(t, allowed, 5, "at most the burst should get through")
	require.Equal(t, 20, allowed+limited)
}
