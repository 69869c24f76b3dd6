//go:build e2e

package auth_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/tokengate/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestInvalidCredentials verifies that login with a wrong password or an
// unknown user is rejected the same way.
func TestInvalidCredentials(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewSDKClient(baseURL)

	_, err := client.Login(t.Context(), adminUsername, "wrong-password")
	assertAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)

	_, err = client.Login(t.Context(), "nobody", "wrong-password")
	assertAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
}

// TestInvalidAccessToken verifies protected routes reject garbage tokens.
func TestInvalidAccessToken(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewSDKClient(baseURL)

	invalid := client.NewSessionFromTokens("invalid-token-12345", "", 3600)

	_, err := invalid.Me(t.Context())
	assertAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
}

// TestLockoutAndBan verifies repeated failures lock an account until an
// admin unlocks it, and that a ban cuts off a live session.
func TestLockoutAndBan(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewSDKClient(baseURL)
	ctx := t.Context()

	admin := adminSession(t, client)
	dave := signup(t, client, "dave")

	for range 5 {
		_, err := client.Login(ctx, "dave", "wrong-password")
		assertAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
	}

	_, err := client.Login(ctx, "dave", userPassword)
	assertAPIError(t, err, http.StatusForbidden, authsdk.ErrorCodeAccountLocked)

	require.NoError(t, admin.UnlockUser(ctx, "dave"))
	_, err = client.Login(ctx, "dave", userPassword)
	require.NoError(t, err)

	require.NoError(t, admin.BanUser(ctx, "dave"))

	_, err = dave.Me(ctx)
	assertAPIError(t, err, http.StatusForbidden, authsdk.ErrorCodeAccessDenied)

	_, err = client.Login(ctx, "dave", userPassword)
	assertAPIError(t, err, http.StatusForbidden, authsdk.ErrorCodeAccountBanned)

	_, err = client.Refresh(ctx, dave.RefreshToken())
	assertAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
}
