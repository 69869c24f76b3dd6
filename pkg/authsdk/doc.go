/*
Package authsdk is a Go client for the tokengate authentication service.

# SDKClient vs Session

SDKClient covers the endpoints that need no token (join, login, refresh and
the health probes) and creates Sessions:

	client := authsdk.NewSDKClient("https://auth.example.com")

	if _, err := client.Join(ctx, "alice", "correct horse"); err != nil {
		return err
	}

	session, err := client.AuthenticateWithPassword(ctx, "alice", "correct horse")

A Session carries the token pair and refreshes the access token when it runs
out, using the refresh token as the bearer credential of POST
/v1/auth/refresh. Refresh tokens are not single use: the same one comes back
from every refresh until logout or expiry.

	me, err := session.Me(ctx)

	// ADMIN only
	err = session.BanUser(ctx, "mallory")

	// Revokes the access token and ends the refresh session
	err = session.Logout(ctx)

# Errors

Non-2xx responses come back as *APIError. Compare them against the predefined
values with errors.Is:

	_, err := client.Login(ctx, "alice", "wrong")
	switch {
	case errors.Is(err, authsdk.ErrInvalidCredentials):
	case errors.Is(err, authsdk.ErrAccountLocked):
	case errors.Is(err, authsdk.ErrAccountBanned):
	}

Every token failure on a protected route is the same ErrInvalidToken; the
server never says whether a token was expired, revoked or forged. A banned or
locked account gets ErrAccessDenied on protected routes and only learns which
one at login.

# Thread Safety

Sessions are safe for concurrent use. Concurrent callers that find the access
token expired share a single refresh.
*/
package authsdk
