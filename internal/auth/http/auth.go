package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/tokengate/internal/auth/domain"
	"github.com/aussiebroadwan/tokengate/internal/auth/service"
	"github.com/aussiebroadwan/tokengate/pkg/authsdk"
	"github.com/aussiebroadwan/tokengate/pkg/httpx"
)

// AuthHandler serves the /v1/auth endpoints.
type AuthHandler struct {
	AuthService *service.AuthService
}

// HandleJoin godoc
//
//	@Summary		Create an account
//	@Description	Creates a USER account. Usernames are 3-32 characters of letters, digits, '.', '_' or '-'.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.CredentialsRequest	true	"username and password"
//	@Success		201		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		409		{object}	authsdk.ErrorResponse	"username_taken"
//	@Router			/v1/auth/join [post].
func (h *AuthHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CredentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.AuthService.Join(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, userResponse(user.Identity()))
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchanges credentials for an access and a refresh token.
//	@Description	Locked and banned accounts are refused even with the right password.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.CredentialsRequest	true	"username and password"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Failure		403		{object}	authsdk.ErrorResponse	"account_locked or account_banned"
//	@Header			200		{string}	Cache-Control	"no-store"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CredentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
	case errors.Is(err, service.ErrAccountLocked):
		authsdk.ErrAccountLocked.WriteError(w)
	case errors.Is(err, service.ErrAccountBanned):
		authsdk.ErrAccountBanned.WriteError(w)
	default:
		writeServiceError(w, r, err)
	}
}

// HandleRefresh godoc
//
//	@Summary		Refresh the access token
//	@Description	Takes the refresh token as the bearer credential and returns a new access token
//	@Description	carrying the account's current role. The same refresh token is returned.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.TokenResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"access_denied"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	refresh := httpx.BearerToken(r)
	if refresh == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	pair, err := h.AuthService.Refresh(r.Context(), refresh)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the presented access token and ends the account's refresh session.
//	@Description	The token is refused from the very next request.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Logout(r.Context(), httpx.BearerToken(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

func tokenResponse(p domain.TokenPair) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    p.ExpiresIn,
	}
}

func userResponse(id domain.Identity) authsdk.UserResponse {
	return authsdk.UserResponse{
		Username:         id.Username,
		Role:             id.Role.String(),
		Banned:           id.Banned,
		Locked:           id.Locked(),
		FailedLoginCount: id.FailedLoginCount,
	}
}
