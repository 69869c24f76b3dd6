package http

import (
	"net/http"

	"github.com/aussiebroadwan/tokengate/internal/auth/domain"
	"github.com/aussiebroadwan/tokengate/internal/auth/service"
	"github.com/aussiebroadwan/tokengate/pkg/authsdk"
	"github.com/aussiebroadwan/tokengate/pkg/httpx"
)

// MeHandler serves the caller's own account.
type MeHandler struct {
	AuthService *service.AuthService
}

func principalIdentity(r *http.Request) (domain.Identity, bool) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := p.(domain.Identity)
	return id, ok
}

// HandleGet godoc
//
//	@Summary		Current account
//	@Tags			Account
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"access_denied"
//	@Router			/v1/me [get].
func (h *MeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := principalIdentity(r)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userResponse(id))
}

// HandleChangePassword godoc
//
//	@Summary		Change password
//	@Description	Ends the refresh session, other devices have to log in again.
//	@Tags			Account
//	@Security		BearerAuth
//	@Accept			json
//	@Param			body	body	authsdk.ChangePasswordRequest	true	"current and new password"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token or invalid_credentials"
//	@Router			/v1/me/password [post].
func (h *MeHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := principalIdentity(r)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.AuthService.ChangePassword(r.Context(), id.Username, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete godoc
//
//	@Summary		Delete account
//	@Tags			Account
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/v1/me [delete].
func (h *MeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := principalIdentity(r)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.AuthService.DeleteAccount(r.Context(), id.Username); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
