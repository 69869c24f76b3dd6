package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/tokengate/internal/auth/domain"
	"github.com/aussiebroadwan/tokengate/internal/auth/service"
	"github.com/aussiebroadwan/tokengate/pkg/authsdk"
	"github.com/aussiebroadwan/tokengate/pkg/httpx"
)

// AdminHandler serves /v1/admin/users. The router only lets ADMIN callers
// with a usable account through.
type AdminHandler struct {
	AccountService *service.AccountService
}

// HandleList godoc
//
//	@Summary		List accounts
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			limit	query		int	false	"page size, at most 100"
//	@Param			offset	query		int	false	"accounts to skip"
//	@Success		200		{object}	authsdk.ListUsersResponse
//	@Router			/v1/admin/users [get].
func (h *AdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	ids, err := h.AccountService.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := authsdk.ListUsersResponse{Users: make([]authsdk.UserResponse, 0, len(ids))}
	for _, id := range ids {
		resp.Users = append(resp.Users, userResponse(id))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet godoc
//
//	@Summary		Account status
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			username	path		string	true	"account"
//	@Success		200			{object}	authsdk.UserResponse
//	@Failure		404			{object}	authsdk.ErrorResponse	"user_not_found"
//	@Router			/v1/admin/users/{username} [get].
func (h *AdminHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := h.AccountService.Status(r.Context(), r.PathValue("username"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userResponse(id))
}

// HandleBan godoc
//
//	@Summary		Ban an account
//	@Description	Also ends the account's refresh session.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Param			username	path	string	true	"account"
//	@Success		204
//	@Failure		404	{object}	authsdk.ErrorResponse	"user_not_found"
//	@Router			/v1/admin/users/{username}/ban [post].
func (h *AdminHandler) HandleBan(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.AccountService.Ban)
}

// HandleUnban godoc
//
//	@Summary		Lift a ban
//	@Tags			Admin
//	@Security		BearerAuth
//	@Param			username	path	string	true	"account"
//	@Success		204
//	@Router			/v1/admin/users/{username}/unban [post].
func (h *AdminHandler) HandleUnban(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.AccountService.Unban)
}

// HandleUnlock godoc
//
//	@Summary		Unlock an account
//	@Description	Resets the failed-login count to zero. A banned account stays banned.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Param			username	path	string	true	"account"
//	@Success		204
//	@Router			/v1/admin/users/{username}/unlock [post].
func (h *AdminHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.AccountService.Unlock)
}

// HandleSetRole godoc
//
//	@Summary		Change an account's role
//	@Description	Takes effect on the account's next refresh.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Param			username	path	string					true	"account"
//	@Param			body		body	authsdk.SetRoleRequest	true	"USER or ADMIN"
//	@Success		204
//	@Router			/v1/admin/users/{username}/role [post].
func (h *AdminHandler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SetRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		authsdk.ErrInvalidRequest.WithDescription("role must be USER or ADMIN").WriteError(w)
		return
	}

	if err := h.AccountService.SetRole(r.Context(), r.PathValue("username"), role); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) action(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, username string) error) {
	if err := fn(r.Context(), r.PathValue("username")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
