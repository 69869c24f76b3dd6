package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Admin operations. Each requires the ADMIN role.

// GetUser returns one account.
func (s *Session) GetUser(ctx context.Context, username string) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/admin/users/"+url.PathEscape(username), nil, nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers pages through accounts ordered by username.
func (s *Session) ListUsers(ctx context.Context, limit, offset int) ([]UserResponse, error) {
	q := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}

	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/admin/users?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}

	var list ListUsersResponse
	if err := decodeJSON(resp, &list, http.StatusOK); err != nil {
		return nil, err
	}
	return list.Users, nil
}

// BanUser bans an account and ends its refresh session.
func (s *Session) BanUser(ctx context.Context, username string) error {
	return s.adminAction(ctx, username, "ban")
}

// UnbanUser lifts a ban. A locked account stays locked.
func (s *Session) UnbanUser(ctx context.Context, username string) error {
	return s.adminAction(ctx, username, "unban")
}

// UnlockUser resets the failed-login count. A banned account stays banned.
func (s *Session) UnlockUser(ctx context.Context, username string) error {
	return s.adminAction(ctx, username, "unlock")
}

// SetRole changes an account's role (USER or ADMIN).
func (s *Session) SetRole(ctx context.Context, username, role string) error {
	body, err := jsonBody(SetRoleRequest{Role: role})
	if err != nil {
		return err
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPost,
		"/v1/admin/users/"+url.PathEscape(username)+"/role", body, jsonHeaders)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) adminAction(ctx context.Context, username, action string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost,
		"/v1/admin/users/"+url.PathEscape(username)+"/"+action, nil, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
