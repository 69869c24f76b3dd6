package authsdk

import (
	"context"
	"net/http"
)

// Me returns the caller's account.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/me", nil, nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword replaces the caller's password. The server ends the refresh
// session, so this Session can't refresh afterwards.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	body, err := jsonBody(ChangePasswordRequest{CurrentPassword: current, NewPassword: next})
	if err != nil {
		return err
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/me/password", body, jsonHeaders)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// DeleteAccount removes the caller's account.
func (s *Session) DeleteAccount(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/me", nil, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
