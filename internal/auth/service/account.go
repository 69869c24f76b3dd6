package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/tokengate/internal/auth/domain"
	"github.com/aussiebroadwan/tokengate/internal/auth/store"
	"github.com/aussiebroadwan/tokengate/pkg/slogx"
)

// AccountService drives the account state machine from the admin side.
// Ban and lock are separate axes: unlocking never unbans and the reverse.
type AccountService struct {
	Users  store.Users
	Tokens *TokenService
}

// Status returns the current identity for username.
func (s *AccountService) Status(ctx context.Context, username string) (domain.Identity, error) {
	u, err := s.Users.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.Identity{}, mapUserErr("get user", err)
	}
	return u.Identity(), nil
}

// List pages through accounts.
func (s *AccountService) List(ctx context.Context, limit, offset int) ([]domain.Identity, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.Users.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, unavailable("list users", err)
	}

	out := make([]domain.Identity, 0, len(users))
	for _, u := range users {
		out = append(out, u.Identity())
	}
	return out, nil
}

// Ban blocks the account and ends its refresh session so it can't mint new
// access tokens. Access tokens already out stay valid for their short
// lifetime on routes that don't re-check account status.
func (s *AccountService) Ban(ctx context.Context, username string) error {
	if err := s.Users.SetBanned(ctx, username, true); err != nil {
		return mapUserErr("ban", err)
	}

	if err := s.Tokens.RevokeRefreshSession(ctx, username); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("account banned", slog.String("username", username))
	return nil
}

// Unban lifts a ban. A locked account stays locked.
func (s *AccountService) Unban(ctx context.Context, username string) error {
	if err := s.Users.SetBanned(ctx, username, false); err != nil {
		return mapUserErr("unban", err)
	}

	slogx.FromContext(ctx).Info("account unbanned", slog.String("username", username))
	return nil
}

// Unlock resets the failed-login counter to zero. A banned account stays
// banned.
func (s *AccountService) Unlock(ctx context.Context, username string) error {
	if err := s.Users.ResetFailedLogins(ctx, username); err != nil {
		return mapUserErr("unlock", err)
	}

	slogx.FromContext(ctx).Info("account unlocked", slog.String("username", username))
	return nil
}

// SetRole changes the granted role. Outstanding access tokens keep the old
// role until they expire, the next rotation picks up the new one.
func (s *AccountService) SetRole(ctx context.Context, username string, role domain.Role) error {
	if !role.Valid() {
		return badRequest("role must be USER or ADMIN")
	}

	if err := s.Users.UpdateRole(ctx, username, role); err != nil {
		return mapUserErr("set role", err)
	}

	slogx.FromContext(ctx).Info("account role changed",
		slog.String("username", username),
		slog.String("role", role.String()),
	)
	return nil
}

func mapUserErr(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return unavailable(op, err)
}
