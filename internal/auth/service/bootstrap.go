package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/tokengate/internal/auth/domain"
	"github.com/aussiebroadwan/tokengate/internal/auth/store"
	"github.com/aussiebroadwan/tokengate/pkg/idx"
	"github.com/aussiebroadwan/tokengate/pkg/slogx"
)

var ErrBootstrapAlready = errors.New("system already bootstrapped")

// BootstrapService creates the first administrator on an empty database.
type BootstrapService struct {
	Store     store.Store
	Passwords PasswordHasher
}

// EnsureAdmin creates admin when no account exists yet. It returns
// ErrBootstrapAlready otherwise, which callers usually ignore.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, admin domain.BootstrapAdmin) error {
	l := slogx.FromContext(ctx)

	if !usernamePattern.MatchString(admin.Username) {
		return badRequest("bootstrap username is invalid")
	}
	if err := validatePassword(admin.Password); err != nil {
		return err
	}

	hash, err := s.Passwords.Hash(admin.Password)
	if err != nil {
		return err
	}

	userID := idx.New().String()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// 1. Only on an empty system
		empty, err := tx.Users().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return ErrBootstrapAlready
		}

		// 2. Create the administrator
		return tx.Users().CreateUser(ctx, domain.User{
			ID:           userID,
			Username:     admin.Username,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
		})
	})
	if err != nil {
		return err
	}

	l.Info("bootstrapped administrator",
		slog.String("user_id", userID),
		slog.String("username", admin.Username),
	)
	return nil
}
