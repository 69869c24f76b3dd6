package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/aussiebroadwan/tokengate/internal/auth/domain"
	"github.com/aussiebroadwan/tokengate/internal/auth/store"
	"github.com/aussiebroadwan/tokengate/pkg/idx"
	"github.com/aussiebroadwan/tokengate/pkg/slogx"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

// PasswordHasher hashes new passwords and checks presented ones.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Matches(password, encodedHash string) bool
	NeedsRehash(encodedHash string) bool
}

// AuthService is the login path: account creation, password login, logout,
// refresh and self-service password changes.
type AuthService struct {
	Users     store.Users
	Tokens    *TokenService
	Passwords PasswordHasher

	decoyOnce sync.Once
	decoy     string
}

// Join creates a USER account.
func (s *AuthService) Join(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return domain.User{}, badRequest("username must be 3-32 letters, digits, '.', '_' or '-'")
	}
	if err := validatePassword(password); err != nil {
		return domain.User{}, err
	}

	return s.create(ctx, username, password, domain.RoleUser)
}

func (s *AuthService) create(ctx context.Context, username, password string, role domain.Role) (domain.User, error) {
	hash, err := s.Passwords.Hash(password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.Tokens.now(),
	}

	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, unavailable("create user", err)
	}

	slogx.FromContext(ctx).Info("account created",
		slog.String("user_id", user.ID),
		slog.String("username", username),
		slog.String("role", role.String()),
	)
	return user, nil
}

// Login checks credentials and issues a token pair.
//
// Account status is checked before the password, so a locked or banned
// account is refused even with the right password. Each wrong password
// bumps the failed-login counter; only an explicit unlock resets it.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	// 1. Find the account
	user, err := s.Users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.burnHash(password)
			l.Info("login for unknown user", slog.String("username", username))
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, unavailable("lookup user", err)
	}

	// 2. Account status
	if err := CheckAccount(user.Identity()); err != nil {
		l.Info("login refused by account policy",
			slog.String("username", username),
			slog.Any("error", err),
		)
		return domain.TokenPair{}, err
	}

	// 3. Password
	if !s.Passwords.Matches(password, user.PasswordHash) {
		count, err := s.Users.IncrementFailedLogins(ctx, username)
		if err != nil {
			return domain.TokenPair{}, mapUserErr("count failed login", err)
		}

		l.Info("login with wrong password",
			slog.String("username", username),
			slog.Int("failed_login_count", count),
		)
		if count > domain.LockoutThreshold {
			l.Warn("account locked", slog.String("username", username))
		}
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	// 4. Upgrade legacy hashes while we hold the plaintext
	if s.Passwords.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, username, password)
	}

	// 5. Tokens
	pair, err := s.Tokens.IssueTokenPair(ctx, user)
	if err != nil {
		return domain.TokenPair{}, err
	}

	l.Info("login succeeded", slog.String("username", username))
	return pair, nil
}

func (s *AuthService) rehash(ctx context.Context, username, password string) {
	l := slogx.FromContext(ctx)

	hash, err := s.Passwords.Hash(password)
	if err != nil {
		l.Warn("failed to rehash password", slog.Any("error", err))
		return
	}
	if err := s.Users.UpdatePasswordHash(ctx, username, hash); err != nil {
		l.Warn("failed to store rehashed password", slog.Any("error", err))
		return
	}
	l.Info("upgraded password hash", slog.String("username", username))
}

// Logout revokes the presented access token and ends the subject's refresh
// session. Both writes land before Logout returns, so the very next request
// with that token is refused.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.Tokens.RevokeAccessToken(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := s.Tokens.RevokeRefreshSession(ctx, claims.Subject); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("logged out", slog.String("sub", claims.Subject))
	return nil
}

// Refresh issues a new access token from a refresh token. The same refresh
// token is handed back.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	access, err := s.Tokens.RotateAccessToken(ctx, refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return s.Tokens.pair(access, refreshToken), nil
}

// ChangePassword replaces the caller's password after checking the current
// one, then ends the refresh session so other devices have to log in again.
func (s *AuthService) ChangePassword(ctx context.Context, username, current, next string) error {
	user, err := s.Users.GetUserByUsername(ctx, username)
	if err != nil {
		return mapUserErr("lookup user", err)
	}

	if !s.Passwords.Matches(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	hash, err := s.Passwords.Hash(next)
	if err != nil {
		return err
	}
	if err := s.Users.UpdatePasswordHash(ctx, username, hash); err != nil {
		return mapUserErr("update password", err)
	}

	if err := s.Tokens.RevokeRefreshSession(ctx, username); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password changed", slog.String("username", username))
	return nil
}

// DeleteAccount removes the account and its refresh session.
func (s *AuthService) DeleteAccount(ctx context.Context, username string) error {
	if err := s.Users.DeleteUser(ctx, username); err != nil {
		return mapUserErr("delete user", err)
	}

	if err := s.Tokens.RevokeRefreshSession(ctx, username); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("account deleted", slog.String("username", username))
	return nil
}

// burnHash checks password against a throwaway hash so a login for an
// unknown account costs the same as a wrong password.
func (s *AuthService) burnHash(password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.Passwords.Hash(idx.New().String())
		if err != nil {
			return
		}
		s.decoy = hash
	})
	if s.decoy != "" {
		s.Passwords.Matches(password, s.decoy)
	}
}

func validatePassword(p string) error {
	if len(p) < MinPasswordLength || len(p) > MaxPasswordLength {
		return badRequest("password must be 8-128 characters")
	}
	return nil
}
