package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/tokengate/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// hand out sub-repositories, which keeps transactions from being nested by
// accident.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is the transaction-scoped view handed to WithTx callbacks.
type Tx interface {
	Users() Users
}

// Users owns account records. Accounts are addressed by username because
// that is what tokens carry as their subject.
type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername resolves a token subject or a login name.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// ListUsers pages through accounts ordered by username.
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error)

	// CreateUser inserts a new user. Returns ErrAlreadyExists when the
	// username is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// IncrementFailedLogins atomically bumps the failed-login counter and
	// returns the new value.
	IncrementFailedLogins(ctx context.Context, username string) (int, error)

	// ResetFailedLogins sets the failed-login counter back to zero.
	ResetFailedLogins(ctx context.Context, username string) error

	// SetBanned flips the ban flag.
	SetBanned(ctx context.Context, username string, banned bool) error

	// UpdateRole changes the granted role.
	UpdateRole(ctx context.Context, username string, role domain.Role) error

	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, username string, newHash string) error

	// DeleteUser removes the account.
	DeleteUser(ctx context.Context, username string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}
