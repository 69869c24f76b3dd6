package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tokengate/internal/auth/domain"
)

type usersRepo struct {
	q *queries
}

func now() time.Time { return time.Now().UTC() }

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row, err := r.q.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	rows, err := r.q.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapUser(row))
	}
	return out, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	ts := u.CreatedAt
	if ts.IsZero() {
		ts = now()
	}

	err := r.q.CreateUser(ctx, userRow{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    ts.UTC(),
		UpdatedAt:    ts.UTC(),
	})
	return mapConstraint(err)
}

func (r *usersRepo) IncrementFailedLogins(ctx context.Context, username string) (int, error) {
	n, err := r.q.IncrementFailedLogins(ctx, username, now())
	if err != nil {
		return 0, mapNotFound(err)
	}
	return n, nil
}

func (r *usersRepo) ResetFailedLogins(ctx context.Context, username string) error {
	return mapAffected(r.q.ResetFailedLogins(ctx, username, now()))
}

func (r *usersRepo) SetBanned(ctx context.Context, username string, banned bool) error {
	return mapAffected(r.q.SetBanned(ctx, username, banned, now()))
}

func (r *usersRepo) UpdateRole(ctx context.Context, username string, role domain.Role) error {
	return mapAffected(r.q.UpdateRole(ctx, username, string(role), now()))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, username string, newHash string) error {
	return mapAffected(r.q.UpdatePasswordHash(ctx, username, newHash, now()))
}

func (r *usersRepo) DeleteUser(ctx context.Context, username string) error {
	return mapAffected(r.q.DeleteUser(ctx, username))
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	count, err := r.q.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
