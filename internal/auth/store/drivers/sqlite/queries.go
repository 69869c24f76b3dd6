package sqlite

import (
	"context"
	"database/sql"
	"time"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same queries run
// inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

// userRow mirrors the users table.
type userRow struct {
	ID               string
	Username         string
	PasswordHash     string
	Role             string
	Banned           bool
	FailedLoginCount int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const userColumns = `id, username, password_hash, role, banned, failed_login_count, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (userRow, error) {
	var u userRow
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.Role,
		&u.Banned,
		&u.FailedLoginCount,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *queries) GetUserByID(ctx context.Context, id string) (userRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = ?`

func (q *queries) GetUserByUsername(ctx context.Context, username string) (userRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY username LIMIT ? OFFSET ?`

func (q *queries) ListUsers(ctx context.Context, limit, offset int) ([]userRow, error) {
	rows, err := q.db.QueryContext(ctx, listUsers, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []userRow
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

const createUser = `
INSERT INTO users (id, username, password_hash, role, banned, failed_login_count, created_at, updated_at)
VALUES (?, ?, ?, ?, 0, 0, ?, ?)`

func (q *queries) CreateUser(ctx context.Context, u userRow) error {
	_, err := q.db.ExecContext(ctx, createUser,
		u.ID, u.Username, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
	return err
}

// incrementFailedLogins bumps the counter in one statement so concurrent bad
// logins can't lose an increment.
const incrementFailedLogins = `
UPDATE users SET failed_login_count = failed_login_count + 1, updated_at = ?
WHERE username = ?
RETURNING failed_login_count`

func (q *queries) IncrementFailedLogins(ctx context.Context, username string, now time.Time) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, incrementFailedLogins, now, username).Scan(&n)
	return n, err
}

const resetFailedLogins = `UPDATE users SET failed_login_count = 0, updated_at = ? WHERE username = ?`

func (q *queries) ResetFailedLogins(ctx context.Context, username string, now time.Time) (int64, error) {
	return q.exec(ctx, resetFailedLogins, now, username)
}

const setBanned = `UPDATE users SET banned = ?, updated_at = ? WHERE username = ?`

func (q *queries) SetBanned(ctx context.Context, username string, banned bool, now time.Time) (int64, error) {
	return q.exec(ctx, setBanned, banned, now, username)
}

const updateRole = `UPDATE users SET role = ?, updated_at = ? WHERE username = ?`

func (q *queries) UpdateRole(ctx context.Context, username, role string, now time.Time) (int64, error) {
	return q.exec(ctx, updateRole, role, now, username)
}

const updatePasswordHash = `UPDATE users SET password_hash = ?, updated_at = ? WHERE username = ?`

func (q *queries) UpdatePasswordHash(ctx context.Context, username, hash string, now time.Time) (int64, error) {
	return q.exec(ctx, updatePasswordHash, hash, now, username)
}

const deleteUser = `DELETE FROM users WHERE username = ?`

func (q *queries) DeleteUser(ctx context.Context, username string) (int64, error) {
	return q.exec(ctx, deleteUser, username)
}

const countUsers = `SELECT COUNT(*) FROM users`

func (q *queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&n)
	return n, err
}

// exec runs a write and reports the affected row count.
func (q *queries) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
