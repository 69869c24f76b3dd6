package domain

import "time"

// User is the stored account record.
type User struct {
	ID               string
	Username         string
	PasswordHash     string // argon2id PHC, or bcrypt for imported accounts
	Role             Role
	Banned           bool
	FailedLoginCount int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Identity projects the user down to what authentication needs.
func (u *User) Identity() Identity {
	return Identity{
		Username:         u.Username,
		Role:             u.Role,
		Banned:           u.Banned,
		FailedLoginCount: u.FailedLoginCount,
	}
}

func (u *User) Name() string { return u.Username }
func (u *User) Credentials() string { return u.PasswordHash }
func (u *User) Authority() Role { return u.Role }
func (u *User) Enabled() bool { return u.Identity().Enabled() }
func (u *User) HasRole(r string) bool { return u.Role.Implies(Role(r)) }
