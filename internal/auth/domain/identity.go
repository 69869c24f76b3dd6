package domain

// LockoutThreshold is the highest failed-login count an account can carry
// and still sign in. The fifth consecutive failure locks it.
const LockoutThreshold = 4

// Principal is the capability set shared by every kind of authenticated
// account representation.
type Principal interface {
	Name() string
	Credentials() string
	Authority() Role
	Enabled() bool
}

var (
	_ Principal = (*User)(nil)
	_ Principal = Identity{}
)

// Identity is the read-only view of an account resolved from a token
// subject. It never carries credentials.
type Identity struct {
	Username         string `json:"username"`
	Role             Role   `json:"role"`
	Banned           bool   `json:"banned"`
	FailedLoginCount int    `json:"failed_login_count"`
}

// Locked reports whether too many failed logins have piled up.
func (i Identity) Locked() bool { return i.FailedLoginCount > LockoutThreshold }

// Enabled is the account status policy: not banned and not locked. The two
// are independent, unlocking a banned account leaves it banned.
func (i Identity) Enabled() bool { return !i.Banned && !i.Locked() }

func (i Identity) Name() string { return i.Username }
func (i Identity) Credentials() string { return "" }
func (i Identity) Authority() Role { return i.Role }
func (i Identity) HasRole(r string) bool { return i.Role.Implies(Role(r)) }
