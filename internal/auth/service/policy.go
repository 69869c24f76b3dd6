package service

import "github.com/aussiebroadwan/tokengate/internal/auth/domain"

// IsUsable is the account status policy: not banned and no more than
// domain.LockoutThreshold failed logins.
func IsUsable(id domain.Identity) bool {
	return id.Enabled()
}

// CheckAccount explains why an identity is not usable. A banned account
// reports ErrAccountBanned even if it is locked as well.
func CheckAccount(id domain.Identity) error {
	switch {
	case id.Banned:
		return ErrAccountBanned
	case id.Locked():
		return ErrAccountLocked
	default:
		return nil
	}
}
