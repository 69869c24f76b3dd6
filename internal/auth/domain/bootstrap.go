package domain

// BootstrapAdmin describes the administrator created on first start when the
// user table is empty.
type BootstrapAdmin struct {
	Username string
	Password string
}
