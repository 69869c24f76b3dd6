package authsdk

// ============================================================================
// Internal Response Types (used for JSON unmarshaling)
// ============================================================================

// ErrorResponse is the wire form of an error body. Client code should use
// APIError instead.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Account Types
// ============================================================================

// CredentialsRequest is the body of POST /v1/auth/join and /v1/auth/login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the body of POST /v1/me/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// SetRoleRequest is the body of POST /v1/admin/users/{username}/role.
type SetRoleRequest struct {
	Role string `json:"role"`
}

// UserResponse describes an account. Returned by join, /v1/me and the admin
// endpoints.
type UserResponse struct {
	Username         string `json:"username"`
	Role             string `json:"role"`
	Banned           bool   `json:"banned"`
	Locked           bool   `json:"locked"`
	FailedLoginCount int    `json:"failed_login_count"`
}

// ListUsersResponse is returned by GET /v1/admin/users.
type ListUsersResponse struct {
	Users []UserResponse `json:"users"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	// AccessToken authorizes API calls
	AccessToken string `json:"access_token"`

	// RefreshToken obtains new access tokens. Refresh hands back the same one.
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds
	ExpiresIn int64 `json:"expires_in"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency /readyz looked at.
type HealthChecks struct {
	// Database is the user store
	Database string `json:"database"`

	// Revocation is the key-value store holding blacklist and sessions
	Revocation string `json:"revocation"`
}
