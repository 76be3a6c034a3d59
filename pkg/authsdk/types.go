package authsdk

// ============================================================================
// Internal Response Types (used for JSON unmarshaling)
// ============================================================================

// ErrorResponse is the body of every non-2xx response.
// Client code should use the APIError type from errors.go instead.
type ErrorResponse struct {
	// Error is the machine readable kind (e.g. "invalid_credentials")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Session Types
// ============================================================================

// RegisterRequest creates an account and signs it in.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role,omitempty"` // defaults to "buyer"
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// LoginRequest exchanges email and password for a token pair.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest optionally carries the refresh token of the current device.
// Logout ends every session of the account either way.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// SessionResponse is returned by register, login and refresh.
type SessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds
	ExpiresIn int64 `json:"expires_in"`

	Account Identity `json:"account"`
}

// Identity is the public view of an account.
type Identity struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Permissions []string `json:"permissions"`
}

// ============================================================================
// Password Reset Types
// ============================================================================

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResponse has the same shape whether or not the account exists.
type ForgotPasswordResponse struct {
	Message string `json:"message"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type ResetCheckRequest struct {
	Token string `json:"token"`
}

// ============================================================================
// Operator Types
// ============================================================================

// RevokeSessionsResponse reports how many refresh records were dropped.
type RevokeSessionsResponse struct {
	AccountID string `json:"account_id"`
	Revoked   int    `json:"revoked"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks holds per-dependency readiness.
type HealthChecks struct {
	Directory  string `json:"directory"`
	Revocation string `json:"revocation"`
}
