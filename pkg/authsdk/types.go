package authsdk

import "time"

// ============================================================================
// Request Types
// ============================================================================

// LoginRequest carries the credentials for POST /v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest carries the refresh token for POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest carries the tokens for POST /v1/auth/logout. The refresh
// token is required; the access token is optional and, when present, is
// denylisted for the remainder of its lifetime.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
	AccessToken  string `json:"accessToken,omitempty"`
}

// ValidateTokenRequest carries the raw token for POST /v1/auth/validate-token.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ============================================================================
// Response Types
// ============================================================================

// TokenPairResponse is returned by login and refresh. The access token is a
// JWT; the refresh token is opaque and single-use.
type TokenPairResponse struct {
	// AccessToken is the JWT used to authenticate API requests
	AccessToken string `json:"accessToken"`

	// RefreshToken is the opaque token exchanged for the next pair
	RefreshToken string `json:"refreshToken"`

	// TokenType is always "Bearer"
	TokenType string `json:"tokenType"`

	// ExpiresIn is the access token lifetime in seconds
	ExpiresIn int `json:"expiresIn"`
}

// ValidateTokenResponse reports whether a token is currently acceptable.
// Invalid tokens are not errors here; the endpoint always answers 200 with
// Valid false unless the input itself was malformed.
type ValidateTokenResponse struct {
	Valid bool `json:"valid"`

	// User is present only when Valid is true.
	User *TokenUser `json:"user,omitempty"`
}

// TokenUser is the identity snapshot embedded in a valid token.
type TokenUser struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// UserInfo is returned by GET /v1/me and listed by GET /v1/admin/users.
type UserInfo struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// RevokeAllResponse reports how many refresh records the revoke-all sweep
// destroyed.
type RevokeAllResponse struct {
	Revoked int `json:"revoked"`
}

// HealthResponse is returned by the /livez and /readyz probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database    string `json:"database"`
	Credentials string `json:"credentials"`
}

// ErrorResponse is the error envelope every failing endpoint returns.
type ErrorResponse struct {
	// Error is the machine-readable code (e.g. "INVALID_CREDENTIALS")
	Error string `json:"error"`

	// Message is the human-readable description
	Message string `json:"message"`
}
