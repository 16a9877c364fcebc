package domain

import "time"

// TokenPair is what login and refresh hand back: the short-lived access
// token (JWT) and the opaque single-use refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string // always "Bearer"
	ExpiresIn    int    // seconds until the access token expires
}

// RefreshRecord models a stored refresh token. The raw value never touches
// storage; records are keyed by a deterministic fingerprint (base64url
// SHA-256) so a store dump cannot be replayed.
type RefreshRecord struct {
	Fingerprint string
	SubjectID   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}
