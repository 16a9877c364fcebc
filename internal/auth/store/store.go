package store

import (
	"context"
	"errors"
	"time"

	"github.com/trackcrate/trackcrate/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// UserStore is the durable side of the authority: the user records password
// login verifies against. Concrete drivers (sqlite today) implement this.
type UserStore interface {
	Users() Users

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during password login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// ListUsers returns all users ordered by creation date (newest first).
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// DeleteUser removes the user record. Live tokens are the credential
	// store's problem; callers revoke-all first.
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users. Drives first-boot admin
	// seeding.
	IsEmpty(ctx context.Context) (bool, error)
}

// CredentialStore is the volatile side of the authority: refresh records and
// the revocation ledger. Everything in it carries a TTL and can be rebuilt
// by users logging in again, so losing it is an inconvenience, not data
// loss. Backed by redis in production and an in-memory driver for dev and
// tests.
type CredentialStore interface {
	RefreshTokens() RefreshTokens
	Revocations() Revocations

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}

type RefreshTokens interface {
	// Create stores a refresh record under its fingerprint with the given
	// lifetime.
	Create(ctx context.Context, rec domain.RefreshRecord) error

	// Lookup resolves a fingerprint to its owning subject, or ErrNotFound.
	Lookup(ctx context.Context, fingerprint string) (subjectID string, err error)

	// Rotate atomically destroys the old record and stores the new one for
	// the same subject. Exactly one concurrent caller wins; the rest get
	// ErrNotFound. Returns the owning subject id.
	Rotate(ctx context.Context, oldFingerprint string, next domain.RefreshRecord) (subjectID string, err error)

	// Revoke destroys a single record, or ErrNotFound if absent.
	Revoke(ctx context.Context, fingerprint string) error

	// RevokeAllForSubject destroys every record owned by the subject and
	// returns how many there were.
	RevokeAllForSubject(ctx context.Context, subjectID string) (int, error)
}

type Revocations interface {
	// Denylist marks a single access token (by jti) as revoked until its
	// natural expiry, after which the marker lapses on its own.
	Denylist(ctx context.Context, jti string, expiresAt time.Time) error

	// DenylistSubject revokes every access token issued to the subject
	// before now. The marker only needs to outlive the longest possible
	// access token, so ttl is the access token lifetime.
	DenylistSubject(ctx context.Context, subjectID string, ttl time.Duration) error

	// IsRevoked answers whether a token is on the ledger, either directly
	// by jti or swept up by a subject-wide marker newer than its issuance.
	IsRevoked(ctx context.Context, jti, subjectID string, issuedAt time.Time) (bool, error)
}
