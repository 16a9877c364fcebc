// Package redis is the production CredentialStore. Refresh records and
// revocation markers are exactly the kind of state redis is for: every key
// carries a TTL, loss is recoverable by logging in again, and rotation
// needs one atomic compare-and-swap, which a server-side script gives us
// without locks.
//
// Key scheme:
//
//	refresh:<fingerprint>   -> subject id, PX = refresh TTL
//	refreshsub:<subject>    -> SET of live fingerprints for revoke-all
//	revoked:jti:<jti>       -> "1", expires when the token would have
//	revoked:sub:<subject>   -> revocation unix-ms, PX = access TTL
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trackcrate/trackcrate/internal/auth/store"
)

const (
	refreshKeyPrefix    = "refresh:"
	refreshSubKeyPrefix = "refreshsub:"
	revokedJTIPrefix    = "revoked:jti:"
	revokedSubPrefix    = "revoked:sub:"
)

type Config struct {
	Addr     string
	Password string
	DB       int

	// DialTimeout bounds the initial connection attempt.
	DialTimeout time.Duration
}

type Store struct {
	client *redis.Client
}

func NewStore(cfg Config) *Store {
	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})
	return &Store{client: client}
}

// NewStoreFromClient wraps an existing client. Used by integration tests
// that stand up their own redis.
func NewStoreFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) RefreshTokens() store.RefreshTokens { return &refreshTokens{client: s.client} }
func (s *Store) Revocations() store.Revocations     { return &revocations{client: s.client} }

func (s *Store) Close() error { return s.client.Close() }

// Ping verifies the redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
