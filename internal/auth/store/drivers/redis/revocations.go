package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type revocations struct {
	client *redis.Client
}

func (r *revocations) Denylist(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// The token is already past expiry; verification rejects it anyway.
		return nil
	}

	err := r.client.Set(ctx, revokedJTIPrefix+jti, "1", ttl).Err()
	if err != nil {
		return fmt.Errorf("redis: denylist jti: %w", err)
	}
	return nil
}

func (r *revocations) DenylistSubject(ctx context.Context, subjectID string, ttl time.Duration) error {
	// The marker stores the revocation moment in unix-ms. It only has to
	// outlive the longest access token issued before it.
	now := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)

	err := r.client.Set(ctx, revokedSubPrefix+subjectID, now, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis: denylist subject: %w", err)
	}
	return nil
}

func (r *revocations) IsRevoked(ctx context.Context, jti, subjectID string, issuedAt time.Time) (bool, error) {
	pipe := r.client.Pipeline()
	jtiCmd := pipe.Exists(ctx, revokedJTIPrefix+jti)
	subCmd := pipe.Get(ctx, revokedSubPrefix+subjectID)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("redis: revocation check: %w", err)
	}

	if jtiCmd.Val() > 0 {
		return true, nil
	}

	marker, err := subCmd.Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis: revocation check: %w", err)
	}

	revokedAtMs, err := strconv.ParseInt(marker, 10, 64)
	if err != nil {
		// Unparseable marker means the ledger is corrupt; fail closed.
		return true, nil
	}

	revokedAt := time.UnixMilli(revokedAtMs)
	return !issuedAt.After(revokedAt), nil
}
