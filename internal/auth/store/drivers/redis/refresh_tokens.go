package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trackcrate/trackcrate/internal/auth/domain"
	"github.com/trackcrate/trackcrate/internal/auth/store"
)

type refreshTokens struct {
	client *redis.Client
}

// rotateScript is the single-use swap. The old record must die and the new
// one must exist in one server-side step, otherwise two concurrent refresh
// calls could both win with the same token. Returns the owning subject or a
// nil reply when the old fingerprint is already gone.
//
// KEYS[1] old record key, KEYS[2] new record key
// ARGV[1] new record TTL in ms, ARGV[2] old fingerprint, ARGV[3] new fingerprint
var rotateScript = redis.NewScript(`
local sub = redis.call('GET', KEYS[1])
if not sub then
    return false
end
redis.call('DEL', KEYS[1])
redis.call('SET', KEYS[2], sub, 'PX', ARGV[1])
local idx = 'refreshsub:' .. sub
redis.call('SREM', idx, ARGV[2])
redis.call('SADD', idx, ARGV[3])
redis.call('PEXPIRE', idx, ARGV[1])
return sub
`)

// revokeScript removes one record and its index entry atomically.
//
// KEYS[1] record key, ARGV[1] fingerprint
var revokeScript = redis.NewScript(`
local sub = redis.call('GET', KEYS[1])
if not sub then
    return false
end
redis.call('DEL', KEYS[1])
redis.call('SREM', 'refreshsub:' .. sub, ARGV[1])
return sub
`)

// revokeAllScript sweeps every record in the subject index. Counts only
// records that still existed, so lapsed index entries don't inflate the
// result.
//
// KEYS[1] subject index key
var revokeAllScript = redis.NewScript(`
local fps = redis.call('SMEMBERS', KEYS[1])
local count = 0
for _, fp in ipairs(fps) do
    count = count + redis.call('DEL', 'refresh:' .. fp)
end
redis.call('DEL', KEYS[1])
return count
`)

func (r *refreshTokens) Create(ctx context.Context, rec domain.RefreshRecord) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("redis: refresh record already expired")
	}

	key := refreshKeyPrefix + rec.Fingerprint
	idx := refreshSubKeyPrefix + rec.SubjectID

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, rec.SubjectID, ttl)
	pipe.SAdd(ctx, idx, rec.Fingerprint)
	pipe.PExpire(ctx, idx, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: create refresh record: %w", err)
	}
	return nil
}

func (r *refreshTokens) Lookup(ctx context.Context, fingerprint string) (string, error) {
	subject, err := r.client.Get(ctx, refreshKeyPrefix+fingerprint).Result()
	if errors.Is(err, redis.Nil) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis: lookup refresh record: %w", err)
	}
	return subject, nil
}

func (r *refreshTokens) Rotate(ctx context.Context, oldFingerprint string, next domain.RefreshRecord) (string, error) {
	ttl := time.Until(next.ExpiresAt)
	if ttl <= 0 {
		return "", fmt.Errorf("redis: replacement refresh record already expired")
	}

	subject, err := rotateScript.Run(ctx, r.client,
		[]string{refreshKeyPrefix + oldFingerprint, refreshKeyPrefix + next.Fingerprint},
		ttl.Milliseconds(), oldFingerprint, next.Fingerprint,
	).Text()
	if errors.Is(err, redis.Nil) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis: rotate refresh record: %w", err)
	}
	return subject, nil
}

func (r *refreshTokens) Revoke(ctx context.Context, fingerprint string) error {
	err := revokeScript.Run(ctx, r.client,
		[]string{refreshKeyPrefix + fingerprint},
		fingerprint,
	).Err()
	if errors.Is(err, redis.Nil) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis: revoke refresh record: %w", err)
	}
	return nil
}

func (r *refreshTokens) RevokeAllForSubject(ctx context.Context, subjectID string) (int, error) {
	count, err := revokeAllScript.Run(ctx, r.client,
		[]string{refreshSubKeyPrefix + subjectID},
	).Int()
	if err != nil {
		return 0, fmt.Errorf("redis: revoke all for subject: %w", err)
	}
	return count, nil
}
