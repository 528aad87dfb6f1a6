package core

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevokedKeyPrefix namespaces revoked token IDs in Redis.
const RevokedKeyPrefix = "session:revoked:"

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// RedisRevocationStore implements RevocationStore on Redis keys that expire
// together with the token, so Redis itself evicts stale entries.
type RedisRevocationStore struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisRevocationStore(client redis.Cmdable) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, now: time.Now}
}

var _ RevocationStore = (*RedisRevocationStore)(nil)

func revokedKey(tokenID string) string {
	return RevokedKeyPrefix + tokenID
}

// Revoke stores the ID with EXPIREAT set to the token's expiry.
// SET + EXPIREAT run in one MULTI so a reader never sees a key without a deadline.
func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if !expiresAt.After(s.now()) {
		return nil
	}
	key := revokedKey(tokenID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, expiresAt.Unix(), 0)
		pipe.ExpireAt(ctx, key, expiresAt)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n == 1, nil
}

// Purge is a no-op: key expiry already bounds the set.
func (s *RedisRevocationStore) Purge(context.Context, time.Time) (int64, error) {
	return 0, nil
}
