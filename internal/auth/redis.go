package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ InvalidatedTokenStore = (*RedisInvalidatedTokenStore)(nil)

const revokedKeyPrefix = "auth:revoked:"

// RedisInvalidatedTokenStore implements the revocation denylist on Redis.
// Each revoked jti becomes a key with a TTL running to the entry's
// ExpiryTime, so stale entries disappear without a housekeeping process.
type RedisInvalidatedTokenStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisInvalidatedTokenStore(client *redis.Client) *RedisInvalidatedTokenStore {
	return &RedisInvalidatedTokenStore{client: client, now: time.Now}
}

func (s *RedisInvalidatedTokenStore) Contains(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Insert is idempotent: SET on an existing key just refreshes the TTL.
func (s *RedisInvalidatedTokenStore) Insert(ctx context.Context, token InvalidatedToken) error {
	ttl := token.ExpiryTime.Sub(s.now())
	if ttl <= 0 {
		// The entry would be gone already; expiry checks reject the token.
		return nil
	}
	return s.client.Set(ctx, revokedKeyPrefix+token.ID, "1", ttl).Err()
}
