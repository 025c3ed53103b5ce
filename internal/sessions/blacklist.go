package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist records revoked access tokens until they would have expired.
// A Blacklist with a nil client is a no-op.
type Blacklist struct {
	client *redis.Client
	prefix string
}

func NewBlacklist(client *redis.Client, prefix string) *Blacklist {
	if prefix == "" {
		prefix = "blacklist:access:"
	}
	return &Blacklist{client: client, prefix: prefix}
}

func (b *Blacklist) enabled() bool { return b != nil && b.client != nil }

// Add revokes token for ttl. Non-positive ttl means the token already expired.
func (b *Blacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if !b.enabled() || ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, b.prefix+HashToken(token), "1", ttl).Err()
}

// Contains reports whether token has been revoked.
func (b *Blacklist) Contains(ctx context.Context, token string) (bool, error) {
	if !b.enabled() {
		return false, nil
	}
	exists, err := b.client.Exists(ctx, b.prefix+HashToken(token)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
