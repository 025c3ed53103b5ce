package sessions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionExpired is returned when storing a session whose expiry has passed.
var ErrSessionExpired = errors.New("session already expired")

const defaultRedisPrefix = "session:refresh:"

// RedisRepository keeps each refresh session in a Redis hash at
// "<prefix><tokenHash>" that expires together with the session.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(hash string) string {
	return r.prefix + hash
}

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	if !s.ExpiresAt.After(time.Now()) {
		return ErrSessionExpired
	}
	key := r.key(s.TokenHash)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, map[string]interface{}{
			"sub":       s.Sub,
			"remember":  strconv.FormatBool(s.Remember),
			"createdAt": s.CreatedAt.UTC().Format(time.RFC3339Nano),
			"expiresAt": s.ExpiresAt.UTC().Format(time.RFC3339Nano),
		})
		p.PExpireAt(ctx, key, s.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// GetByHash returns nil, nil for unknown or expired sessions.
func (r *RedisRepository) GetByHash(ctx context.Context, hash string) (*Session, error) {
	fields, err := r.client.HGetAll(ctx, r.key(hash)).Result()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	s := &Session{TokenHash: hash, Sub: fields["sub"]}
	s.Remember, _ = strconv.ParseBool(fields["remember"])
	if s.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["createdAt"]); err != nil {
		return nil, fmt.Errorf("load session: createdAt: %w", err)
	}
	if s.ExpiresAt, err = time.Parse(time.RFC3339Nano, fields["expiresAt"]); err != nil {
		return nil, fmt.Errorf("load session: expiresAt: %w", err)
	}
	return s, nil
}

func (r *RedisRepository) DeleteByHash(ctx context.Context, hash string) error {
	return r.client.Del(ctx, r.key(hash)).Err()
}
