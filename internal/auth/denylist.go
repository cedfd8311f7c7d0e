package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist remembers revoked token IDs until the tokens would have expired.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// NopDenylist is used when no redis is configured; logout is then client-side only.
type NopDenylist struct{}

func (NopDenylist) Revoke(context.Context, string, time.Duration) error { return nil }

func (NopDenylist) IsRevoked(context.Context, string) (bool, error) { return false, nil }

type RedisDenylist struct {
	client *redis.Client
	prefix string
}

func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client, prefix: "auth:revoked:"}
}

// Connect opens a redis client and verifies it answers.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, d.prefix+tokenID, "1", ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
