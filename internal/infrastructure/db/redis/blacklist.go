package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// minBlacklistTTL keeps an entry alive for tokens that are about to expire
// anyway, so a zero or negative TTL never reaches SET.
const minBlacklistTTL = time.Second

// TokenBlacklist records revoked refresh tokens in Redis.
// Key format: blacklist:refresh:<jti>
type TokenBlacklist struct {
	client *redis.Client
	now    func() time.Time
}

// NewTokenBlacklist creates a TokenBlacklist wrapping the given Redis client.
func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client, now: time.Now}
}

// Revoke marks jti revoked until the token's own expiry. SETNX makes the
// first revocation win; later calls report false.
func (b *TokenBlacklist) Revoke(ctx context.Context, jti string, until time.Time) (bool, error) {
	ttl := until.Sub(b.now())
	if ttl < minBlacklistTTL {
		ttl = minBlacklistTTL
	}

	ok, err := b.client.SetNX(ctx, b.key(jti), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist revoke: %w", err)
	}
	return ok, nil
}

// IsRevoked reports whether jti has been revoked and has not yet expired.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, b.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist check: %w", err)
	}
	return n > 0, nil
}

// Ping reports whether Redis answers.
func (b *TokenBlacklist) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *TokenBlacklist) key(jti string) string {
	return fmt.Sprintf("blacklist:refresh:%s", jti)
}
