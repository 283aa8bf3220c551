package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist tracks revoked access-token IDs (jti claims) in Redis. Access
// tokens are self-contained and short-lived, so entries only need to live
// until the token they name expires; the TTL handles cleanup.
type Denylist struct {
	redis *redis.Client
}

func NewDenylist(redisClient *redis.Client) *Denylist {
	return &Denylist{
		redis: redisClient,
	}
}

// Deny records a token ID until expiresAt. Already-expired tokens are
// skipped; there is nothing left to revoke.
func (d *Denylist) Deny(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	key := fmt.Sprintf("denylist:jti:%s", jti)

	if err := d.redis.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to add token to denylist: %w", err)
	}

	return nil
}

// IsDenied checks whether a token ID has been revoked.
func (d *Denylist) IsDenied(ctx context.Context, jti string) (bool, error) {
	key := fmt.Sprintf("denylist:jti:%s", jti)

	exists, err := d.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check denylist: %w", err)
	}

	return exists > 0, nil
}
