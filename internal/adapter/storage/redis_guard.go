package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/shop-api/internal/port"
)

const (
	checkoutKeyPrefix = "checkout:"
	checkoutKeyTTL    = 24 * time.Hour
)

// RedisCheckoutGuard deduplicates checkout request IDs across processes.
type RedisCheckoutGuard struct {
	client *redis.Client
}

func NewRedisCheckoutGuard(client *redis.Client) *RedisCheckoutGuard {
	return &RedisCheckoutGuard{client: client}
}

var _ port.CheckoutGuard = (*RedisCheckoutGuard)(nil)

func (r *RedisCheckoutGuard) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, checkoutKeyPrefix+key, 1, checkoutKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
