package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/majstudio/community-bot/internal/domain"
)

const orderCachePrefix = "order:"

// OrderCache holds recent order lookups so repeated clicks do not hit the order API.
type OrderCache interface {
	Get(ctx context.Context, code string) (*domain.Order, bool, error)
	Set(ctx context.Context, code string, order domain.Order, ttl time.Duration) error
}

type orderCache struct {
	client *redis.Client
}

// NewOrderCache builds a Redis backed cache. A nil client yields a cache that never hits.
func NewOrderCache(client *redis.Client) OrderCache {
	return &orderCache{client: client}
}

func (c *orderCache) Get(ctx context.Context, code string) (*domain.Order, bool, error) {
	if c.client == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, orderCachePrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, false, err
	}
	return &order, true, nil
}

func (c *orderCache) Set(ctx context.Context, code string, order domain.Order, ttl time.Duration) error {
	if c.client == nil || ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, orderCachePrefix+code, raw, ttl).Err()
}
