package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/frahmantamala/shopbot-engine/internal/catalog"
	"github.com/frahmantamala/shopbot-engine/internal/core/redisx"
	"github.com/redis/go-redis/v9"
)

// RedisCache stores catalog entries as JSON strings.
type RedisCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisCache(rdb redis.UniversalClient, ttl time.Duration) catalog.CacheAPI {
	if ttl <= 0 {
		ttl = redisx.TTLCatalog
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) GetProduct(ctx context.Context, productID int64) (*catalog.Product, error) {
	var product catalog.Product
	found, err := c.get(ctx, redisx.CatalogProductKey(productID), &product)
	if err != nil || !found {
		return nil, err
	}
	return &product, nil
}

func (c *RedisCache) SetProduct(ctx context.Context, p *catalog.Product) error {
	return c.set(ctx, redisx.CatalogProductKey(p.ID), p)
}

func (c *RedisCache) GetList(ctx context.Context) ([]*catalog.Product, error) {
	var products []*catalog.Product
	found, err := c.get(ctx, redisx.KeyCatalogList, &products)
	if err != nil || !found {
		return nil, err
	}
	if products == nil {
		products = make([]*catalog.Product, 0)
	}
	return products, nil
}

func (c *RedisCache) SetList(ctx context.Context, products []*catalog.Product) error {
	return c.set(ctx, redisx.KeyCatalogList, products)
}

// Invalidate drops the product entry and the list it may appear in.
func (c *RedisCache) Invalidate(ctx context.Context, productID int64) error {
	return c.rdb.Del(ctx, redisx.CatalogProductKey(productID), redisx.KeyCatalogList).Err()
}

func (c *RedisCache) get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// treat a corrupt entry as a miss; the next write replaces it
		return false, nil
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}
