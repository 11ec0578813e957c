package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stocks-simulator/logger"
	"stocks-simulator/models"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
)

// Cache stores recently fetched quotes.
type Cache interface {
	Get(ctx context.Context, symbol string) (models.Quote, bool, error)
	Set(ctx context.Context, symbol string, quote models.Quote, ttl time.Duration) error
}

// RedisCache keeps quotes as JSON under stock:<SYMBOL>:quote.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func quoteKey(symbol string) string {
	return fmt.Sprintf("stock:%s:quote", symbol)
}

func (c *RedisCache) Get(ctx context.Context, symbol string) (models.Quote, bool, error) {
	raw, err := c.rdb.Get(ctx, quoteKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Quote{}, false, nil
	}
	if err != nil {
		return models.Quote{}, false, err
	}

	var q models.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return models.Quote{}, false, err
	}
	return q, true, nil
}

func (c *RedisCache) Set(ctx context.Context, symbol string, quote models.Quote, ttl time.Duration) error {
	raw, err := json.Marshal(quote)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, quoteKey(symbol), raw, ttl).Err()
}

// MemoryCache keeps quotes in process. Useful for a single instance or
// when Redis is reserved for sessions.
type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (m *MemoryCache) Get(_ context.Context, symbol string) (models.Quote, bool, error) {
	v, ok := m.c.Get(symbol)
	if !ok {
		return models.Quote{}, false, nil
	}
	return v.(models.Quote), true, nil
}

func (m *MemoryCache) Set(_ context.Context, symbol string, quote models.Quote, ttl time.Duration) error {
	m.c.Set(symbol, quote, ttl)
	return nil
}

// CachedProvider serves quotes from a cache and falls through to the
// wrapped provider on a miss. Unknown symbols are not cached. Cache
// failures are logged and never fail a lookup.
type CachedProvider struct {
	next  Provider
	cache Cache
	ttl   time.Duration
	log   *logger.Logger
}

func NewCachedProvider(next Provider, cache Cache, ttl time.Duration, log *logger.Logger) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, ttl: ttl, log: log}
}

func (p *CachedProvider) Lookup(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = Normalize(symbol)

	q, ok, err := p.cache.Get(ctx, symbol)
	if err != nil {
		p.log.Warn("quote cache read failed", logger.StringField("symbol", symbol), logger.ErrorField(err))
	} else if ok {
		return q, nil
	}

	q, err = p.next.Lookup(ctx, symbol)
	if err != nil {
		return models.Quote{}, err
	}

	if err := p.cache.Set(ctx, symbol, q, p.ttl); err != nil {
		p.log.Warn("quote cache write failed", logger.StringField("symbol", symbol), logger.ErrorField(err))
	}
	return q, nil
}
