package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/banking/sanctions-screening/internal/config"
	"github.com/banking/sanctions-screening/internal/domain"
)

const (
	watchlistKey  = "sanctions:watchlist:individuals"
	lastUpdateKey = "sanctions:watchlist:last_update"
)

// ErrCacheMiss is returned when no watchlist is cached
var ErrCacheMiss = errors.New("watchlist not cached")

// RedisWatchlistCache stores the parsed watchlist as one JSON document
type RedisWatchlistCache struct {
	client redis.UniversalClient
}

// NewRedisClient creates a client from configuration
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// NewRedisWatchlistCache wraps a redis client
func NewRedisWatchlistCache(client redis.UniversalClient) *RedisWatchlistCache {
	return &RedisWatchlistCache{client: client}
}

// GetWatchlist returns the cached watchlist or ErrCacheMiss
func (c *RedisWatchlistCache) GetWatchlist(ctx context.Context) (*domain.Watchlist, error) {
	data, err := c.client.Get(ctx, watchlistKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get watchlist: %w", err)
	}

	var wl domain.Watchlist
	if err := json.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("decode cached watchlist: %w", err)
	}
	return &wl, nil
}

// SetWatchlist caches the watchlist and records the update time
func (c *RedisWatchlistCache) SetWatchlist(ctx context.Context, wl *domain.Watchlist, ttl time.Duration) error {
	data, err := json.Marshal(wl)
	if err != nil {
		return fmt.Errorf("encode watchlist: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, watchlistKey, data, ttl)
	pipe.Set(ctx, lastUpdateKey, time.Now().UTC().Unix(), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache watchlist: %w", err)
	}
	return nil
}

// GetLastUpdate returns when the watchlist was last cached
func (c *RedisWatchlistCache) GetLastUpdate(ctx context.Context) (time.Time, error) {
	v, err := c.client.Get(ctx, lastUpdateKey).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, ErrCacheMiss
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get last update: %w", err)
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last update: %w", err)
	}
	return time.Unix(secs, 0).UTC(), nil
}

// Ping checks connectivity
func (c *RedisWatchlistCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
