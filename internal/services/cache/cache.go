package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/jordanurbs/aicaptains-api/internal/config"
	"github.com/jordanurbs/aicaptains-api/internal/models"
)

// Service defines response cache operations
type Service interface {
	Get(ctx context.Context, goal, excuse string, preset bool) (*models.GenerateResult, bool)
	Set(ctx context.Context, goal, excuse string, preset bool, result *models.GenerateResult) error
	Clear(ctx context.Context) error
}

// Key builds the normalized cache key for a request triple. Identical inputs
// modulo case and surrounding whitespace map to the same key.
func Key(goal, excuse string, preset bool) string {
	return fmt.Sprintf("%s|%s|%t",
		strings.ToLower(strings.TrimSpace(goal)),
		strings.ToLower(strings.TrimSpace(excuse)),
		preset,
	)
}

// NewService selects a cache backend from config.
func NewService(cfg *config.Config, logger *logrus.Logger) (Service, error) {
	if !cfg.Cache.Enabled {
		return &disabledCache{}, nil
	}

	switch cfg.Cache.Store {
	case "redis":
		return NewRedisCache(cfg, logger)
	case "memory":
		return NewMemoryCache(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache store: %s", cfg.Cache.Store)
	}
}

type disabledCache struct{}

func (d *disabledCache) Get(ctx context.Context, goal, excuse string, preset bool) (*models.GenerateResult, bool) {
	return nil, false
}

func (d *disabledCache) Set(ctx context.Context, goal, excuse string, preset bool, result *models.GenerateResult) error {
	return nil
}

func (d *disabledCache) Clear(ctx context.Context) error {
	return nil
}

// MemoryCache implements the response cache in process memory. Expiry is
// enforced lazily on reads; writes trigger a low-probability sweep of expired
// entries to bound growth.
type MemoryCache struct {
	entries     *gocache.Cache
	ttl         time.Duration
	sweepChance float64
	logger      *logrus.Logger
	now         func() time.Time
	roll        func() float64
}

// NewMemoryCache creates an in-memory response cache.
func NewMemoryCache(cfg *config.Config, logger *logrus.Logger) *MemoryCache {
	return &MemoryCache{
		entries:     gocache.New(gocache.NoExpiration, 0),
		ttl:         cfg.Cache.TTL,
		sweepChance: cfg.Cache.SweepChance,
		logger:      logger,
		now:         time.Now,
		roll:        rand.Float64,
	}
}

// Get retrieves a cached response; a stale entry is treated as a miss.
func (c *MemoryCache) Get(ctx context.Context, goal, excuse string, preset bool) (*models.GenerateResult, bool) {
	key := Key(goal, excuse, preset)
	val, found := c.entries.Get(key)
	if !found {
		return nil, false
	}

	entry := val.(*models.CacheEntry)
	if c.now().Sub(entry.CreatedAt) >= c.ttl {
		c.entries.Delete(key)
		return nil, false
	}

	c.logger.WithFields(logrus.Fields{
		"key": key,
		"age": c.now().Sub(entry.CreatedAt).String(),
	}).Debug("Cache hit")

	return &models.GenerateResult{Response: entry.Response, CTA: entry.CTA}, true
}

// Set stores a generated response and opportunistically sweeps expired entries.
func (c *MemoryCache) Set(ctx context.Context, goal, excuse string, preset bool, result *models.GenerateResult) error {
	key := Key(goal, excuse, preset)
	c.entries.Set(key, &models.CacheEntry{
		Response:  result.Response,
		CTA:       result.CTA,
		CreatedAt: c.now(),
	}, gocache.NoExpiration)

	if c.roll() < c.sweepChance {
		c.sweep()
	}

	return nil
}

// Clear removes all cached entries
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.entries.Flush()
	return nil
}

func (c *MemoryCache) sweep() {
	now := c.now()
	removed := 0
	for key, item := range c.entries.Items() {
		entry, ok := item.Object.(*models.CacheEntry)
		if !ok {
			continue
		}
		if now.Sub(entry.CreatedAt) >= c.ttl {
			c.entries.Delete(key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.WithField("removed", removed).Debug("Swept expired cache entries")
	}
}

// RedisCache implements the response cache on Redis for multi-instance
// deployments; expiry is delegated to Redis TTLs.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

const redisKeyPrefix = "genresp:"

// NewRedisCache creates a Redis-backed response cache.
func NewRedisCache(cfg *config.Config, logger *logrus.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		ttl:    cfg.Cache.TTL,
		logger: logger,
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, goal, excuse string, preset bool) (*models.GenerateResult, bool) {
	key := redisKeyPrefix + Key(goal, excuse, preset)
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("Redis cache read failed")
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		c.logger.WithError(err).Warn("Failed to decode cached entry")
		return nil, false
	}

	return &models.GenerateResult{Response: entry.Response, CTA: entry.CTA}, true
}

func (c *RedisCache) Set(ctx context.Context, goal, excuse string, preset bool, result *models.GenerateResult) error {
	key := redisKeyPrefix + Key(goal, excuse, preset)
	data, err := json.Marshal(&models.CacheEntry{
		Response:  result.Response,
		CTA:       result.CTA,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
