package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/smartrail/booking-backend/internal/config"
	"github.com/smartrail/booking-backend/internal/models"
)

// SearchCache stores recent itinerary search responses in Redis with a
// short TTL. A nil client disables caching, so callers never need to
// branch on whether Redis is configured.
type SearchCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewSearchCache connects to Redis when an address is configured and
// returns a disabled cache otherwise. Connection problems are logged and
// degrade to a disabled cache rather than failing startup.
func NewSearchCache(cfg config.RedisConfig, logger *logrus.Logger) *SearchCache {
	if cfg.Addr == "" {
		logger.Info("Search cache disabled, no Redis address configured")
		return &SearchCache{logger: logger}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unreachable, search cache disabled")
		return &SearchCache{logger: logger}
	}

	logger.WithField("addr", cfg.Addr).Info("Search cache connected")
	return &SearchCache{client: client, ttl: cfg.TTL, logger: logger}
}

// Get returns a cached response, or false on miss, error, or when the
// cache is disabled.
func (c *SearchCache) Get(ctx context.Context, key string) (*models.ItinerarySearchResponse, bool) {
	if c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("Search cache read failed")
		return nil, false
	}

	var resp models.ItinerarySearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.WithError(err).Warn("Search cache entry corrupt, ignoring")
		return nil, false
	}
	return &resp, true
}

// Set stores a response. Failures are logged and swallowed; the cache is
// an optimization, never a dependency.
func (c *SearchCache) Set(ctx context.Context, key string, resp *models.ItinerarySearchResponse) {
	if c.client == nil {
		return
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		c.logger.WithError(err).Warn("Search cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Search cache write failed")
	}
}

// Close releases the Redis connection.
func (c *SearchCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
