package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/polkiloo/boxoffice/internal/domain/model"
	"github.com/polkiloo/boxoffice/internal/domain/repository"
)

const keyPrefix = "boxoffice:catalog:"

type redisClient interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// CatalogCache is a read-through cache in front of the catalog source. Entries
// may be stale by up to ttl; reservation decisions never read from it.
// Redis failures degrade to the source.
type CatalogCache struct {
	client redisClient
	source repository.CatalogReader
	ttl    time.Duration
	logger *slog.Logger
}

// NewCatalogCache wraps source with a Redis read-through layer.
func NewCatalogCache(client redisClient, source repository.CatalogReader, ttl time.Duration, logger *slog.Logger) *CatalogCache {
	return &CatalogCache{client: client, source: source, ttl: ttl, logger: logger}
}

func entryKey(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

// Lookup serves hits from Redis and fills misses from the source.
func (c *CatalogCache) Lookup(ctx context.Context, ids []int64) (map[int64]model.CatalogEntry, error) {
	if len(ids) == 0 {
		return map[int64]model.CatalogEntry{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = entryKey(id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("catalog cache read failed", slog.String("error", err.Error()))
		return c.source.Lookup(ctx, ids)
	}

	result := make(map[int64]model.CatalogEntry, len(ids))
	var misses []int64
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			misses = append(misses, ids[i])
			continue
		}
		var entry model.CatalogEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			misses = append(misses, ids[i])
			continue
		}
		result[ids[i]] = entry
	}
	if len(misses) == 0 {
		return result, nil
	}

	fresh, err := c.source.Lookup(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, entry := range fresh {
		result[id] = entry
		c.store(ctx, entry)
	}
	return result, nil
}

func (c *CatalogCache) store(ctx context.Context, entry model.CatalogEntry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, entryKey(entry.ID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", slog.Int64("entry_id", entry.ID), slog.String("error", err.Error()))
	}
}

// PromoDiscount always consults the source.
func (c *CatalogCache) PromoDiscount(ctx context.Context, code string, now time.Time) (int64, error) {
	return c.source.PromoDiscount(ctx, code, now)
}
