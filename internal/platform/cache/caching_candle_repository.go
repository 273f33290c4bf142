// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"trading_backend/internal/feature/market/domain/entity"
	"trading_backend/internal/feature/market/usecase"
	"trading_backend/internal/shared/marketday"
)

// CachingCandleRepository decorates a CandleRepository with Redis caching.
// It implements the decorator pattern, transparently adding caching without
// modifying the underlying repository.
//
// チャート読み取り（Find）のみキャッシュし、tickの畳み込みとバックフィルは
// 書き込み後に該当銘柄のキャッシュを無効化します。
type CachingCandleRepository struct {
	inner     usecase.CandleRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.CandleRepository = (*CachingCandleRepository)(nil)

// NewCachingCandleRepository decorates a CandleRepository with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "candles".
func NewCachingCandleRepository(rdb *redis.Client, ttl time.Duration, inner usecase.CandleRepository, namespace string) *CachingCandleRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "candles"
	}
	return &CachingCandleRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// UpsertTick folds a tick into the day's candle and invalidates cached reads.
func (c *CachingCandleRepository) UpsertTick(ctx context.Context, code string, date marketday.Date, price float64, cumVolume int64) error {
	if err := c.inner.UpsertTick(ctx, code, date, price, cumVolume); err != nil {
		return err
	}
	c.invalidate(ctx, code)
	return nil
}

// Backfill inserts a finalized bar and invalidates cached reads when a row changed.
func (c *CachingCandleRepository) Backfill(ctx context.Context, bar entity.Candle, force bool) (bool, error) {
	changed, err := c.inner.Backfill(ctx, bar, force)
	if err != nil {
		return false, err
	}
	if changed {
		c.invalidate(ctx, bar.StockCode)
	}
	return changed, nil
}

// Exists delegates to the underlying repository without caching.
func (c *CachingCandleRepository) Exists(ctx context.Context, code string, date marketday.Date) (bool, error) {
	return c.inner.Exists(ctx, code, date)
}

// LatestClose delegates to the underlying repository without caching.
// 取引の価格解決に使われるため、古い値を返すリスクを避けます。
func (c *CachingCandleRepository) LatestClose(ctx context.Context, code string) (float64, error) {
	return c.inner.LatestClose(ctx, code)
}

// Find retrieves candles, checking cache first then falling back to the database.
func (c *CachingCandleRepository) Find(ctx context.Context, code string, limit int) ([]entity.Candle, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.Find(ctx, code, limit)
	}

	key := c.cacheKey(code, limit)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.Candle
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	out, err := c.inner.Find(ctx, code, limit)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return out, nil
}

// invalidate removes all cached reads for a stock code (best effort).
func (c *CachingCandleRepository) invalidate(ctx context.Context, code string) {
	if c.rdb == nil {
		return
	}
	_ = c.deleteByPattern(ctx, c.cacheKeyPrefix(code)+"*")
}

// cacheKey generates a cache key for a specific query.
func (c *CachingCandleRepository) cacheKey(code string, limit int) string {
	return fmt.Sprintf("%s:%s:%d", c.namespace, safe(code), limit)
}

// cacheKeyPrefix generates a prefix for invalidating related cache entries.
func (c *CachingCandleRepository) cacheKeyPrefix(code string) string {
	return fmt.Sprintf("%s:%s:", c.namespace, safe(code))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingCandleRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
