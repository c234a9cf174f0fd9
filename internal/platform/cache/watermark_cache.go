// Package cache provides caching implementations for usecase interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"xetra_etl/internal/feature/report/domain/entity"
)

// Planner computes the current watermark.
type Planner interface {
	Plan(ctx context.Context) (entity.Watermark, error)
}

// CachingWatermark decorates a Planner with Redis caching.
//
// Entries are keyed by meta key and calendar day, because the candidate range
// ends at today, and expire at the next midnight. Invalidate must be called
// after the ledger changes.
type CachingWatermark struct {
	inner     Planner
	rdb       *redis.Client
	namespace string
	metaKey   string
	now       func() time.Time

	// OnLookup, when set, is called with "hit" or "miss" for every Plan.
	OnLookup func(result string)
}

// NewCachingWatermark decorates inner with Redis caching. A nil rdb disables
// caching. If namespace is empty, it uses "watermark".
func NewCachingWatermark(rdb *redis.Client, inner Planner, namespace, metaKey string) *CachingWatermark {
	if namespace == "" {
		namespace = "watermark"
	}
	return &CachingWatermark{
		inner:     inner,
		rdb:       rdb,
		namespace: namespace,
		metaKey:   metaKey,
		now:       time.Now,
	}
}

// Plan returns the cached watermark for today, computing and storing it on a miss.
func (c *CachingWatermark) Plan(ctx context.Context) (entity.Watermark, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.Plan(ctx)
	}

	now := c.now()
	key := c.cacheKey(now)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		if wm, err := decodeWatermark(b); err == nil {
			c.lookup("hit")
			return wm, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}
	c.lookup("miss")

	// 2) Fallback to the ledger
	wm, err := c.inner.Plan(ctx)
	if err != nil {
		return entity.Watermark{}, err
	}

	// 3) Store in cache (best effort)
	if b, err := encodeWatermark(wm); err == nil {
		_ = c.rdb.Set(ctx, key, b, TimeUntilNextMidnight(now)).Err()
	}
	return wm, nil
}

// Invalidate drops every cached watermark of this meta key.
func (c *CachingWatermark) Invalidate(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return c.deleteByPattern(ctx, c.cacheKeyPrefix()+"*")
}

func (c *CachingWatermark) lookup(result string) {
	if c.OnLookup != nil {
		c.OnLookup(result)
	}
}

// cacheKey generates the cache key for the calendar day of now.
func (c *CachingWatermark) cacheKey(now time.Time) string {
	return c.cacheKeyPrefix() + now.Format(entity.DateLayout)
}

// cacheKeyPrefix generates a prefix for invalidating every day of this meta key.
func (c *CachingWatermark) cacheKeyPrefix() string {
	return fmt.Sprintf("%s:%s:", c.namespace, safe(c.metaKey))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingWatermark) deleteByPattern(ctx context.Context, pattern string) error {
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

type watermarkJSON struct {
	EffectiveStart string   `json:"effective_start"`
	Dates          []string `json:"dates"`
}

func encodeWatermark(wm entity.Watermark) ([]byte, error) {
	out := watermarkJSON{EffectiveStart: entity.FormatDate(wm.EffectiveStart), Dates: make([]string, len(wm.Dates))}
	for i, d := range wm.Dates {
		out.Dates[i] = entity.FormatDate(d)
	}
	return json.Marshal(out)
}

func decodeWatermark(b []byte) (entity.Watermark, error) {
	var in watermarkJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return entity.Watermark{}, err
	}
	start, err := entity.ParseDate(in.EffectiveStart)
	if err != nil {
		return entity.Watermark{}, err
	}
	wm := entity.Watermark{EffectiveStart: start, Dates: make([]time.Time, len(in.Dates))}
	for i, s := range in.Dates {
		if wm.Dates[i], err = entity.ParseDate(s); err != nil {
			return entity.Watermark{}, err
		}
	}
	return wm, nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, "*", "_")
	return s
}
