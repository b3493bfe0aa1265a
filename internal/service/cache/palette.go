package cache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/palette-index-go/internal/domain"
	"github.com/kapu/palette-index-go/internal/util"
)

const paletteKeyPrefix = "palette:v1:"

// PaletteCache memoizes URL → PaletteSet for a run. An optional Redis tier
// keeps results across runs; namespace must encode every extraction
// parameter so a parameter change never reads stale palettes.
type PaletteCache struct {
	memory    sync.Map // map[string]domain.PaletteSet
	size      atomic.Int64
	redis     *redis.Client
	namespace string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewPaletteCache creates a cache; client may be nil for memory only.
func NewPaletteCache(client *redis.Client, namespace string, ttl time.Duration, logger *zap.Logger) *PaletteCache {
	return &PaletteCache{
		redis:     client,
		namespace: namespace,
		ttl:       ttl,
		logger:    util.OrNop(logger),
	}
}

// NewMemoryPaletteCache returns a fresh run-scoped cache without Redis.
func NewMemoryPaletteCache() *PaletteCache {
	return NewPaletteCache(nil, "", 0, nil)
}

func (c *PaletteCache) Get(ctx context.Context, url string) (domain.PaletteSet, bool) {
	if val, ok := c.memory.Load(url); ok {
		return val.(domain.PaletteSet), true
	}

	if c.redis == nil {
		return domain.PaletteSet{}, false
	}

	data, err := c.redis.Get(ctx, c.redisKey(url)).Bytes()
	if err == redis.Nil {
		return domain.PaletteSet{}, false
	}
	if err != nil {
		c.logger.Warn("Palette cache get failed", zap.String("url", url), zap.Error(err))
		return domain.PaletteSet{}, false
	}

	var set domain.PaletteSet
	if err := json.Unmarshal(data, &set); err != nil {
		c.logger.Warn("Palette cache unmarshal failed", zap.String("url", url), zap.Error(err))
		return domain.PaletteSet{}, false
	}

	c.store(url, set)
	return set, true
}

func (c *PaletteCache) Set(ctx context.Context, url string, set domain.PaletteSet) {
	c.store(url, set)

	if c.redis == nil {
		return
	}

	data, err := json.Marshal(set)
	if err != nil {
		c.logger.Warn("Failed to marshal palette for cache", zap.String("url", url), zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, c.redisKey(url), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Palette cache set failed", zap.String("url", url), zap.Error(err))
	}
}

// Len is the number of palettes held in memory.
func (c *PaletteCache) Len() int {
	return int(c.size.Load())
}

func (c *PaletteCache) store(url string, set domain.PaletteSet) {
	if _, loaded := c.memory.Swap(url, set); !loaded {
		c.size.Add(1)
	}
}

func (c *PaletteCache) redisKey(url string) string {
	return paletteKeyPrefix + c.namespace + ":" + url
}
