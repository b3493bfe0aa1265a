package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/kapu/palette-index-go/internal/domain"
)

// SpeciesLoader fetches species info on a cache miss.
type SpeciesLoader func(ctx context.Context, speciesURL string) (domain.SpeciesInfo, error)

// SpeciesCache memoizes species info by URL for one run. Concurrent misses
// for the same URL share one load.
type SpeciesCache struct {
	entries sync.Map // map[string]domain.SpeciesInfo
	group   singleflight.Group
	loads   atomic.Int64
}

func NewSpeciesCache() *SpeciesCache {
	return &SpeciesCache{}
}

func (c *SpeciesCache) Get(ctx context.Context, speciesURL string, load SpeciesLoader) (domain.SpeciesInfo, error) {
	if val, ok := c.entries.Load(speciesURL); ok {
		return val.(domain.SpeciesInfo), nil
	}

	val, err, _ := c.group.Do(speciesURL, func() (any, error) {
		if cached, ok := c.entries.Load(speciesURL); ok {
			return cached, nil
		}
		c.loads.Add(1)
		info, err := load(ctx, speciesURL)
		if err != nil {
			return nil, err
		}
		c.entries.Store(speciesURL, info)
		return info, nil
	})
	if err != nil {
		return domain.SpeciesInfo{}, err
	}
	return val.(domain.SpeciesInfo), nil
}

// Loads counts how many times the loader actually ran.
func (c *SpeciesCache) Loads() int64 {
	return c.loads.Load()
}
