package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/kapu/palette-index-go/internal/domain"
)

func testSet(url string) domain.PaletteSet {
	return domain.PaletteSet{
		Swatches:  []domain.PaletteSwatch{domain.NewSwatch(domain.RGB{1, 2, 3}, 4)},
		SourceURL: url,
	}
}

func TestMemoryPaletteCache(t *testing.T) {
	c := NewMemoryPaletteCache()
	ctx := context.Background()

	_, ok := c.Get(ctx, "https://img.test/a.png")
	assert.False(t, ok)

	c.Set(ctx, "https://img.test/a.png", testSet("https://img.test/a.png"))
	c.Set(ctx, "https://img.test/a.png", testSet("https://img.test/a.png"))
	c.Set(ctx, "https://img.test/b.png", testSet("https://img.test/b.png"))

	got, ok := c.Get(ctx, "https://img.test/a.png")
	assert.True(t, ok)
	assert.Equal(t, testSet("https://img.test/a.png"), got)
	assert.Equal(t, 2, c.Len())
}

func TestPaletteCacheSurvivesRedisOutage(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})
	defer client.Close()

	c := NewPaletteCache(client, "128:3:16:180", time.Hour, zap.NewNop())
	ctx := context.Background()

	_, ok := c.Get(ctx, "https://img.test/a.png")
	assert.False(t, ok)

	c.Set(ctx, "https://img.test/a.png", testSet("https://img.test/a.png"))
	got, ok := c.Get(ctx, "https://img.test/a.png")
	assert.True(t, ok)
	assert.Equal(t, "https://img.test/a.png", got.SourceURL)
}

func TestPaletteCacheKey(t *testing.T) {
	c := NewPaletteCache(nil, "128:3:16:180", time.Hour, nil)
	assert.Equal(t, "palette:v1:128:3:16:180:https://img.test/a.png", c.redisKey("https://img.test/a.png"))
}
