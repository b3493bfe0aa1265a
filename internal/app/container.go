package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/kapu/palette-index-go/internal/config"
	"github.com/kapu/palette-index-go/internal/constants"
	"github.com/kapu/palette-index-go/internal/domain"
	"github.com/kapu/palette-index-go/internal/service/builder"
	"github.com/kapu/palette-index-go/internal/service/cache"
	"github.com/kapu/palette-index-go/internal/service/catalog"
	"github.com/kapu/palette-index-go/internal/service/httpfetch"
	"github.com/kapu/palette-index-go/internal/service/palette"
	"github.com/kapu/palette-index-go/internal/service/pipeline"
	"github.com/kapu/palette-index-go/internal/service/resolver"
	"github.com/kapu/palette-index-go/internal/service/store"
)

// Mirror receives every saved snapshot.
type Mirror interface {
	Sync(ctx context.Context, snapshot domain.IndexSnapshot) error
}

// Container bundles the services of one indexing run.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Catalog   *catalog.Client
	Extractor *palette.Extractor
	Species   *cache.SpeciesCache
	Pipeline  *pipeline.Pipeline
	Store     *store.FileStore
	Mirror    Mirror

	closers []func()
}

// Build assembles all services. Optional backends (Redis, PostgreSQL) that
// fail to connect are logged and skipped; they never block a run.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	c := &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	apiFetcher := httpfetch.New(fetchOptions(cfg.HTTP, constants.APIConfig.MaxBodyBytes), logger.Named("api"))
	imageFetcher := httpfetch.New(fetchOptions(cfg.HTTP, constants.APIConfig.MaxImageBytes), logger.Named("images"))

	c.Catalog = catalog.NewClient(apiFetcher, cfg.Catalog.BaseURL, cfg.Catalog.PageSize, logger)

	paletteOpts := palette.Options{
		TargetSize:     cfg.Palette.TargetSize,
		SwatchCount:    cfg.Palette.SwatchCount,
		BucketSize:     cfg.Palette.BucketSize,
		AlphaThreshold: cfg.Palette.AlphaThreshold,
	}
	paletteCache := cache.NewMemoryPaletteCache()
	if cfg.Redis.Enabled() {
		client, redisErr := cache.NewRedisClient(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if redisErr != nil {
			logger.Warn("Redis unavailable, palette cache is memory only", zap.Error(redisErr))
		} else {
			c.closers = append(c.closers, func() { _ = client.Close() })
			paletteCache = cache.NewPaletteCache(client, paletteOpts.CacheNamespace(), cfg.Redis.TTL, logger)
		}
	}
	c.Extractor = palette.NewExtractor(imageFetcher, paletteCache, paletteOpts, logger)
	c.Species = cache.NewSpeciesCache()

	itemBuilder, err := builder.New(builder.Dependencies{
		Catalog:     c.Catalog,
		Species:     c.Species,
		Resolver:    resolver.New(cfg.Catalog.SpriteBaseURL),
		Extractor:   c.Extractor,
		SwatchCount: cfg.Palette.SwatchCount,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create item builder: %w", err)
	}

	c.Pipeline = pipeline.New(itemBuilder, pipeline.Options{
		Concurrency:   cfg.Pipeline.Concurrency,
		ProgressEvery: cfg.Pipeline.ProgressEvery,
	}, logger)
	c.Store = store.NewFileStore(cfg.Pipeline.OutputPath, logger)

	if cfg.Postgres.Enabled() {
		mirror, pgErr := store.NewPostgresMirror(store.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
		}, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL mirror disabled", zap.Error(pgErr))
		} else {
			c.Mirror = mirror
			c.closers = append(c.closers, func() { _ = mirror.Close() })
		}
	}

	return c, nil
}

func fetchOptions(cfg config.HTTPConfig, maxBodyBytes int64) httpfetch.Options {
	return httpfetch.Options{
		Client:           &http.Client{Timeout: cfg.Timeout},
		UserAgent:        cfg.UserAgent,
		MaxRetries:       cfg.MaxRetries,
		BaseDelay:        cfg.RetryBaseDelay,
		MaxDelay:         cfg.RetryMaxDelay,
		MaxBodyBytes:     maxBodyBytes,
		FailureThreshold: cfg.FailureThreshold,
		ResetTimeout:     cfg.ResetTimeout,
	}
}

// Close releases backend connections in reverse order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
