package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kapu/palette-index-go/internal/domain"
	"github.com/kapu/palette-index-go/internal/service/pipeline"
)

// Result describes a finished run.
type Result struct {
	Snapshot  domain.IndexSnapshot
	Stats     pipeline.Stats
	Downloads int64
	Saved     bool
}

// Run lists the catalog, builds the requested slice, merges it with the
// stored snapshot and saves the result. Only a listing failure or a save
// failure is returned as an error. A run whose context is cancelled is not
// saved, leaving the previous snapshot on disk.
func (c *Container) Run(ctx context.Context) (Result, error) {
	cfg := c.Config

	refs, err := c.Catalog.ListItems(ctx, cfg.Catalog.Limit, cfg.Catalog.Offset)
	if err != nil {
		return Result{}, err
	}

	existing := c.Store.Load(ctx)
	c.Logger.Info("Starting index build",
		zap.Int("items", len(refs)),
		zap.Int("existing_entries", existing.Count),
		zap.Int("concurrency", cfg.Pipeline.Concurrency),
		zap.Int("swatches", cfg.Palette.SwatchCount),
	)

	snapshot, stats := c.Pipeline.Run(ctx, refs, existing)
	result := Result{
		Snapshot:  snapshot,
		Stats:     stats,
		Downloads: c.Extractor.Downloads(),
	}

	if ctx.Err() != nil {
		c.Logger.Warn("Run interrupted, keeping previous snapshot", zap.Error(ctx.Err()))
		return result, nil
	}

	saved, err := c.Store.Save(ctx, snapshot)
	if err != nil {
		return result, fmt.Errorf("failed to save index: %w", err)
	}
	result.Snapshot = saved
	result.Saved = true

	if c.Mirror != nil {
		if err := c.Mirror.Sync(ctx, saved); err != nil {
			c.Logger.Warn("Failed to mirror snapshot to PostgreSQL", zap.Error(err))
		}
	}

	c.Logger.Info("Saved index",
		zap.Int("entries", saved.Count),
		zap.String("output", c.Store.Path()),
		zap.Int64("built", stats.Built),
		zap.Int64("reused", stats.Reused),
		zap.Int64("failed", stats.Failed),
		zap.Int64("downloads", result.Downloads),
		zap.Duration("duration", stats.Duration),
	)
	return result, nil
}
