package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/palette-index-go/internal/app"
	"github.com/kapu/palette-index-go/internal/config"
	"github.com/kapu/palette-index-go/internal/util"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Palette indexer starting...",
		zap.String("catalog", cfg.Catalog.BaseURL),
		zap.String("output", cfg.Pipeline.OutputPath),
		zap.Int("limit", cfg.Catalog.Limit),
		zap.Int("offset", cfg.Catalog.Offset),
	)

	buildCtx, buildCancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := app.Build(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		logger.Error("Failed to assemble services", zap.Error(err))
		os.Exit(1)
	}
	defer container.Close()

	// SIGINT/SIGTERM cancel the run; the previous snapshot is left in place.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := container.Run(ctx)
	if err != nil {
		logger.Error("Index build failed", zap.Error(err))
		container.Close()
		os.Exit(1)
	}

	if !result.Saved {
		logger.Warn("Index not saved")
		return
	}
	logger.Info("Index build complete", zap.Int("entries", result.Snapshot.Count))
}
