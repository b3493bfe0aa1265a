package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/kapu/palette-index-go/internal/config"
	"github.com/kapu/palette-index-go/internal/constants"
	"github.com/kapu/palette-index-go/internal/service/httpfetch"
	"github.com/kapu/palette-index-go/internal/service/palette"
	"github.com/kapu/palette-index-go/internal/util"
)

// Prints the palette of each image URL given on the command line, using the
// same extraction settings as the indexer.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: extract_palette <image-url>...")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	fetcher := httpfetch.New(httpfetch.Options{
		Client:           &http.Client{Timeout: cfg.HTTP.Timeout},
		UserAgent:        cfg.HTTP.UserAgent,
		MaxRetries:       cfg.HTTP.MaxRetries,
		BaseDelay:        cfg.HTTP.RetryBaseDelay,
		MaxDelay:         cfg.HTTP.RetryMaxDelay,
		MaxBodyBytes:     constants.APIConfig.MaxImageBytes,
		FailureThreshold: cfg.HTTP.FailureThreshold,
		ResetTimeout:     cfg.HTTP.ResetTimeout,
	}, logger)
	extractor := palette.NewExtractor(fetcher, nil, palette.Options{
		TargetSize:     cfg.Palette.TargetSize,
		SwatchCount:    cfg.Palette.SwatchCount,
		BucketSize:     cfg.Palette.BucketSize,
		AlphaThreshold: cfg.Palette.AlphaThreshold,
	}, logger)

	ctx := context.Background()
	results := make(map[string]any, len(os.Args)-1)
	failed := 0
	for _, url := range os.Args[1:] {
		set, err := extractor.Extract(ctx, url)
		if err != nil {
			logger.Error("failed to extract palette", zap.String("url", url), zap.Error(err))
			results[url] = map[string]string{"error": err.Error()}
			failed++
			continue
		}
		results[url] = set
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		logger.Fatal("failed to encode palettes", zap.Error(err))
	}
	fmt.Println(string(data))

	if failed > 0 {
		os.Exit(1)
	}
}
