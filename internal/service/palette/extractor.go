// Package palette turns artwork into a small ranked list of dominant colors.
package palette

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync/atomic"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/kapu/palette-index-go/internal/constants"
	"github.com/kapu/palette-index-go/internal/domain"
	"github.com/kapu/palette-index-go/internal/service/cache"
	"github.com/kapu/palette-index-go/internal/service/httpfetch"
	"github.com/kapu/palette-index-go/internal/util"
	"github.com/kapu/palette-index-go/pkg/errors"
)

// Cache memoizes successful extractions by URL.
type Cache interface {
	Get(ctx context.Context, url string) (domain.PaletteSet, bool)
	Set(ctx context.Context, url string, set domain.PaletteSet)
}

type Options struct {
	TargetSize     int
	SwatchCount    int
	BucketSize     int
	AlphaThreshold int
}

// DefaultOptions mirrors constants.PaletteConfig.
func DefaultOptions() Options {
	return Options{
		TargetSize:     constants.PaletteConfig.TargetSize,
		SwatchCount:    constants.PaletteConfig.SwatchCount,
		BucketSize:     constants.PaletteConfig.BucketSize,
		AlphaThreshold: constants.PaletteConfig.AlphaThreshold,
	}
}

// CacheNamespace identifies the parameters that change extraction output.
func (o Options) CacheNamespace() string {
	return fmt.Sprintf("%d:%d:%d:%d", o.TargetSize, o.SwatchCount, o.BucketSize, o.AlphaThreshold)
}

type Extractor struct {
	images    httpfetch.Getter
	cache     Cache
	opts      Options
	group     singleflight.Group
	downloads atomic.Int64
	logger    *zap.Logger
}

// NewExtractor downloads images through images. A nil cache gets a fresh
// in-memory one.
func NewExtractor(images httpfetch.Getter, paletteCache Cache, opts Options, logger *zap.Logger) *Extractor {
	if paletteCache == nil {
		paletteCache = cache.NewMemoryPaletteCache()
	}
	return &Extractor{
		images: images,
		cache:  paletteCache,
		opts:   opts,
		logger: util.OrNop(logger),
	}
}

// Extract returns the palette of the image at url. Results are cached, so a
// URL is downloaded at most once per successful extraction.
func (e *Extractor) Extract(ctx context.Context, url string) (domain.PaletteSet, error) {
	if set, ok := e.cache.Get(ctx, url); ok {
		return set, nil
	}

	val, err, _ := e.group.Do(url, func() (any, error) {
		if set, ok := e.cache.Get(ctx, url); ok {
			return set, nil
		}

		set, err := e.extract(ctx, url)
		if err != nil {
			return nil, err
		}
		e.cache.Set(ctx, url, set)
		return set, nil
	})
	if err != nil {
		return domain.PaletteSet{}, err
	}
	return val.(domain.PaletteSet), nil
}

// FromImage runs sampling and quantization on an already decoded image.
func (e *Extractor) FromImage(img image.Image, sourceURL string) domain.PaletteSet {
	pixels := Sample(img, e.opts.TargetSize, e.opts.AlphaThreshold)
	return domain.PaletteSet{
		Swatches:  Quantize(pixels, e.opts.SwatchCount, e.opts.BucketSize),
		SourceURL: sourceURL,
	}
}

// Downloads is the number of image downloads attempted so far.
func (e *Extractor) Downloads() int64 {
	return e.downloads.Load()
}

func (e *Extractor) extract(ctx context.Context, url string) (domain.PaletteSet, error) {
	e.downloads.Add(1)

	data, err := e.images.Get(ctx, url)
	if err != nil {
		var circuitErr *errors.CircuitOpenError
		if stderrors.As(err, &circuitErr) {
			return domain.PaletteSet{}, err
		}
		status := 0
		var apiErr *errors.APIError
		if stderrors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return domain.PaletteSet{}, errors.NewDownloadError(url, status, err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.PaletteSet{}, errors.NewDecodeError(url, err)
	}

	set := e.FromImage(img, url)
	e.logger.Debug("Extracted palette",
		zap.String("url", url),
		zap.String("format", format),
		zap.Int("swatches", len(set.Swatches)),
	)
	return set, nil
}
