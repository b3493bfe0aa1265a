// Package builder produces one index entry from a catalog reference.
package builder

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kapu/palette-index-go/internal/domain"
	"github.com/kapu/palette-index-go/internal/service/cache"
	"github.com/kapu/palette-index-go/internal/service/catalog"
	"github.com/kapu/palette-index-go/internal/service/palette"
	"github.com/kapu/palette-index-go/internal/util"
	"github.com/kapu/palette-index-go/pkg/errors"
)

// PaletteExtractor extracts the palette of a single image URL.
type PaletteExtractor interface {
	Extract(ctx context.Context, url string) (domain.PaletteSet, error)
}

// CandidateResolver lists image URLs to try for a mode, best first.
type CandidateResolver interface {
	Resolve(record *domain.DetailRecord, mode domain.PaletteMode) []string
}

type Dependencies struct {
	Catalog     catalog.Source
	Species     *cache.SpeciesCache
	Resolver    CandidateResolver
	Extractor   PaletteExtractor
	SwatchCount int
	Logger      *zap.Logger
}

type Builder struct {
	catalog     catalog.Source
	species     *cache.SpeciesCache
	resolver    CandidateResolver
	extractor   PaletteExtractor
	swatchCount int
	logger      *zap.Logger
}

func New(deps Dependencies) (*Builder, error) {
	if deps.Catalog == nil || deps.Resolver == nil || deps.Extractor == nil {
		return nil, fmt.Errorf("builder requires catalog, resolver and extractor")
	}
	if deps.SwatchCount < 1 {
		return nil, errors.NewValidationError("swatch count must be at least 1", "SwatchCount", deps.SwatchCount)
	}
	if deps.Species == nil {
		deps.Species = cache.NewSpeciesCache()
	}
	return &Builder{
		catalog:     deps.Catalog,
		species:     deps.Species,
		resolver:    deps.Resolver,
		extractor:   deps.Extractor,
		swatchCount: deps.SwatchCount,
		logger:      util.OrNop(deps.Logger),
	}, nil
}

// Build returns the entry for ref. An existing entry whose palettes are
// already complete is returned unchanged without any network access. Image
// failures never fail the item; detail and species failures are returned.
// So is an open image circuit, since its candidates were never tried.
func (b *Builder) Build(ctx context.Context, ref domain.CatalogItemRef, existing *domain.IndexEntry) (*domain.IndexEntry, bool, error) {
	if existing != nil && existing.HasCompletePalettes(b.swatchCount) {
		return existing, true, nil
	}

	record, err := b.catalog.FetchDetail(ctx, ref.URL)
	if err != nil {
		return nil, false, fmt.Errorf("fetch detail %s: %w", ref.Name, err)
	}

	species, err := b.species.Get(ctx, record.Species.URL, b.loadSpecies)
	if err != nil {
		return nil, false, fmt.Errorf("fetch species %s: %w", record.Species.Name, err)
	}

	normal := b.resolve(ctx, record, domain.ModeNormal)
	if normal.aborted != nil {
		return nil, false, fmt.Errorf("extract normal palette %s: %w", record.Name, normal.aborted)
	}
	if !normal.ok() {
		b.logger.Debug("Using fallback palette",
			zap.String("name", record.Name),
			zap.Error(normal.exhausted(domain.ModeNormal)),
		)
		normal.palette = palette.FallbackSet(b.swatchCount)
		normal.url = ""
	}

	// Shiny defaults to the normal result: most items have no distinct
	// shiny artwork, and the UI prefers the normal colors over gray.
	shiny := normal
	if candidates := b.resolver.Resolve(record, domain.ModeShiny); len(candidates) > 0 {
		res := b.try(ctx, candidates)
		switch {
		case res.aborted != nil:
			return nil, false, fmt.Errorf("extract shiny palette %s: %w", record.Name, res.aborted)
		case res.ok():
			shiny = res
		default:
			b.logger.Debug("Shiny candidates exhausted, reusing normal palette",
				zap.String("name", record.Name),
				zap.Error(res.exhausted(domain.ModeShiny)),
			)
		}
	}

	return &domain.IndexEntry{
		ID:          record.ID,
		Name:        record.Name,
		DisplayName: domain.DisplayName(record.Name, record.Species.Name),
		SpeciesID:   species.ID,
		SpeciesName: species.Name,
		Types:       domain.SortedTypeNames(record.Types),
		Generation:  species.Generation,
		Color:       species.Color,
		FormTags:    domain.DeriveFormTags(record.Name, record.IsDefault),
		IsDefault:   record.IsDefault,
		Order:       record.Order,
		FormOrder:   record.FormOrder,
		Images: domain.ModeImages{
			Normal: normal.url,
			Shiny:  shiny.url,
		},
		Palettes: domain.ModePalettes{
			Normal: normal.palette,
			Shiny:  shiny.palette,
		},
	}, false, nil
}

func (b *Builder) resolve(ctx context.Context, record *domain.DetailRecord, mode domain.PaletteMode) resolution {
	return b.try(ctx, b.resolver.Resolve(record, mode))
}

// try extracts candidates strictly in order and stops at the first success.
func (b *Builder) try(ctx context.Context, candidates []string) resolution {
	res := resolution{}
	for _, url := range candidates {
		res.attempts++
		set, err := b.extractor.Extract(ctx, url)
		if err != nil {
			var circuitErr *errors.CircuitOpenError
			if stderrors.As(err, &circuitErr) {
				res.aborted = err
				return res
			}
			res.lastErr = err
			b.logger.Debug("Candidate failed", zap.String("url", url), zap.Error(err))
			continue
		}
		res.palette = set
		res.url = url
		res.found = true
		return res
	}
	return res
}

func (b *Builder) loadSpecies(ctx context.Context, speciesURL string) (domain.SpeciesInfo, error) {
	record, err := b.catalog.FetchSpecies(ctx, speciesURL)
	if err != nil {
		return domain.SpeciesInfo{}, err
	}
	return record.Info(), nil
}

// resolution is the outcome of walking a candidate list: the first success,
// exhaustion with the number of attempts and the last error, or an abort
// when the image host refused requests outright.
type resolution struct {
	palette  domain.PaletteSet
	url      string
	found    bool
	attempts int
	lastErr  error
	aborted  error
}

func (r resolution) ok() bool {
	return r.found
}

func (r resolution) exhausted(mode domain.PaletteMode) error {
	return errors.NewExhaustedError(mode.String(), r.attempts, r.lastErr)
}
