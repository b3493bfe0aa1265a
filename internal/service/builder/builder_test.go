package builder

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapu/palette-index-go/internal/domain"
	"github.com/kapu/palette-index-go/internal/service/cache"
	"github.com/kapu/palette-index-go/internal/service/palette"
	"github.com/kapu/palette-index-go/internal/service/resolver"
	"github.com/kapu/palette-index-go/pkg/errors"
)

const spriteBase = "https://sprites.test"

type fakeCatalog struct {
	mu           sync.Mutex
	details      map[string]*domain.DetailRecord
	species      map[string]*domain.SpeciesRecord
	detailCalls  int
	speciesCalls int
}

func (f *fakeCatalog) ListItems(ctx context.Context, limit, offset int) ([]domain.CatalogItemRef, error) {
	return nil, nil
}

func (f *fakeCatalog) FetchDetail(ctx context.Context, url string) (*domain.DetailRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if record, ok := f.details[url]; ok {
		return record, nil
	}
	return nil, fmt.Errorf("detail %s not found", url)
}

func (f *fakeCatalog) FetchSpecies(ctx context.Context, url string) (*domain.SpeciesRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speciesCalls++
	if record, ok := f.species[url]; ok {
		return record, nil
	}
	return nil, fmt.Errorf("species %s not found", url)
}

// fakeExtractor succeeds only for URLs listed in palettes. URLs in refused
// fail as if the image host's circuit were open.
type fakeExtractor struct {
	mu       sync.Mutex
	palettes map[string]domain.PaletteSet
	refused  map[string]bool
	calls    []string
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) (domain.PaletteSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if set, ok := f.palettes[url]; ok {
		return set, nil
	}
	if f.refused[url] {
		return domain.PaletteSet{}, errors.NewCircuitOpenError(url, "img.test", 30*time.Second)
	}
	return domain.PaletteSet{}, fmt.Errorf("no image at %s", url)
}

func paletteOf(url string, rgb domain.RGB) domain.PaletteSet {
	return domain.PaletteSet{
		Swatches:  palette.Normalize([]domain.PaletteSwatch{domain.NewSwatch(rgb, 10)}, 3),
		SourceURL: url,
	}
}

func pikachu() (*fakeCatalog, *domain.DetailRecord) {
	record := &domain.DetailRecord{
		ID:        25,
		Name:      "pikachu",
		Order:     35,
		FormOrder: 0,
		IsDefault: true,
		Species:   domain.NamedResource{Name: "pikachu", URL: "https://api.test/species/25/"},
		Types:     []domain.TypeSlot{{Slot: 1, Type: domain.NamedResource{Name: "electric"}}},
		Sprites: domain.Sprites{
			FrontDefault: "https://img.test/front.png",
			FrontShiny:   "https://img.test/front-shiny.png",
			Other: domain.OtherSprites{
				OfficialArtwork: domain.SpriteSet{
					FrontDefault: "https://img.test/art.png",
					FrontShiny:   "https://img.test/art-shiny.png",
				},
			},
		},
	}
	catalog := &fakeCatalog{
		details: map[string]*domain.DetailRecord{"https://api.test/pokemon/25/": record},
		species: map[string]*domain.SpeciesRecord{
			"https://api.test/species/25/": {
				ID:         25,
				Name:       "pikachu",
				Color:      &domain.NamedResource{Name: "yellow"},
				Generation: &domain.NamedResource{Name: "generation-i"},
			},
		},
	}
	return catalog, record
}

func newBuilder(t *testing.T, catalog *fakeCatalog, extractor *fakeExtractor) *Builder {
	t.Helper()
	b, err := New(Dependencies{
		Catalog:     catalog,
		Species:     cache.NewSpeciesCache(),
		Resolver:    resolver.New(spriteBase),
		Extractor:   extractor,
		SwatchCount: 3,
	})
	require.NoError(t, err)
	return b
}

var pikachuRef = domain.CatalogItemRef{Name: "pikachu", URL: "https://api.test/pokemon/25/"}

func TestBuildUsesFirstWorkingCandidate(t *testing.T) {
	catalog, _ := pikachu()
	extractor := &fakeExtractor{palettes: map[string]domain.PaletteSet{
		"https://img.test/front.png":       paletteOf("https://img.test/front.png", domain.RGB{250, 210, 60}),
		"https://img.test/art-shiny.png":   paletteOf("https://img.test/art-shiny.png", domain.RGB{240, 180, 40}),
		"https://img.test/front-shiny.png": paletteOf("https://img.test/front-shiny.png", domain.RGB{1, 1, 1}),
	}}

	entry, reused, err := newBuilder(t, catalog, extractor).Build(context.Background(), pikachuRef, nil)
	require.NoError(t, err)
	assert.False(t, reused)

	assert.Equal(t, "https://img.test/front.png", entry.Images.Normal)
	assert.Equal(t, "https://img.test/front.png", entry.Palettes.Normal.SourceURL)
	assert.Equal(t, "https://img.test/art-shiny.png", entry.Images.Shiny)
	assert.Equal(t, "#F0B428", entry.Palettes.Shiny.Swatches[0].Hex)

	// art.png failed, front.png won; shiny stopped at the first candidate
	assert.Equal(t, []string{
		"https://img.test/art.png",
		"https://img.test/front.png",
		"https://img.test/art-shiny.png",
	}, extractor.calls)

	assert.Equal(t, "Pikachu", entry.DisplayName)
	assert.Equal(t, 25, entry.SpeciesID)
	assert.Equal(t, "yellow", entry.Color)
	assert.Equal(t, 1, entry.Generation)
	assert.Equal(t, []string{"electric"}, entry.Types)
	assert.Equal(t, []domain.FormTag{domain.FormTagDefault}, entry.FormTags)
}

func TestBuildFallsBackToGray(t *testing.T) {
	catalog, _ := pikachu()
	extractor := &fakeExtractor{}

	entry, _, err := newBuilder(t, catalog, extractor).Build(context.Background(), pikachuRef, nil)
	require.NoError(t, err)

	assert.Equal(t, "", entry.Images.Normal)
	assert.Equal(t, "", entry.Palettes.Normal.SourceURL)
	require.Len(t, entry.Palettes.Normal.Swatches, 3)
	for _, swatch := range entry.Palettes.Normal.Swatches {
		assert.Equal(t, "#808080", swatch.Hex)
		assert.Equal(t, 1, swatch.Population)
	}
	assert.Equal(t, entry.Palettes.Normal, entry.Palettes.Shiny)
	assert.Equal(t, "", entry.Images.Shiny)
}

func TestBuildShinyInheritsNormal(t *testing.T) {
	catalog, _ := pikachu()
	normal := paletteOf("https://img.test/art.png", domain.RGB{250, 210, 60})
	extractor := &fakeExtractor{palettes: map[string]domain.PaletteSet{
		"https://img.test/art.png": normal,
	}}

	entry, _, err := newBuilder(t, catalog, extractor).Build(context.Background(), pikachuRef, nil)
	require.NoError(t, err)

	assert.Equal(t, normal, entry.Palettes.Normal)
	assert.Equal(t, normal, entry.Palettes.Shiny)
	assert.Equal(t, "https://img.test/art.png", entry.Images.Shiny)
}

func TestBuildReusesCompleteEntry(t *testing.T) {
	catalog, _ := pikachu()
	extractor := &fakeExtractor{}
	existing := &domain.IndexEntry{
		Name: "pikachu",
		Palettes: domain.ModePalettes{
			Normal: paletteOf("a", domain.RGB{1, 2, 3}),
			Shiny:  paletteOf("b", domain.RGB{4, 5, 6}),
		},
	}

	entry, reused, err := newBuilder(t, catalog, extractor).Build(context.Background(), pikachuRef, existing)
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Same(t, existing, entry)
	assert.Zero(t, catalog.detailCalls)
	assert.Zero(t, catalog.speciesCalls)
	assert.Empty(t, extractor.calls)
}

func TestBuildRebuildsIncompleteEntry(t *testing.T) {
	catalog, _ := pikachu()
	extractor := &fakeExtractor{}
	existing := &domain.IndexEntry{
		Name: "pikachu",
		Palettes: domain.ModePalettes{
			Normal: domain.PaletteSet{Swatches: palette.FallbackSwatches(2)},
			Shiny:  paletteOf("b", domain.RGB{4, 5, 6}),
		},
	}

	_, reused, err := newBuilder(t, catalog, extractor).Build(context.Background(), pikachuRef, existing)
	require.NoError(t, err)
	assert.False(t, reused)
	assert.Equal(t, 1, catalog.detailCalls)
}

func TestBuildDetailErrorPropagates(t *testing.T) {
	catalog, _ := pikachu()
	extractor := &fakeExtractor{}

	_, _, err := newBuilder(t, catalog, extractor).Build(context.Background(),
		domain.CatalogItemRef{Name: "ghost", URL: "https://api.test/pokemon/0/"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
	assert.Empty(t, extractor.calls)
}

func TestBuildSpeciesErrorPropagates(t *testing.T) {
	catalog, record := pikachu()
	record.Species.URL = "https://api.test/species/missing/"

	_, _, err := newBuilder(t, catalog, &fakeExtractor{}).Build(context.Background(), pikachuRef, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch species")
}

func TestBuildSharesSpeciesAcrossForms(t *testing.T) {
	catalog, record := pikachu()
	gmax := *record
	gmax.ID = 10199
	gmax.Name = "pikachu-gmax"
	gmax.IsDefault = false
	gmax.FormOrder = 1
	catalog.details["https://api.test/pokemon/10199/"] = &gmax

	b := newBuilder(t, catalog, &fakeExtractor{})
	_, _, err := b.Build(context.Background(), pikachuRef, nil)
	require.NoError(t, err)
	entry, _, err := b.Build(context.Background(),
		domain.CatalogItemRef{Name: "pikachu-gmax", URL: "https://api.test/pokemon/10199/"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, catalog.speciesCalls)
	assert.Equal(t, 25, entry.SpeciesID)
	assert.Equal(t, "Pikachu Gigantamax", entry.DisplayName)
	assert.Equal(t, []domain.FormTag{domain.FormTagGmax}, entry.FormTags)
}

func TestNewValidatesDependencies(t *testing.T) {
	_, err := New(Dependencies{})
	assert.Error(t, err)

	catalog, _ := pikachu()
	_, err = New(Dependencies{
		Catalog:   catalog,
		Resolver:  resolver.New(spriteBase),
		Extractor: &fakeExtractor{},
	})
	var validationErr *errors.ValidationError
	require.True(t, stderrors.As(err, &validationErr))
	assert.Equal(t, "SwatchCount", validationErr.Field)
}

func TestBuildFailsWhenImageCircuitIsOpen(t *testing.T) {
	catalog, _ := pikachu()
	extractor := &fakeExtractor{refused: map[string]bool{"https://img.test/art.png": true}}

	entry, _, err := newBuilder(t, catalog, extractor).Build(context.Background(), pikachuRef, nil)
	require.Error(t, err)
	assert.Nil(t, entry)

	var circuitErr *errors.CircuitOpenError
	assert.True(t, stderrors.As(err, &circuitErr))
	// no further candidates once the host refuses requests
	assert.Equal(t, []string{"https://img.test/art.png"}, extractor.calls)
}

func TestBuildFailsWhenShinyCircuitIsOpen(t *testing.T) {
	catalog, _ := pikachu()
	extractor := &fakeExtractor{
		palettes: map[string]domain.PaletteSet{
			"https://img.test/art.png": paletteOf("https://img.test/art.png", domain.RGB{250, 210, 60}),
		},
		refused: map[string]bool{"https://img.test/art-shiny.png": true},
	}

	entry, _, err := newBuilder(t, catalog, extractor).Build(context.Background(), pikachuRef, nil)
	require.Error(t, err)
	assert.Nil(t, entry)
	assert.Contains(t, err.Error(), "extract shiny palette")
}
