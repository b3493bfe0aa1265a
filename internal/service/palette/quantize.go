package palette

import (
	"sort"

	"github.com/kapu/palette-index-go/internal/constants"
	"github.com/kapu/palette-index-go/internal/domain"
)

type bucket struct {
	count int
	rSum  int
	gSum  int
	bSum  int
}

func (b *bucket) mean() domain.RGB {
	return domain.RGB{
		roundedMean(b.rSum, b.count),
		roundedMean(b.gSum, b.count),
		roundedMean(b.bSum, b.count),
	}
}

// roundedMean is sum/count rounded half up.
func roundedMean(sum, count int) int {
	return (2*sum + count) / (2 * count)
}

// Quantize groups pixels into cubic RGB buckets of bucketSize per channel and
// returns exactly swatchCount swatches ranked by bucket population. Each
// swatch is the mean color of its bucket. Equal populations keep the order
// in which the buckets were first seen. Fewer buckets than swatchCount are
// padded by repeating the last swatch; no pixels at all yields neutral gray.
func Quantize(pixels []domain.RGB, swatchCount, bucketSize int) []domain.PaletteSwatch {
	if swatchCount <= 0 {
		return []domain.PaletteSwatch{}
	}
	if bucketSize <= 0 {
		bucketSize = constants.PaletteConfig.BucketSize
	}

	index := make(map[[3]int]int)
	buckets := make([]*bucket, 0, 64)

	for _, px := range pixels {
		key := [3]int{px[0] / bucketSize, px[1] / bucketSize, px[2] / bucketSize}
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, &bucket{})
		}
		b := buckets[i]
		b.count++
		b.rSum += px[0]
		b.gSum += px[1]
		b.bSum += px[2]
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].count > buckets[j].count
	})

	ranked := make([]domain.PaletteSwatch, 0, swatchCount)
	for _, b := range buckets {
		if len(ranked) == swatchCount {
			break
		}
		ranked = append(ranked, domain.NewSwatch(b.mean(), b.count))
	}

	return Normalize(ranked, swatchCount)
}

// Normalize forces swatches to length n: truncate, pad with copies of the
// last swatch, or fill with the gray fallback when empty.
func Normalize(swatches []domain.PaletteSwatch, n int) []domain.PaletteSwatch {
	if n <= 0 {
		return []domain.PaletteSwatch{}
	}
	if len(swatches) == 0 {
		return FallbackSwatches(n)
	}
	if len(swatches) >= n {
		return swatches[:n:n]
	}

	filled := make([]domain.PaletteSwatch, 0, n)
	filled = append(filled, swatches...)
	last := swatches[len(swatches)-1]
	for len(filled) < n {
		filled = append(filled, last)
	}
	return filled
}

// FallbackSwatches returns n mid-gray swatches with population 1.
func FallbackSwatches(n int) []domain.PaletteSwatch {
	gray := domain.NewSwatch(domain.RGB(constants.PaletteConfig.FallbackRGB), 1)
	swatches := make([]domain.PaletteSwatch, n)
	for i := range swatches {
		swatches[i] = gray
	}
	return swatches
}

// FallbackSet is the palette used when no candidate image could be used.
func FallbackSet(n int) domain.PaletteSet {
	return domain.PaletteSet{Swatches: FallbackSwatches(n), SourceURL: ""}
}
