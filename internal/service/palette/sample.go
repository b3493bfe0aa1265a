package palette

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/kapu/palette-index-go/internal/constants"
	"github.com/kapu/palette-index-go/internal/domain"
)

// Sample resizes img to fit inside a targetSize square, keeping the aspect
// ratio, and returns a strided sample of its opaque pixels. Pixels with alpha
// below alphaThreshold are skipped so transparent backgrounds do not count.
func Sample(img image.Image, targetSize, alphaThreshold int) []domain.RGB {
	src := img.Bounds()
	if src.Empty() {
		return []domain.RGB{}
	}

	w, h := fitInside(src.Dx(), src.Dy(), targetSize)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == src.Dx() && h == src.Dy() {
		draw.Copy(dst, image.Point{}, img, src, draw.Src, nil)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	}

	pixelCount := w * h
	step := pixelCount / constants.PaletteConfig.MaxSamples
	if step < 1 {
		step = 1
	}

	pixels := make([]domain.RGB, 0, pixelCount/step+1)
	for i := 0; i < pixelCount; i += step {
		off := i * 4
		if int(dst.Pix[off+3]) < alphaThreshold {
			continue
		}
		pixels = append(pixels, domain.RGB{int(dst.Pix[off]), int(dst.Pix[off+1]), int(dst.Pix[off+2])})
	}
	return pixels
}

// fitInside scales (w, h) so the longest edge equals target. Small images
// are enlarged as well.
func fitInside(w, h, target int) (int, int) {
	if target <= 0 {
		return w, h
	}

	scale := math.Min(float64(target)/float64(w), float64(target)/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}
