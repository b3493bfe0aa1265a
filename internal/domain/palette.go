package domain

import "fmt"

// RGB is a color as three 0-255 channels.
type RGB [3]int

// Hex renders the color as an uppercase #RRGGBB string.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", clampChannel(c[0]), clampChannel(c[1]), clampChannel(c[2]))
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// PaletteMode selects which artwork variant a palette belongs to.
type PaletteMode string

const (
	// ModeNormal is the primary artwork.
	ModeNormal PaletteMode = "normal"
	// ModeShiny is the alternate artwork.
	ModeShiny PaletteMode = "shiny"
)

func (m PaletteMode) String() string {
	return string(m)
}

type PaletteSwatch struct {
	RGB        RGB    `json:"rgb"`
	Hex        string `json:"hex"`
	Population int    `json:"population"`
}

// NewSwatch builds a swatch with its canonical hex form.
func NewSwatch(rgb RGB, population int) PaletteSwatch {
	return PaletteSwatch{RGB: rgb, Hex: rgb.Hex(), Population: population}
}

// PaletteSet is the ranked swatch list extracted from one image. SourceURL is
// empty when no candidate image could be used.
type PaletteSet struct {
	Swatches  []PaletteSwatch `json:"swatches"`
	SourceURL string          `json:"sourceUrl"`
}

// Complete reports whether the set carries at least n swatches.
func (p PaletteSet) Complete(n int) bool {
	return len(p.Swatches) >= n
}
