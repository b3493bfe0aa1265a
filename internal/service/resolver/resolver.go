// Package resolver lists the artwork URLs worth trying for an item, most
// authoritative first.
package resolver

import (
	"fmt"
	"strings"

	"github.com/kapu/palette-index-go/internal/domain"
)

type Resolver struct {
	spriteBase string
}

// New returns a resolver whose id-derived fallbacks live under spriteBase.
func New(spriteBase string) *Resolver {
	return &Resolver{spriteBase: strings.TrimRight(spriteBase, "/")}
}

// Resolve returns the ordered, de-duplicated candidate list for mode:
// official artwork, home render, the record's own sprite, then URLs derived
// from the numeric id. Empty fields are skipped; the list may be empty.
func (r *Resolver) Resolve(record *domain.DetailRecord, mode domain.PaletteMode) []string {
	if record == nil {
		return []string{}
	}

	sprites := record.Sprites
	var candidates []string

	switch mode {
	case domain.ModeShiny:
		candidates = []string{
			sprites.Other.OfficialArtwork.FrontShiny,
			sprites.Other.Home.FrontShiny,
			sprites.FrontShiny,
		}
		if record.ID > 0 {
			candidates = append(candidates,
				fmt.Sprintf("%s/other/home/shiny/%d.png", r.spriteBase, record.ID),
				fmt.Sprintf("%s/shiny/%d.png", r.spriteBase, record.ID),
			)
		}
	default:
		candidates = []string{
			sprites.Other.OfficialArtwork.FrontDefault,
			sprites.Other.Home.FrontDefault,
			sprites.FrontDefault,
		}
		if record.ID > 0 {
			candidates = append(candidates,
				fmt.Sprintf("%s/other/official-artwork/%d.png", r.spriteBase, record.ID),
				fmt.Sprintf("%s/other/home/%d.png", r.spriteBase, record.ID),
				fmt.Sprintf("%s/%d.png", r.spriteBase, record.ID),
			)
		}
	}

	return dedupe(candidates)
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	result := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		result = append(result, u)
	}
	return result
}
