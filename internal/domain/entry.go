package domain

import (
	"sort"
	"time"
)

type FormTag string

const (
	FormTagDefault  FormTag = "default"
	FormTagMega     FormTag = "mega"
	FormTagGmax     FormTag = "gmax"
	FormTagRegional FormTag = "regional"
	FormTagGendered FormTag = "gendered"
	FormTagPrimal   FormTag = "primal"
	FormTagOrigin   FormTag = "origin"
	FormTagTotem    FormTag = "totem"
	FormTagVariant  FormTag = "variant"
)

// ModeImages records the image URL each palette was extracted from.
type ModeImages struct {
	Normal string `json:"normal"`
	Shiny  string `json:"shiny"`
}

type ModePalettes struct {
	Normal PaletteSet `json:"normal"`
	Shiny  PaletteSet `json:"shiny"`
}

// IndexEntry is the persisted record for one catalog item, keyed by Name.
type IndexEntry struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	DisplayName string       `json:"displayName"`
	SpeciesID   int          `json:"speciesId"`
	SpeciesName string       `json:"speciesName"`
	Types       []string     `json:"types"`
	Generation  int          `json:"generation"`
	Color       string       `json:"color"`
	FormTags    []FormTag    `json:"formTags"`
	IsDefault   bool         `json:"isDefault"`
	Order       int          `json:"order"`
	FormOrder   int          `json:"formOrder"`
	Images      ModeImages   `json:"images"`
	Palettes    ModePalettes `json:"palettes"`
}

// Palette returns the palette stored for mode.
func (e *IndexEntry) Palette(mode PaletteMode) PaletteSet {
	if mode == ModeShiny {
		return e.Palettes.Shiny
	}
	return e.Palettes.Normal
}

// HasCompletePalettes reports whether both modes already carry n swatches.
func (e *IndexEntry) HasCompletePalettes(n int) bool {
	return e.Palettes.Normal.Complete(n) && e.Palettes.Shiny.Complete(n)
}

// IndexSnapshot is the whole persisted dataset.
type IndexSnapshot struct {
	GeneratedAt time.Time    `json:"generatedAt"`
	Count       int          `json:"count"`
	Entries     []IndexEntry `json:"entries"`
}

// EntriesByName indexes the snapshot entries by name.
func (s *IndexSnapshot) EntriesByName() map[string]*IndexEntry {
	byName := make(map[string]*IndexEntry, len(s.Entries))
	for i := range s.Entries {
		byName[s.Entries[i].Name] = &s.Entries[i]
	}
	return byName
}

// SortEntries orders entries by species id, then form order. The sort is
// stable so equal keys keep their input order.
func SortEntries(entries []IndexEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SpeciesID != entries[j].SpeciesID {
			return entries[i].SpeciesID < entries[j].SpeciesID
		}
		return entries[i].FormOrder < entries[j].FormOrder
	})
}
