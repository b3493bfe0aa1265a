package store

import "github.com/kapu/palette-index-go/internal/domain"

// Merge overlays built entries onto existing ones by name and returns the
// result sorted by species id, then form order. Nil builds are ignored, so
// entries that failed this run keep their previous version. Position ties
// follow first insertion, which keeps the output stable across runs.
func Merge(existing []domain.IndexEntry, built []*domain.IndexEntry) []domain.IndexEntry {
	order := make([]string, 0, len(existing)+len(built))
	byName := make(map[string]domain.IndexEntry, len(existing)+len(built))

	put := func(entry domain.IndexEntry) {
		if _, ok := byName[entry.Name]; !ok {
			order = append(order, entry.Name)
		}
		byName[entry.Name] = entry
	}

	for _, entry := range existing {
		put(entry)
	}
	for _, entry := range built {
		if entry != nil {
			put(*entry)
		}
	}

	merged := make([]domain.IndexEntry, 0, len(order))
	for _, name := range order {
		merged = append(merged, byName[name])
	}
	domain.SortEntries(merged)
	return merged
}
