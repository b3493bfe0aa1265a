package domain

import (
	"sort"
	"strings"

	"github.com/kapu/palette-index-go/internal/util"
)

var specialNames = map[string]string{
	"farfetchd": "Farfetch'd",
	"sirfetchd": "Sirfetch'd",
	"mr-mime":   "Mr. Mime",
	"mr-rime":   "Mr. Rime",
	"mime-jr":   "Mime Jr.",
	"type-null": "Type: Null",
	"ho-oh":     "Ho-Oh",
	"porygon-z": "Porygon-Z",
	"jangmo-o":  "Jangmo-o",
	"hakamo-o":  "Hakamo-o",
	"kommo-o":   "Kommo-o",
	"tapu-koko": "Tapu Koko",
	"tapu-lele": "Tapu Lele",
	"tapu-bulu": "Tapu Bulu",
	"tapu-fini": "Tapu Fini",
	"chien-pao": "Chien-Pao",
	"chi-yu":    "Chi-Yu",
	"ting-lu":   "Ting-Lu",
	"wo-chien":  "Wo-Chien",
	"nidoran-f": "Nidoran F",
	"nidoran-m": "Nidoran M",
}

var formTokenLabels = map[string]string{
	"mega":     "Mega",
	"gmax":     "Gigantamax",
	"primal":   "Primal",
	"origin":   "Origin",
	"totem":    "Totem",
	"alola":    "Alolan",
	"alolan":   "Alolan",
	"galar":    "Galarian",
	"galarian": "Galarian",
	"hisui":    "Hisuian",
	"hisuian":  "Hisuian",
	"paldea":   "Paldean",
	"paldean":  "Paldean",
	"female":   "Female",
	"male":     "Male",
}

var regionTokens = map[string]struct{}{
	"alola":    {},
	"alolan":   {},
	"galar":    {},
	"galarian": {},
	"hisui":    {},
	"hisuian":  {},
	"paldea":   {},
	"paldean":  {},
}

// FormatName turns a species slug into a display name.
func FormatName(slug string) string {
	normalized := util.Normalize(slug)
	if name, ok := specialNames[normalized]; ok {
		return name
	}

	tokens := util.SlugTokens(normalized)
	for i, token := range tokens {
		tokens[i] = util.TitleCase(token)
	}
	return strings.Join(tokens, " ")
}

// FormatFormLabel turns a form suffix such as "alola" or "mega-x" into a label.
func FormatFormLabel(slug string) string {
	normalized := util.Normalize(slug)
	if name, ok := specialNames[normalized]; ok {
		return name
	}

	tokens := util.SlugTokens(normalized)
	for i, token := range tokens {
		if label, ok := formTokenLabels[token]; ok {
			tokens[i] = label
			continue
		}
		tokens[i] = util.TitleCase(token)
	}
	return strings.Join(tokens, " ")
}

// DisplayName combines the species name with a label for the form suffix,
// e.g. "raichu-alola" of species "raichu" becomes "Raichu Alolan".
func DisplayName(itemName, speciesName string) string {
	base := FormatName(speciesName)
	if itemName == speciesName {
		return base
	}

	suffix := strings.TrimPrefix(itemName, speciesName+"-")
	return base + " " + FormatFormLabel(suffix)
}

// DeriveFormTags classifies an item name into filterable form tags. Tags are
// returned in a fixed order; "variant" is used for non-default items that
// match nothing else.
func DeriveFormTags(name string, isDefault bool) []FormTag {
	tokens := util.SlugTokens(name)
	tags := make([]FormTag, 0, 2)

	if isDefault {
		tags = append(tags, FormTagDefault)
	}
	if util.Contains(tokens, "mega") {
		tags = append(tags, FormTagMega)
	}
	if util.Contains(tokens, "gmax") {
		tags = append(tags, FormTagGmax)
	}
	for _, token := range tokens {
		if _, ok := regionTokens[token]; ok {
			tags = append(tags, FormTagRegional)
			break
		}
	}
	if util.Contains(tokens, "female") || util.Contains(tokens, "male") {
		tags = append(tags, FormTagGendered)
	}
	if util.Contains(tokens, "primal") {
		tags = append(tags, FormTagPrimal)
	}
	if util.Contains(tokens, "origin") {
		tags = append(tags, FormTagOrigin)
	}
	if util.Contains(tokens, "totem") {
		tags = append(tags, FormTagTotem)
	}

	if !isDefault && len(tags) == 0 {
		tags = append(tags, FormTagVariant)
	}
	return tags
}

// SortedTypeNames returns the type names ordered by slot.
func SortedTypeNames(slots []TypeSlot) []string {
	sorted := make([]TypeSlot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Slot < sorted[j].Slot
	})

	names := make([]string, 0, len(sorted))
	for _, slot := range sorted {
		names = append(names, slot.Type.Name)
	}
	return names
}
