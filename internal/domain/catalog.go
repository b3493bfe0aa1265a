package domain

// CatalogItemRef is one row of the catalog listing.
type CatalogItemRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// CatalogPage is a single page of the paginated listing endpoint.
type CatalogPage struct {
	Count   int              `json:"count"`
	Next    string           `json:"next"`
	Results []CatalogItemRef `json:"results"`
}

type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

// SpriteSet holds the front-facing sprite URLs of one artwork source. Null
// fields in the API response decode to the empty string.
type SpriteSet struct {
	FrontDefault string `json:"front_default"`
	FrontShiny   string `json:"front_shiny"`
}

type OtherSprites struct {
	OfficialArtwork SpriteSet `json:"official-artwork"`
	Home            SpriteSet `json:"home"`
}

type Sprites struct {
	FrontDefault string       `json:"front_default"`
	FrontShiny   string       `json:"front_shiny"`
	Other        OtherSprites `json:"other"`
}

// DetailRecord is the raw per-item record returned by the detail endpoint.
type DetailRecord struct {
	ID        int           `json:"id"`
	Name      string        `json:"name"`
	Order     int           `json:"order"`
	FormOrder int           `json:"form_order"`
	IsDefault bool          `json:"is_default"`
	Species   NamedResource `json:"species"`
	Types     []TypeSlot    `json:"types"`
	Sprites   Sprites       `json:"sprites"`
}

// SpeciesRecord is the subset of the species endpoint the index needs.
type SpeciesRecord struct {
	ID         int            `json:"id"`
	Name       string         `json:"name"`
	Color      *NamedResource `json:"color"`
	Generation *NamedResource `json:"generation"`
}

// SpeciesInfo is the resolved species data shared by every form of a species.
type SpeciesInfo struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Generation int    `json:"generation"`
}

var generationNumbers = map[string]int{
	"generation-i":    1,
	"generation-ii":   2,
	"generation-iii":  3,
	"generation-iv":   4,
	"generation-v":    5,
	"generation-vi":   6,
	"generation-vii":  7,
	"generation-viii": 8,
	"generation-ix":   9,
}

// GenerationNumber maps a generation resource name to its number, 0 when unknown.
func GenerationNumber(name string) int {
	return generationNumbers[name]
}

// Info flattens the raw species record.
func (s *SpeciesRecord) Info() SpeciesInfo {
	info := SpeciesInfo{
		ID:    s.ID,
		Name:  s.Name,
		Color: "unknown",
	}
	if s.Color != nil && s.Color.Name != "" {
		info.Color = s.Color.Name
	}
	if s.Generation != nil {
		info.Generation = GenerationNumber(s.Generation.Name)
	}
	return info
}
