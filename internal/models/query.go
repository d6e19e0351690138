// internal/models/query.go
package models

// EntityKind names the category of an extracted entity.
type EntityKind string

const (
	EntityPrice    EntityKind = "price"
	EntityLocation EntityKind = "location"
	EntityDistance EntityKind = "distance"
	EntityDietary  EntityKind = "dietary"
	EntityCuisine  EntityKind = "cuisine"
	EntityQuality  EntityKind = "quality"
)

// EntityValue is either a scalar (Text or Number) or a range (Min/Max).
// A price "under N" sets only Max, "above N" only Min, "between" both.
type EntityValue struct {
	Text   string   `json:"text,omitempty"`
	Number *float64 `json:"number,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

type ExtractedEntity struct {
	Kind       EntityKind  `json:"kind"`
	Value      EntityValue `json:"value"`
	RawSpan    string      `json:"rawSpan"`
	Confidence float64     `json:"confidence"`
}

// Filter keys produced by the filter synthesizer.
const (
	FilterPriceMin  = "priceMin"
	FilterPriceMax  = "priceMax"
	FilterRadiusKm  = "radiusKm"
	FilterVeg       = "veg"
	FilterRatingMin = "ratingMin"
	FilterSort      = "sort"
	FilterCuisine   = "cuisine"
	FilterLocation  = "location"
)

const (
	SortRating     = "rating"
	SortPopularity = "popularity"
)

type QueryInterpretation struct {
	OriginalText      string                 `json:"originalText"`
	ResidualQueryText string                 `json:"residualQueryText"`
	Entities          []ExtractedEntity      `json:"entities"`
	Filters           map[string]interface{} `json:"filters"`
	Acknowledgement   string                 `json:"acknowledgement"`
}

// GeoPoint is a caller or candidate coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
