// internal/models/catalog.go
package models

import "time"

// Candidate is one retrieval result row. Pointer fields may be absent.
type Candidate struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	TextScore  *float64   `json:"textScore,omitempty"`
	StoreID    string     `json:"storeId,omitempty"`
	StoreName  string     `json:"storeName,omitempty"`
	Rating     *float64   `json:"rating,omitempty"`
	OrderCount *int64     `json:"orderCount,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	Lat        *float64   `json:"lat,omitempty"`
	Lon        *float64   `json:"lon,omitempty"`
	CategoryID string     `json:"categoryId,omitempty"`
	Price      float64    `json:"price"`
}

// Location returns the candidate coordinates when both are present.
func (c Candidate) Location() (GeoPoint, bool) {
	if c.Lat == nil || c.Lon == nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Lat: *c.Lat, Lon: *c.Lon}, true
}

// SignalBreakdown holds each weighted term of the final score.
type SignalBreakdown struct {
	TextRelevance float64 `json:"textRelevance"`
	CTR           float64 `json:"ctr"`
	Rating        float64 `json:"rating"`
	Popularity    float64 `json:"popularity"`
	Recency       float64 `json:"recency"`
	Proximity     float64 `json:"proximity"`
}

// Total sums the weighted terms.
func (s SignalBreakdown) Total() float64 {
	return s.TextRelevance + s.CTR + s.Rating + s.Popularity + s.Recency + s.Proximity
}

type ScoredCandidate struct {
	Candidate
	FinalScore      float64         `json:"finalScore"`
	SignalBreakdown SignalBreakdown `json:"signalBreakdown"`
}

// SearchFilters scope a retrieval call.
type SearchFilters struct {
	StoreID  string                 `json:"storeId,omitempty"`
	ZoneID   string                 `json:"zoneId,omitempty"`
	ModuleID string                 `json:"moduleId,omitempty"`
	Size     int                    `json:"size,omitempty"`
	Near     *GeoPoint              `json:"near,omitempty"`
	Query    map[string]interface{} `json:"query,omitempty"`
}

// StoreRef is the result of a store-name lookup.
type StoreRef struct {
	StoreID   string `json:"storeId"`
	StoreName string `json:"storeName"`
}

// Engagement is the per-item click analytics row.
type Engagement struct {
	CTR   float64 `json:"ctr"`
	CVR   float64 `json:"cvr"`
	Views int64   `json:"views"`
}
