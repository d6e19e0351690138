// internal/workers/search/commerce-search/models.go
package commercesearch

import "commerce-search-workers/internal/models"

type Input struct {
	Text           string           `json:"text"`
	UserID         string           `json:"userId"`
	Location       *models.GeoPoint `json:"location"`
	StoreID        string           `json:"storeId"`
	ZoneID         string           `json:"zoneId"`
	ModuleID       string           `json:"moduleId"`
	MaxPerStore    int              `json:"maxPerStore"`
	MaxPerCategory int              `json:"maxPerCategory"`
}

type Output struct {
	RequestID       string                     `json:"requestId"`
	Interpretation  models.QueryInterpretation `json:"interpretation"`
	Results         []models.ScoredCandidate   `json:"results"`
	TotalCandidates int                        `json:"totalCandidates"`
	Message         string                     `json:"message"`
}
