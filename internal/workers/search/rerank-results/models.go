// internal/workers/search/rerank-results/models.go
package rerankresults

import "commerce-search-workers/internal/models"

type Input struct {
	Candidates     []models.Candidate     `json:"candidates"`
	Query          string                 `json:"query"`
	Filters        map[string]interface{} `json:"filters"`
	UserID         string                 `json:"userId"`
	Location       *models.GeoPoint       `json:"location"`
	MaxPerStore    int                    `json:"maxPerStore"`
	MaxPerCategory int                    `json:"maxPerCategory"`
}

type Output struct {
	Results     []models.ScoredCandidate `json:"results"`
	TotalRanked int                      `json:"totalRanked"`
}
