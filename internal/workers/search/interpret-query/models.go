// internal/workers/search/interpret-query/models.go
package interpretquery

import "commerce-search-workers/internal/models"

type Input struct {
	Text string `json:"text"`
}

type Output struct {
	Interpretation models.QueryInterpretation `json:"interpretation"`
	EntityCount    int                        `json:"entityCount"`
}
