// internal/workers/data-access/search-catalog/models.go
package searchcatalog

import "commerce-search-workers/internal/models"

const (
	QueryTypeItems = "items"
	QueryTypeStore = "store"
)

type Input struct {
	QueryType string                 `json:"queryType"`
	Text      string                 `json:"text"`
	Filters   map[string]interface{} `json:"filters"`
	StoreID   string                 `json:"storeId"`
	ZoneID    string                 `json:"zoneId"`
	ModuleID  string                 `json:"moduleId"`
	Location  *models.GeoPoint       `json:"location"`
	Size      int                    `json:"size"`
}

type Output struct {
	Candidates []models.Candidate `json:"candidates"`
	Store      *models.StoreRef   `json:"store,omitempty"`
	Count      int                `json:"count"`
}
