package catalog

import (
	"commerce-search-workers/internal/models"
)

// Item document fields.
const (
	fieldName         = "name"
	fieldDescription  = "description"
	fieldCategoryName = "category_name"
	fieldCuisines     = "cuisines"
	fieldStoreID      = "store_id"
	fieldZoneID       = "zone_id"
	fieldModuleID     = "module_id"
	fieldPrice        = "price"
	fieldVeg          = "veg"
	fieldRating       = "avg_rating"
	fieldOrderCount   = "order_count"
	fieldLocation     = "location"
	fieldAddress      = "address"
)

// BuildItemQuery builds the search body for the item index. Interpreted
// filters (priceMin, veg, radiusKm, ...) become filter clauses; cuisine and
// location become should clauses so the stripped words still influence
// relevance without excluding rows.
func BuildItemQuery(text string, f models.SearchFilters) map[string]interface{} {
	must := []interface{}{
		map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     text,
				"fields":    []string{fieldName + "^3", fieldCategoryName + "^2", fieldDescription},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		},
	}

	filter := []interface{}{}
	should := []interface{}{}

	for _, kv := range [][2]string{
		{fieldStoreID, f.StoreID},
		{fieldZoneID, f.ZoneID},
		{fieldModuleID, f.ModuleID},
	} {
		if kv[1] != "" {
			filter = append(filter, term(kv[0], kv[1]))
		}
	}

	q := f.Query
	priceRange := map[string]interface{}{}
	if v, ok := number(q[models.FilterPriceMin]); ok {
		priceRange["gte"] = v
	}
	if v, ok := number(q[models.FilterPriceMax]); ok {
		priceRange["lte"] = v
	}
	if len(priceRange) > 0 {
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{fieldPrice: priceRange},
		})
	}

	if veg, ok := q[models.FilterVeg].(bool); ok {
		filter = append(filter, term(fieldVeg, veg))
	}

	if v, ok := number(q[models.FilterRatingMin]); ok {
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{fieldRating: map[string]interface{}{"gte": v}},
		})
	}

	if radius, ok := number(q[models.FilterRadiusKm]); ok && f.Near != nil {
		filter = append(filter, map[string]interface{}{
			"geo_distance": map[string]interface{}{
				"distance":    formatKm(radius),
				fieldLocation: map[string]interface{}{"lat": f.Near.Lat, "lon": f.Near.Lon},
			},
		})
	}

	if cuisine, ok := q[models.FilterCuisine].(string); ok && cuisine != "" {
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{fieldCuisines: map[string]interface{}{"query": cuisine, "boost": 2}},
		})
	}
	if loc, ok := q[models.FilterLocation].(string); ok && loc != "" && loc != currentLocation {
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{fieldAddress: loc},
		})
	}

	boolQuery := map[string]interface{}{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	if len(should) > 0 {
		boolQuery["should"] = should
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}

	switch q[models.FilterSort] {
	case models.SortRating:
		body["sort"] = []interface{}{"_score", map[string]interface{}{fieldRating: "desc"}}
	case models.SortPopularity:
		body["sort"] = []interface{}{"_score", map[string]interface{}{fieldOrderCount: "desc"}}
	}
	if _, sorted := body["sort"]; sorted {
		body["track_scores"] = true
	}

	return body
}

// BuildStoreQuery builds the store-name lookup body.
func BuildStoreQuery(name, moduleID string) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{
				"match": map[string]interface{}{
					fieldName: map[string]interface{}{
						"query":     name,
						"fuzziness": "AUTO",
						"operator":  "and",
					},
				},
			},
		},
	}
	if moduleID != "" {
		boolQuery["filter"] = []interface{}{term(fieldModuleID, moduleID)}
	}
	return map[string]interface{}{"query": map[string]interface{}{"bool": boolQuery}}
}

func term(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{field: value}}
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
