package interpretquery

import (
	"fmt"
	"strconv"
	"strings"

	"commerce-search-workers/internal/models"
)

const qualityRatingMin = 4.0

// synthesizeFilters maps entities to the retrieval filter set. Keywords
// without a filter meaning (vegan, jain, ...) are left out.
func synthesizeFilters(entities []models.ExtractedEntity) map[string]interface{} {
	filters := make(map[string]interface{})

	setSort := func(v string) {
		if _, ok := filters[models.FilterSort]; !ok {
			filters[models.FilterSort] = v
		}
	}

	for _, ent := range entities {
		switch ent.Kind {
		case models.EntityPrice:
			if ent.Value.Min != nil {
				filters[models.FilterPriceMin] = *ent.Value.Min
			}
			if ent.Value.Max != nil {
				filters[models.FilterPriceMax] = *ent.Value.Max
			}

		case models.EntityDistance:
			if ent.Value.Number != nil {
				filters[models.FilterRadiusKm] = *ent.Value.Number
			}

		case models.EntityLocation:
			filters[models.FilterLocation] = ent.Value.Text

		case models.EntityDietary:
			switch ent.Value.Text {
			case "veg", "vegetarian":
				filters[models.FilterVeg] = true
			case "non-veg", "non-vegetarian":
				filters[models.FilterVeg] = false
			}

		case models.EntityCuisine:
			if _, ok := filters[models.FilterCuisine]; !ok {
				filters[models.FilterCuisine] = ent.Value.Text
			}

		case models.EntityQuality:
			switch ent.Value.Text {
			case "best", "highly rated":
				filters[models.FilterRatingMin] = qualityRatingMin
				setSort(models.SortRating)
			case "popular":
				setSort(models.SortPopularity)
			}
		}
	}

	return filters
}

// acknowledge renders "Searching for '<residual>'" followed by one clause
// per entity in extraction order.
func acknowledge(residual string, entities []models.ExtractedEntity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Searching for '%s'", residual)

	for _, ent := range entities {
		switch ent.Kind {
		case models.EntityPrice:
			switch {
			case ent.Value.Min != nil && ent.Value.Max != nil:
				fmt.Fprintf(&b, " between ₹%s and ₹%s", formatNumber(*ent.Value.Min), formatNumber(*ent.Value.Max))
			case ent.Value.Max != nil:
				fmt.Fprintf(&b, " under ₹%s", formatNumber(*ent.Value.Max))
			case ent.Value.Min != nil:
				fmt.Fprintf(&b, " above ₹%s", formatNumber(*ent.Value.Min))
			}
		case models.EntityLocation:
			if ent.Value.Text == currentLocation {
				b.WriteString(" near you")
			} else {
				fmt.Fprintf(&b, " near %s", ent.Value.Text)
			}
		case models.EntityDistance:
			if ent.Value.Number != nil {
				fmt.Fprintf(&b, " within %s km", formatNumber(*ent.Value.Number))
			}
		case models.EntityDietary:
			fmt.Fprintf(&b, " (%s)", ent.Value.Text)
		case models.EntityCuisine:
			fmt.Fprintf(&b, " (%s cuisine)", ent.Value.Text)
		case models.EntityQuality:
			fmt.Fprintf(&b, " (%s)", ent.Value.Text)
		}
	}

	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
