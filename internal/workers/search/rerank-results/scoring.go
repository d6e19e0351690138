// internal/workers/search/rerank-results/scoring.go
package rerankresults

import (
	"math"
	"time"

	"commerce-search-workers/internal/models"
)

const earthRadiusKm = 6371.0

func ctrScore(ctr float64) float64 {
	return math.Log(1 + math.Max(ctr, 0)*100)
}

func ratingScore(rating float64) float64 {
	return rating / 5.0
}

func popularityScore(orderCount int64) float64 {
	if orderCount < 0 {
		orderCount = 0
	}
	return math.Log(1 + float64(orderCount))
}

// recencyScore steps down with the age of createdAt relative to now.
func recencyScore(createdAt *time.Time, now time.Time, missing float64) float64 {
	if createdAt == nil {
		return missing
	}

	days := now.Sub(*createdAt).Hours() / 24.0

	switch {
	case days < 7:
		return 1.0
	case days < 30:
		return 0.8
	case days < 90:
		return 0.5
	case days < 365:
		return 0.3
	default:
		return 0.2
	}
}

// proximityScore steps down with the haversine distance between the caller
// and the candidate. Either side missing yields the neutral value.
func proximityScore(origin *models.GeoPoint, c models.Candidate, neutral float64) float64 {
	if origin == nil {
		return neutral
	}
	dest, ok := c.Location()
	if !ok {
		return neutral
	}

	km := haversineKm(*origin, dest)

	switch {
	case km < 1:
		return 1.0
	case km < 3:
		return 0.9
	case km < 5:
		return 0.7
	case km < 10:
		return 0.5
	case km < 20:
		return 0.3
	default:
		return 0.1
	}
}

func haversineKm(a, b models.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// score blends the six signals. Each breakdown field is the weighted term.
func (sc ScoringConfig) score(c models.Candidate, ctr float64, origin *models.GeoPoint, now time.Time) models.ScoredCandidate {
	text := sc.Defaults.TextScore
	if c.TextScore != nil {
		text = *c.TextScore
	}
	rating := sc.Defaults.Rating
	if c.Rating != nil {
		rating = *c.Rating
	}
	var orders int64
	if c.OrderCount != nil {
		orders = *c.OrderCount
	}

	w := sc.Weights
	breakdown := models.SignalBreakdown{
		TextRelevance: w.Text * text,
		CTR:           w.CTR * ctrScore(ctr),
		Rating:        w.Rating * ratingScore(rating),
		Popularity:    w.Popularity * popularityScore(orders),
		Recency:       w.Recency * recencyScore(c.CreatedAt, now, sc.Defaults.Recency),
		Proximity:     w.Proximity * proximityScore(origin, c, sc.Defaults.Proximity),
	}

	return models.ScoredCandidate{
		Candidate:       c,
		FinalScore:      breakdown.Total(),
		SignalBreakdown: breakdown,
	}
}
