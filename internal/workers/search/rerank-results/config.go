// internal/workers/search/rerank-results/config.go
package rerankresults

import (
	"time"

	"commerce-search-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	Scoring ScoringConfig
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
		Scoring: DefaultScoringConfig(),
	}
}

// ScoringConfig carries every weight, default and cap used by the reranker.
type ScoringConfig struct {
	Weights        config.WeightsConfig
	Defaults       config.SignalDefaults
	MaxPerStore    int
	MaxPerCategory int
	MaxResults     int
	CTRTimeout     time.Duration
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights: config.WeightsConfig{
			Text:       0.30,
			CTR:        0.25,
			Rating:     0.15,
			Popularity: 0.10,
			Recency:    0.10,
			Proximity:  0.10,
		},
		Defaults: config.SignalDefaults{
			CTR:       0.01,
			Rating:    3.0,
			TextScore: 1.0,
			Proximity: 0.5,
			Recency:   0.2,
		},
		MaxPerStore:    DefaultMaxPerStore,
		MaxPerCategory: DefaultMaxPerCategory,
		MaxResults:     DefaultMaxResults,
		CTRTimeout:     150 * time.Millisecond,
	}
}

// ScoringConfigFrom maps the loaded search section. Fields left at zero keep
// their defaults.
func ScoringConfigFrom(s config.SearchConfig) ScoringConfig {
	sc := DefaultScoringConfig()
	if s.Weights.Sum() > 0 {
		sc.Weights = s.Weights
	}
	if s.Defaults.CTR > 0 {
		sc.Defaults.CTR = s.Defaults.CTR
	}
	if s.Defaults.Rating > 0 {
		sc.Defaults.Rating = s.Defaults.Rating
	}
	if s.Defaults.TextScore > 0 {
		sc.Defaults.TextScore = s.Defaults.TextScore
	}
	if s.Defaults.Proximity > 0 {
		sc.Defaults.Proximity = s.Defaults.Proximity
	}
	if s.Defaults.Recency > 0 {
		sc.Defaults.Recency = s.Defaults.Recency
	}
	if s.Diversity.MaxPerStore > 0 {
		sc.MaxPerStore = s.Diversity.MaxPerStore
	}
	if s.Diversity.MaxPerCategory > 0 {
		sc.MaxPerCategory = s.Diversity.MaxPerCategory
	}
	if s.Diversity.MaxResults > 0 {
		sc.MaxResults = s.Diversity.MaxResults
	}
	if s.CTRTimeout > 0 {
		sc.CTRTimeout = config.GetDuration(s.CTRTimeout)
	}
	return sc
}
