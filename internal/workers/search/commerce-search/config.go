// internal/workers/search/commerce-search/config.go
package commercesearch

import (
	"time"

	rerankresults "commerce-search-workers/internal/workers/search/rerank-results"
)

type Config struct {
	Timeout        time.Duration
	CandidateSize  int
	MaxQueryLength int
	Scoring        rerankresults.ScoringConfig
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        5 * time.Second,
		CandidateSize:  50,
		MaxQueryLength: 500,
		Scoring:        rerankresults.DefaultScoringConfig(),
	}
}
