// internal/workers/cart/build-cart/config.go
package buildcart

import (
	"time"

	"commerce-search-workers/internal/common/config"
)

type Config struct {
	Timeout  time.Duration
	MaxItems int
	Match    MatchConfig
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  10 * time.Second,
		MaxItems: 50,
		Match:    DefaultMatchConfig(),
	}
}

// MatchConfig holds the fuzzy matching threshold and retrieval fan-out.
type MatchConfig struct {
	Threshold         float64
	CandidatesPerItem int
	MaxAlternatives   int
	Concurrency       int
	ItemTimeout       time.Duration
}

func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Threshold:         0.5,
		CandidatesPerItem: 5,
		MaxAlternatives:   3,
		Concurrency:       4,
		ItemTimeout:       2 * time.Second,
	}
}

// MatchConfigFrom maps the loaded cart section. Zero fields keep defaults.
func MatchConfigFrom(c config.CartConfig) MatchConfig {
	mc := DefaultMatchConfig()
	if c.MatchThreshold > 0 {
		mc.Threshold = c.MatchThreshold
	}
	if c.CandidatesPerItem > 0 {
		mc.CandidatesPerItem = c.CandidatesPerItem
	}
	if c.MaxAlternatives > 0 {
		mc.MaxAlternatives = c.MaxAlternatives
	}
	if c.Concurrency > 0 {
		mc.Concurrency = c.Concurrency
	}
	if c.ItemTimeout > 0 {
		mc.ItemTimeout = config.GetDuration(c.ItemTimeout)
	}
	return mc
}
