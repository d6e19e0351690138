// internal/workers/search/interpret-query/config.go
package interpretquery

import "time"

type Config struct {
	Timeout        time.Duration
	MaxQueryLength int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        2 * time.Second,
		MaxQueryLength: 500,
	}
}
