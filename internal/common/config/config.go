// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Search        SearchConfig            `mapstructure:"search"`
	Cart          CartConfig              `mapstructure:"cart"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPAddr    string `mapstructure:"http_addr"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// Enabled reports whether an engagement database is configured at all.
func (p PostgresConfig) Enabled() bool {
	return p.Host != "" && p.Database != ""
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // single URL shorthand
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SearchConfig holds retrieval indices and the reranking knobs.
type SearchConfig struct {
	ItemIndex     string          `mapstructure:"item_index"`
	StoreIndex    string          `mapstructure:"store_index"`
	CandidateSize int             `mapstructure:"candidate_size"`
	CTRTimeout    int             `mapstructure:"ctr_timeout"`   // milliseconds
	CTRCacheTTL   int             `mapstructure:"ctr_cache_ttl"` // seconds
	Weights       WeightsConfig   `mapstructure:"weights"`
	Defaults      SignalDefaults  `mapstructure:"defaults"`
	Diversity     DiversityConfig `mapstructure:"diversity"`
}

// WeightsConfig holds the blend weights of the rerank formula.
type WeightsConfig struct {
	Text       float64 `mapstructure:"text"`
	CTR        float64 `mapstructure:"ctr"`
	Rating     float64 `mapstructure:"rating"`
	Popularity float64 `mapstructure:"popularity"`
	Recency    float64 `mapstructure:"recency"`
	Proximity  float64 `mapstructure:"proximity"`
}

// Sum returns the total of all weights.
func (w WeightsConfig) Sum() float64 {
	return w.Text + w.CTR + w.Rating + w.Popularity + w.Recency + w.Proximity
}

// SignalDefaults are the values substituted when a candidate signal is absent.
type SignalDefaults struct {
	CTR       float64 `mapstructure:"ctr"`
	Rating    float64 `mapstructure:"rating"`
	TextScore float64 `mapstructure:"text_score"`
	Proximity float64 `mapstructure:"proximity"`
	Recency   float64 `mapstructure:"recency"`
}

type DiversityConfig struct {
	MaxPerStore    int `mapstructure:"max_per_store"`
	MaxPerCategory int `mapstructure:"max_per_category"`
	MaxResults     int `mapstructure:"max_results"`
}

// CartConfig holds fuzzy matching and fan-out settings for cart assembly.
type CartConfig struct {
	MatchThreshold    float64 `mapstructure:"match_threshold"`
	CandidatesPerItem int     `mapstructure:"candidates_per_item"`
	MaxAlternatives   int     `mapstructure:"max_alternatives"`
	Concurrency       int     `mapstructure:"concurrency"`
	ItemTimeout       int     `mapstructure:"item_timeout"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ObservabilityConfig controls the OpenTelemetry exporters.
type ObservabilityConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}
