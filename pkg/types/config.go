package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "journal-engine/0.1").
	UserAgent string `mapstructure:"user_agent"`
}

// CrossrefConfig holds settings for the harvest stage.
type CrossrefConfig struct {
	HTTPConfig `mapstructure:",squash"`

	// Mailto is the polite-pool contact email appended to the User-Agent.
	Mailto string `mapstructure:"mailto"`

	// Rows is the page size requested from the works endpoint (max 1000).
	Rows int `mapstructure:"rows"`

	// PageDelay is the pause between consecutive page fetches.
	PageDelay time.Duration `mapstructure:"page_delay"`

	// MaxRetries is the retry budget per page fetch (default 5).
	MaxRetries int `mapstructure:"max_retries"`
}

// SemanticScholarConfig holds settings for the enrichment stage.
type SemanticScholarConfig struct {
	HTTPConfig `mapstructure:",squash"`

	// APIKey is an optional key for higher rate limits.
	APIKey string `mapstructure:"api_key"`

	// RequestsPerSecond throttles abstract lookups (default 1).
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// MaxRetries is the retry budget per lookup (default 3).
	MaxRetries int `mapstructure:"max_retries"`
}

// EmbeddingConfig holds settings for the embedding provider.
type EmbeddingConfig struct {
	// Provider selects the embedding backend: ollama or openai.
	Provider string `mapstructure:"provider"`

	// Model is the embedding model identifier.
	Model string `mapstructure:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `mapstructure:"base_url"`

	// APIKey authenticates openai-compatible providers.
	APIKey string `mapstructure:"api_key"`

	// Dimensions is the expected vector width (default 384).
	Dimensions int `mapstructure:"dimensions"`

	// Timeout is the per-call timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// IndexConfig holds settings for the vector index.
type IndexConfig struct {
	// Dir is the vector collection directory (default "chroma_db").
	Dir string `mapstructure:"dir"`

	// Collection is the collection name inside Dir.
	Collection string `mapstructure:"collection"`

	// Workers bounds concurrent embedding calls during a build (default 4).
	Workers int `mapstructure:"workers"`
}

// ServerConfig holds settings for the HTTP service.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `mapstructure:"addr"`

	// Mode is the router mode: debug, release, or test.
	Mode string `mapstructure:"mode"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum level emitted: debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Format selects text or json output.
	Format string `mapstructure:"format"`
}

// Config groups all stage configurations for the pipeline.
type Config struct {
	// RecordsDir is the directory holding per-journal dataset files.
	RecordsDir string `mapstructure:"records_dir"`

	Crossref        CrossrefConfig        `mapstructure:"crossref"`
	SemanticScholar SemanticScholarConfig `mapstructure:"semantic_scholar"`
	Embedding       EmbeddingConfig       `mapstructure:"embedding"`
	Index           IndexConfig           `mapstructure:"index"`
	Server          ServerConfig          `mapstructure:"server"`
	Log             LogConfig             `mapstructure:"log"`
}
