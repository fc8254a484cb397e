package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Engine    EngineConfig    `mapstructure:"engine"`
}

// DatabaseConfig stores the embedded libsql connection details.
type DatabaseConfig struct {
	Path string `mapstructure:"path"` // path to the .db file
}

// CatalogConfig stores catalog seeding and embedding-cache settings.
type CatalogConfig struct {
	DataFile string `mapstructure:"data_file"` // JSON seed file for the movie table
	CacheDir string `mapstructure:"cache_dir"` // directory for embedding cache files
}

// EmbeddingConfig stores the remote embedding provider settings.
type EmbeddingConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LLMConfig stores the text-completion provider settings. Endpoints are
// tried in order; the first successful response wins.
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Endpoints   []string      `mapstructure:"endpoints"`
	Model       string        `mapstructure:"model"`
	PlanModel   string        `mapstructure:"plan_model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// EngineConfig stores the recommendation engine tunables.
type EngineConfig struct {
	// Result sizing
	K            int `mapstructure:"k"`             // final recommendation count
	RetrievalK   int `mapstructure:"retrieval_k"`   // candidates fetched per query
	HistoryLimit int `mapstructure:"history_limit"` // max messages kept per conversation

	// Preference bounds
	PreferenceCap    int `mapstructure:"preference_cap"`    // max genres/moods retained
	RuntimeTolerance int `mapstructure:"runtime_tolerance"` // minutes of runtime slack

	// Query composition
	ShortenThreshold int `mapstructure:"shorten_threshold"` // utterance length before LLM shortening
	PriorGenreWindow int `mapstructure:"prior_genre_window"` // prior genres consulted for pivots

	// Tool dispatch
	ToolConcurrency int           `mapstructure:"tool_concurrency"` // max parallel tool calls
	ToolTimeout     time.Duration `mapstructure:"tool_timeout"`     // per-tool deadline

	// Embedding memoization
	CacheEnabled  bool `mapstructure:"cache_enabled"`
	CacheCapacity int  `mapstructure:"cache_capacity"`
	CacheTTL      int  `mapstructure:"cache_ttl_seconds"`

	// Provider rate limiting
	RateLimitEnabled    bool          `mapstructure:"rate_limit_enabled"`
	RateLimitCapacity   int           `mapstructure:"rate_limit_capacity"`
	RateLimitRefillRate time.Duration `mapstructure:"rate_limit_refill_rate"`

	// Telemetry
	EnableTracing bool `mapstructure:"enable_tracing"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("..")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("database.path", "data/cinefind.db")

	viper.SetDefault("catalog.data_file", "data/movies.json")
	viper.SetDefault("catalog.cache_dir", "data/embeddings")

	// Embedding defaults (Ollama-compatible endpoint)
	viper.SetDefault("embedding.base_url", "http://localhost:11434")
	viper.SetDefault("embedding.model", "nomic-embed-text")
	viper.SetDefault("embedding.timeout", "5m")

	// Completion defaults
	viper.SetDefault("llm.base_url", "http://localhost:11434")
	viper.SetDefault("llm.endpoints", []string{"api/generate", "generate"})
	viper.SetDefault("llm.model", "llama3.1")
	viper.SetDefault("llm.plan_model", "llama3.1")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.timeout", "5m")

	// Engine defaults
	viper.SetDefault("engine.k", 5)
	viper.SetDefault("engine.retrieval_k", 10)
	viper.SetDefault("engine.history_limit", 50)
	viper.SetDefault("engine.preference_cap", 8)
	viper.SetDefault("engine.runtime_tolerance", 30)
	viper.SetDefault("engine.shorten_threshold", 60)
	viper.SetDefault("engine.prior_genre_window", 3)
	viper.SetDefault("engine.tool_concurrency", 4)
	viper.SetDefault("engine.tool_timeout", "2m")
	viper.SetDefault("engine.cache_enabled", true)
	viper.SetDefault("engine.cache_capacity", 1000)
	viper.SetDefault("engine.cache_ttl_seconds", 3600)
	viper.SetDefault("engine.rate_limit_enabled", false)
	viper.SetDefault("engine.rate_limit_capacity", 10)
	viper.SetDefault("engine.rate_limit_refill_rate", "1s")
	viper.SetDefault("engine.enable_tracing", true)

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults apply.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}

// Default returns the engine tunables used when no config file is loaded.
// Tests construct components against this directly.
func Default() *EngineConfig {
	return &EngineConfig{
		K:                5,
		RetrievalK:       10,
		HistoryLimit:     50,
		PreferenceCap:    8,
		RuntimeTolerance: 30,
		ShortenThreshold: 60,
		PriorGenreWindow: 3,
		ToolConcurrency:  4,
		ToolTimeout:      2 * time.Minute,
		CacheEnabled:     true,
		CacheCapacity:    1000,
		CacheTTL:         3600,
	}
}
