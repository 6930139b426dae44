package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" mapstructure:"embeddings"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	RAG        RAGConfig        `yaml:"rag" mapstructure:"rag"`
	Comparison ComparisonConfig `yaml:"comparison" mapstructure:"comparison"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Companies  CompaniesConfig  `yaml:"companies" mapstructure:"companies"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the vector store backend.
type StoreConfig struct {
	// Driver selects the vector store implementation: "postgres" (pgvector)
	// or "sqlite" (local, in-process cosine search).
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// Path is the SQLite database file (sqlite driver only).
	Path string `yaml:"path" mapstructure:"path"`
	// Dimension is the embedding dimension enforced on upsert.
	Dimension int `yaml:"dimension" mapstructure:"dimension"`
}

// EmbeddingsConfig holds Jina embeddings API settings.
type EmbeddingsConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
	// Dimension is the vector size produced by the model.
	Dimension int `yaml:"dimension" mapstructure:"dimension"`
	// RatePerSec throttles embedding API calls.
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// AnthropicConfig holds Anthropic API settings for the generation provider.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// RAGConfig configures the retrieval-and-scoring engine.
type RAGConfig struct {
	// TopK is the number of candidates requested per namespace.
	TopK int `yaml:"top_k" mapstructure:"top_k"`
	// SimilarityThreshold is the hard prefilter gate; candidates below it
	// are dropped before any scoring work.
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	// UseModelScoring enables selective model refinement of scores.
	UseModelScoring bool `yaml:"use_model_scoring" mapstructure:"use_model_scoring"`
	// MaxModelScoredResults caps refinement calls, separately for the
	// primary set and globally across all benchmark namespaces.
	MaxModelScoredResults int `yaml:"max_model_scored_results" mapstructure:"max_model_scored_results"`
	// ModelScoreFloor is the minimum similarity for a candidate to be
	// promoted to model refinement (higher bar than the prefilter).
	ModelScoreFloor float64 `yaml:"model_score_floor" mapstructure:"model_score_floor"`
	// MinGroundedness and MinRelevance are the quality filter thresholds.
	MinGroundedness int `yaml:"min_groundedness" mapstructure:"min_groundedness"`
	MinRelevance    int `yaml:"min_relevance" mapstructure:"min_relevance"`
}

// ComparisonConfig configures the comparator.
type ComparisonConfig struct {
	// MaxComparisons caps items per benchmark namespace; the global cap is
	// MaxComparisons times the namespace count.
	MaxComparisons int `yaml:"max_comparisons" mapstructure:"max_comparisons"`
	// SkipLowScores skips candidates below MinRelevance without consuming
	// comparison budget.
	SkipLowScores bool `yaml:"skip_low_scores" mapstructure:"skip_low_scores"`
	MinRelevance  int  `yaml:"min_relevance" mapstructure:"min_relevance"`
	// ModelNarratives enables model-generated narratives for critical
	// comparisons (relevance >= CriticalRelevance), up to MaxModelNarratives.
	ModelNarratives    bool `yaml:"model_narratives" mapstructure:"model_narratives"`
	CriticalRelevance  int  `yaml:"critical_relevance" mapstructure:"critical_relevance"`
	MaxModelNarratives int  `yaml:"max_model_narratives" mapstructure:"max_model_narratives"`
}

// ExtractionConfig configures the extraction freshness gate and chunking.
type ExtractionConfig struct {
	// ForceRefresh gates staleness-based re-extraction. When false,
	// extraction never runs unless explicitly forced.
	ForceRefresh bool `yaml:"force_refresh" mapstructure:"force_refresh"`
	// IntervalDays is the re-extraction interval.
	IntervalDays int `yaml:"interval_days" mapstructure:"interval_days"`
	// RecordsPath is the SQLite file tracking last-extraction timestamps.
	RecordsPath string `yaml:"records_path" mapstructure:"records_path"`
	// ChunkSize and ChunkOverlap are in runes.
	ChunkSize    int `yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	// MaxSourceMB caps the text ingested from a single source.
	MaxSourceMB float64 `yaml:"max_source_mb" mapstructure:"max_source_mb"`
}

// CompaniesConfig locates the company registry file.
type CompaniesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ScrapeConfig configures the scraper chain.
type ScrapeConfig struct {
	JinaKey       string `yaml:"jina_key" mapstructure:"jina_key"`
	JinaBaseURL   string `yaml:"jina_base_url" mapstructure:"jina_base_url"`
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the assessment API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GAPSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "gapscan.db")
	v.SetDefault("store.dimension", 768)
	v.SetDefault("embeddings.base_url", "https://api.jina.ai/v1")
	v.SetDefault("embeddings.model", "jina-embeddings-v3")
	v.SetDefault("embeddings.dimension", 768)
	v.SetDefault("embeddings.rate_per_sec", 5)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("anthropic.temperature", 0.7)
	v.SetDefault("rag.top_k", 5)
	v.SetDefault("rag.similarity_threshold", 0.7)
	v.SetDefault("rag.use_model_scoring", true)
	v.SetDefault("rag.max_model_scored_results", 5)
	v.SetDefault("rag.model_score_floor", 0.6)
	v.SetDefault("rag.min_groundedness", 3)
	v.SetDefault("rag.min_relevance", 3)
	v.SetDefault("comparison.max_comparisons", 5)
	v.SetDefault("comparison.skip_low_scores", true)
	v.SetDefault("comparison.min_relevance", 3)
	v.SetDefault("comparison.model_narratives", false)
	v.SetDefault("comparison.critical_relevance", 5)
	v.SetDefault("comparison.max_model_narratives", 3)
	v.SetDefault("extraction.force_refresh", false)
	v.SetDefault("extraction.interval_days", 14)
	v.SetDefault("extraction.records_path", "extraction_records.db")
	v.SetDefault("extraction.chunk_size", 1000)
	v.SetDefault("extraction.chunk_overlap", 200)
	v.SetDefault("extraction.max_source_mb", 20.0)
	v.SetDefault("companies.path", "companies.yaml")
	v.SetDefault("scrape.jina_base_url", "https://r.jina.ai")
	v.SetDefault("scrape.max_concurrent", 5)
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fails fast on configuration that would otherwise surface as a
// confusing error on first use.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url required for postgres driver")
		}
	case "sqlite":
		if c.Store.Path == "" {
			return eris.New("config: store.path required for sqlite driver")
		}
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	if c.Store.Dimension <= 0 || c.Embeddings.Dimension <= 0 {
		return eris.New("config: embedding dimension must be positive")
	}
	if c.Store.Dimension != c.Embeddings.Dimension {
		return eris.Errorf("config: store dimension %d != embeddings dimension %d",
			c.Store.Dimension, c.Embeddings.Dimension)
	}

	if c.RAG.SimilarityThreshold < 0 || c.RAG.SimilarityThreshold > 1 {
		return eris.Errorf("config: rag.similarity_threshold %f out of [0,1]", c.RAG.SimilarityThreshold)
	}
	if c.RAG.TopK <= 0 {
		return eris.New("config: rag.top_k must be positive")
	}
	if c.Comparison.MaxComparisons <= 0 {
		return eris.New("config: comparison.max_comparisons must be positive")
	}

	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
