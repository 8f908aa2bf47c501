package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "NEWSFORGE_CONFIG"
	dataDirEnv        = "NEWSFORGE_DATA_DIR"
	ollamaEndpointEnv = "OLLAMA_ENDPOINT"
	ollamaModelEnv    = "OLLAMA_MODEL"
	microblogTokenEnv = "MICROBLOG_BEARER_TOKEN"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	DataDir  string         `yaml:"dataDir"`
	Collect  CollectConfig  `yaml:"collect"`
	Process  ProcessConfig  `yaml:"process"`
	Insights InsightsConfig `yaml:"insights"`
	Generate GenerateConfig `yaml:"generate"`
	Ollama   OllamaConfig   `yaml:"ollama"`
	Ledger   LedgerConfig   `yaml:"ledger"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// CollectConfig defines the configured source collaborators.
type CollectConfig struct {
	Concurrency int            `yaml:"concurrency"`
	Sources     []SourceConfig `yaml:"sources"`
}

// SourceConfig describes a single source with its collector kind.
type SourceConfig struct {
	Name    string            `yaml:"name"`
	Kind    string            `yaml:"kind"`
	Options map[string]string `yaml:"options"`
}

// ProcessConfig tunes consolidation, deduplication, and filtering.
type ProcessConfig struct {
	MinTextWords        int      `yaml:"minTextWords"`
	SimilarityThreshold float64  `yaml:"similarityThreshold"`
	Categories          []string `yaml:"categories"`
	StopTerms           []string `yaml:"stopTerms"`
	MaxKeywords         int      `yaml:"maxKeywords"`
	MaxKeyFacts         int      `yaml:"maxKeyFacts"`
	// EngagementPercentile drops records below this engagement percentile
	// of the dataset; zero disables the filter.
	EngagementPercentile float64 `yaml:"engagementPercentile"`
}

// InsightsConfig tunes aggregate metrics and visualization output.
type InsightsConfig struct {
	TopKeywords        int  `yaml:"topKeywords"`
	TrendIntervalHours int  `yaml:"trendIntervalHours"`
	Charts             bool `yaml:"charts"`
}

// TrendInterval resolves the configured bucket width.
func (c InsightsConfig) TrendInterval() time.Duration {
	return time.Duration(c.TrendIntervalHours) * time.Hour
}

// GenerateConfig enforces the article output contract.
type GenerateConfig struct {
	MinWords      int     `yaml:"minWords"`
	MaxParagraphs int     `yaml:"maxParagraphs"`
	MaxArticles   int     `yaml:"maxArticles"`
	Retries       int     `yaml:"retries"`
	Concurrency   int     `yaml:"concurrency"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"maxTokens"`
}

// OllamaConfig defines how to contact the model backend.
type OllamaConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	MaxAttempts    int    `yaml:"maxAttempts"`
}

// LedgerConfig locates the generation ledger database.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// MicroblogToken resolves the bearer token for the microblog API.
func MicroblogToken() string {
	return os.Getenv(microblogTokenEnv)
}

// Load reads .env, then YAML configuration (if present), and applies
// environment overrides on top of defaults.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dataDirEnv); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(ollamaEndpointEnv); v != "" {
		c.Ollama.Endpoint = v
	}
	if v := os.Getenv(ollamaModelEnv); v != "" {
		c.Ollama.Model = v
	}
}

func (c *Config) applyDefaults() {
	def := defaultConfig()

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.Collect.Concurrency <= 0 {
		c.Collect.Concurrency = def.Collect.Concurrency
	}
	if len(c.Collect.Sources) == 0 {
		c.Collect.Sources = def.Collect.Sources
	}
	if c.Process.MinTextWords <= 0 {
		c.Process.MinTextWords = def.Process.MinTextWords
	}
	if c.Process.SimilarityThreshold <= 0 {
		c.Process.SimilarityThreshold = def.Process.SimilarityThreshold
	}
	if c.Process.MaxKeywords <= 0 {
		c.Process.MaxKeywords = def.Process.MaxKeywords
	}
	if c.Process.MaxKeyFacts <= 0 {
		c.Process.MaxKeyFacts = def.Process.MaxKeyFacts
	}
	if c.Insights.TopKeywords <= 0 {
		c.Insights.TopKeywords = def.Insights.TopKeywords
	}
	if c.Insights.TrendIntervalHours <= 0 {
		c.Insights.TrendIntervalHours = def.Insights.TrendIntervalHours
	}
	if c.Generate.MinWords <= 0 {
		c.Generate.MinWords = def.Generate.MinWords
	}
	if c.Generate.MaxParagraphs <= 0 {
		c.Generate.MaxParagraphs = def.Generate.MaxParagraphs
	}
	if c.Generate.MaxArticles <= 0 {
		c.Generate.MaxArticles = def.Generate.MaxArticles
	}
	if c.Generate.Retries <= 0 {
		c.Generate.Retries = def.Generate.Retries
	}
	if c.Generate.Concurrency <= 0 {
		c.Generate.Concurrency = def.Generate.Concurrency
	}
	if c.Generate.Temperature <= 0 {
		c.Generate.Temperature = def.Generate.Temperature
	}
	if c.Generate.MaxTokens <= 0 {
		c.Generate.MaxTokens = def.Generate.MaxTokens
	}
	if c.Ollama.Endpoint == "" {
		c.Ollama.Endpoint = def.Ollama.Endpoint
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = def.Ollama.Model
	}
	if c.Ollama.TimeoutSeconds <= 0 {
		c.Ollama.TimeoutSeconds = def.Ollama.TimeoutSeconds
	}
	if c.Ollama.MaxAttempts <= 0 {
		c.Ollama.MaxAttempts = def.Ollama.MaxAttempts
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = filepath.Join(c.DataDir, "newsforge.db")
	}
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		DataDir: "data",
		Collect: CollectConfig{
			Concurrency: 3,
			Sources: []SourceConfig{
				{
					Name: "g1",
					Kind: "portal",
					Options: map[string]string{
						"baseUrl":     "https://g1.globo.com",
						"categories":  "politica,economia,entretenimento",
						"maxArticles": "10",
					},
				},
				{
					Name: "twitter",
					Kind: "microblog",
					Options: map[string]string{
						"endpoint":   "https://api.twitter.com/1.1/search/tweets.json",
						"terms":      "política,entretenimento,notícias",
						"maxResults": "50",
					},
				},
				{
					Name: "instagram",
					Kind: "photo-feed",
					Options: map[string]string{
						"endpoint": "https://feed.example.org/api/posts",
						"profiles": "g1,bbcbrasil,cnnbrasil",
						"maxPosts": "20",
					},
				},
			},
		},
		Process: ProcessConfig{
			MinTextWords:        30,
			SimilarityThreshold: 0.8,
			MaxKeywords:         8,
			MaxKeyFacts:         10,
		},
		Insights: InsightsConfig{
			TopKeywords:        10,
			TrendIntervalHours: 24,
			Charts:             true,
		},
		Generate: GenerateConfig{
			MinWords:      500,
			MaxParagraphs: 5,
			MaxArticles:   10,
			Retries:       3,
			Concurrency:   2,
			Temperature:   0.7,
			MaxTokens:     2000,
		},
		Ollama: OllamaConfig{
			Endpoint:       "http://localhost:11434",
			Model:          "gemma",
			TimeoutSeconds: 60,
			MaxAttempts:    3,
		},
	}
}
