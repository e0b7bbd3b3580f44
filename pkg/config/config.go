// Package config handles audit configuration from YAML files and
// environment variables.
//
// Configuration loads in three layers: built-in defaults, an optional YAML
// file, then LINKAUDIT_-prefixed environment variables on top. A malformed
// value never aborts an audit; Validate resets it to the default and
// reports a warning.
//
// Environment Variables:
//   - LINKAUDIT_SITE="https://example.com"
//   - LINKAUDIT_EMBEDDING_PROVIDER="ollama", "openai" or "none"
//   - LINKAUDIT_EMBEDDING_MODEL="paraphrase-multilingual"
//   - LINKAUDIT_EMBEDDING_API_URL="http://localhost:11434"
//   - LINKAUDIT_EMBEDDING_API_KEY="sk-..."
//   - LINKAUDIT_CACHE_DIR="./.embedding_cache"
//
// For the complete list, see the Config struct field documentation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full audit configuration.
//
// Sections:
//   - Site: which site is audited and how its boundary is decided
//   - Classifier: mechanical link detection patterns
//   - Thresholds: tunable analysis constants
//   - Embedding: semantic model access and cache location
//   - Report: output rendering
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Report     ReportConfig     `yaml:"report"`
}

// SiteConfig identifies the audited site.
type SiteConfig struct {
	// BaseURL scopes internal links. Empty means auto-detect from the
	// first record's source URL.
	BaseURL string `yaml:"base_url"`
}

// ClassifierConfig overrides the built-in mechanical link patterns.
// Empty slices keep the defaults.
type ClassifierConfig struct {
	// AnchorPatterns are case-insensitive regexes matched against anchor
	// text. A match marks the link mechanical.
	AnchorPatterns []string `yaml:"anchor_patterns"`

	// SelectorTokens are substrings matched against the DOM path.
	SelectorTokens []string `yaml:"selector_tokens"`
}

// ThresholdsConfig holds the tunable analysis constants. The defaults come
// from field experience with French SEO audits, not from first principles;
// adjust them per site rather than trusting them blindly.
type ThresholdsConfig struct {
	// AnchorRepetition flags anchors used more often than this (default 5).
	AnchorRepetition int `yaml:"anchor_repetition"`

	// MinClusterSize is the smallest nameable theme (default 3).
	MinClusterSize int `yaml:"min_cluster_size"`

	// DiversityGate skips clustering when the unique-anchor ratio falls
	// below it (default 0.30).
	DiversityGate float64 `yaml:"diversity_gate"`

	// GapSimilarity is the content similarity above which two unlinked
	// pages become a linking opportunity (default 0.7).
	GapSimilarity float64 `yaml:"gap_similarity"`

	// StuffingWordLength and StuffingMaxRepeat tune keyword stuffing
	// detection (defaults 3 and 2).
	StuffingWordLength int `yaml:"stuffing_word_length"`
	StuffingMaxRepeat  int `yaml:"stuffing_max_repeat"`
}

// EmbeddingConfig configures semantic model access.
type EmbeddingConfig struct {
	// Provider is "ollama", "openai" or "none". "none" skips semantic
	// analysis entirely.
	Provider string `yaml:"provider"`

	APIURL     string        `yaml:"api_url"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`

	// RequestsPerSecond throttles model calls. 0 disables throttling.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// CacheDir is where computed embeddings persist across runs.
	CacheDir string `yaml:"cache_dir"`
}

// ReportConfig configures output rendering.
type ReportConfig struct {
	// OutputDir receives the HTML report and CSV exports.
	OutputDir string `yaml:"output_dir"`

	// TopPages and TopAnchors cap the ranked lists (defaults 10 and 20).
	TopPages   int `yaml:"top_pages"`
	TopAnchors int `yaml:"top_anchors"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Thresholds: ThresholdsConfig{
			AnchorRepetition:   5,
			MinClusterSize:     3,
			DiversityGate:      0.30,
			GapSimilarity:      0.7,
			StuffingWordLength: 3,
			StuffingMaxRepeat:  2,
		},
		Embedding: EmbeddingConfig{
			Provider:   "ollama",
			APIURL:     "http://localhost:11434",
			Model:      "paraphrase-multilingual",
			Dimensions: 768,
			Timeout:    30 * time.Second,
			CacheDir:   ".embedding_cache",
		},
		Report: ReportConfig{
			OutputDir:  "audit_output",
			TopPages:   10,
			TopAnchors: 20,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment overrides, in that order. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv layers LINKAUDIT_ environment variables over the current values.
func (c *Config) applyEnv() {
	c.Site.BaseURL = getEnv("LINKAUDIT_SITE", c.Site.BaseURL)

	c.Embedding.Provider = getEnv("LINKAUDIT_EMBEDDING_PROVIDER", c.Embedding.Provider)
	c.Embedding.APIURL = getEnv("LINKAUDIT_EMBEDDING_API_URL", c.Embedding.APIURL)
	c.Embedding.APIKey = getEnv("LINKAUDIT_EMBEDDING_API_KEY", c.Embedding.APIKey)
	c.Embedding.Model = getEnv("LINKAUDIT_EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.Dimensions = getEnvInt("LINKAUDIT_EMBEDDING_DIMENSIONS", c.Embedding.Dimensions)
	c.Embedding.RequestsPerSecond = getEnvFloat("LINKAUDIT_EMBEDDING_RPS", c.Embedding.RequestsPerSecond)
	c.Embedding.CacheDir = getEnv("LINKAUDIT_CACHE_DIR", c.Embedding.CacheDir)

	c.Thresholds.AnchorRepetition = getEnvInt("LINKAUDIT_ANCHOR_REPETITION", c.Thresholds.AnchorRepetition)
	c.Thresholds.MinClusterSize = getEnvInt("LINKAUDIT_MIN_CLUSTER_SIZE", c.Thresholds.MinClusterSize)
	c.Thresholds.DiversityGate = getEnvFloat("LINKAUDIT_DIVERSITY_GATE", c.Thresholds.DiversityGate)
	c.Thresholds.GapSimilarity = getEnvFloat("LINKAUDIT_GAP_SIMILARITY", c.Thresholds.GapSimilarity)

	c.Report.OutputDir = getEnv("LINKAUDIT_OUTPUT_DIR", c.Report.OutputDir)
}

// Validate resets out-of-range values to their defaults and returns one
// warning per reset. Warnings are advisory; the returned config is always
// usable.
func (c *Config) Validate() []string {
	var warnings []string
	def := Default()

	if c.Thresholds.AnchorRepetition <= 0 {
		warnings = append(warnings, fmt.Sprintf("anchor_repetition %d out of range, using %d",
			c.Thresholds.AnchorRepetition, def.Thresholds.AnchorRepetition))
		c.Thresholds.AnchorRepetition = def.Thresholds.AnchorRepetition
	}
	if c.Thresholds.MinClusterSize < 2 {
		warnings = append(warnings, fmt.Sprintf("min_cluster_size %d out of range, using %d",
			c.Thresholds.MinClusterSize, def.Thresholds.MinClusterSize))
		c.Thresholds.MinClusterSize = def.Thresholds.MinClusterSize
	}
	if c.Thresholds.DiversityGate <= 0 || c.Thresholds.DiversityGate > 1 {
		warnings = append(warnings, fmt.Sprintf("diversity_gate %.2f out of range, using %.2f",
			c.Thresholds.DiversityGate, def.Thresholds.DiversityGate))
		c.Thresholds.DiversityGate = def.Thresholds.DiversityGate
	}
	if c.Thresholds.GapSimilarity <= 0 || c.Thresholds.GapSimilarity >= 1 {
		warnings = append(warnings, fmt.Sprintf("gap_similarity %.2f out of range, using %.2f",
			c.Thresholds.GapSimilarity, def.Thresholds.GapSimilarity))
		c.Thresholds.GapSimilarity = def.Thresholds.GapSimilarity
	}
	if c.Embedding.Timeout <= 0 {
		c.Embedding.Timeout = def.Embedding.Timeout
	}

	switch c.Embedding.Provider {
	case "ollama", "openai", "none", "":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown embedding provider %q, semantic analysis disabled",
			c.Embedding.Provider))
		c.Embedding.Provider = "none"
	}

	return warnings
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// String returns a loggable summary without secrets.
func (c *Config) String() string {
	provider := c.Embedding.Provider
	if provider == "" {
		provider = "none"
	}
	site := c.Site.BaseURL
	if site == "" {
		site = "(auto-detect)"
	}
	return fmt.Sprintf("Config{site: %s, embedding: %s/%s, cache: %s}",
		site, provider, c.Embedding.Model, c.Embedding.CacheDir)
}
