// Package config provides configuration loading and structs for the manabu server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Storage    StorageConfig    `yaml:"storage"`
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string          `yaml:"host"`
	Port           int             `yaml:"port"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is the per-client token bucket. RequestsPerSecond <= 0 disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// CorpusConfig describes the document directory read at build time.
type CorpusConfig struct {
	Directory  string   `yaml:"directory"`
	Extensions []string `yaml:"extensions"`
	Workers    int      `yaml:"workers"`
	// LabelField is the spreadsheet header used as the section label of a row chunk.
	LabelField string `yaml:"label_field"`
	// SkipPrefixes lists file name prefixes that are ignored (Office lock files, hidden files).
	SkipPrefixes []string `yaml:"skip_prefixes"`
}

// EmbeddingConfig holds encoder settings.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	ModelPath  string        `yaml:"model_path"`
	OutputName string        `yaml:"output_name"`
	Dimensions int           `yaml:"dimensions"`
	MaxTokens  int           `yaml:"max_tokens"`
	CacheSize  int           `yaml:"cache_size"`
	BaseURL    string        `yaml:"base_url"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	Timeout    time.Duration `yaml:"timeout"`
	BatchSize  int           `yaml:"batch_size"`
}

// RetrievalConfig holds query-time settings.
type RetrievalConfig struct {
	TopK      int     `yaml:"top_k"`
	MaxTopK   int     `yaml:"max_top_k"`
	MinScore  float64 `yaml:"min_score"`
	IndexType string  `yaml:"index_type"`
}

// StorageConfig holds the chunk store location. ":memory:" keeps it in RAM.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// GenerationConfig holds answer generation settings.
type GenerationConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Load reads and parses the config file at path, applies defaults, expands paths, and validates.
// Returns an error if the file cannot be read or parsed, or holds invalid values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Corpus.Directory = expandPath(cfg.Corpus.Directory, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Storage.DatabasePath != MemoryDatabase {
		cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that defaults cannot repair.
func Validate(cfg *Config) error {
	switch cfg.Embedding.Provider {
	case ProviderHashing, ProviderONNX, ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("invalid config: unknown embedding provider %q", cfg.Embedding.Provider)
	}
	switch cfg.Generation.Provider {
	case GeneratorExtractive, ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("invalid config: unknown generation provider %q", cfg.Generation.Provider)
	}
	if cfg.Retrieval.TopK <= 0 {
		return fmt.Errorf("invalid config: retrieval.top_k must be positive")
	}
	if cfg.Retrieval.MaxTopK < cfg.Retrieval.TopK {
		return fmt.Errorf("invalid config: retrieval.max_top_k (%d) is below top_k (%d)", cfg.Retrieval.MaxTopK, cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MinScore < -1 || cfg.Retrieval.MinScore > 1 {
		return fmt.Errorf("invalid config: retrieval.min_score must be within [-1, 1]")
	}
	if cfg.Embedding.Dimensions <= 0 {
		return fmt.Errorf("invalid config: embedding.dimensions must be positive")
	}
	return nil
}

// APIKey returns the value of the environment variable named by env, or "".
func APIKey(env string) string {
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

// Address returns host:port for the HTTP listener.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
