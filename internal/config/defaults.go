package config

import "time"

// Provider names shared by the embedding and generation sections.
const (
	ProviderHashing     = "hashing"
	ProviderONNX        = "onnx"
	ProviderOpenAI      = "openai"
	ProviderGemini      = "gemini"
	GeneratorExtractive = "extractive"
)

// MemoryDatabase keeps the chunk store in RAM for the lifetime of the process.
const MemoryDatabase = ":memory:"

// DefaultMinScore is the similarity cutoff used when none is configured.
const DefaultMinScore = 0.3

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.RateLimit.RequestsPerSecond > 0 && cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = int(cfg.Server.RateLimit.RequestsPerSecond) + 1
	}
	if cfg.Corpus.Directory == "" {
		cfg.Corpus.Directory = "./documents"
	}
	if cfg.Corpus.Extensions == nil {
		cfg.Corpus.Extensions = []string{".docx", ".xlsx", ".ods", ".odt", ".rtf", ".pdf", ".pptx", ".odp", ".txt", ".md"}
	}
	if cfg.Corpus.Workers == 0 {
		cfg.Corpus.Workers = 4
	}
	if cfg.Corpus.LabelField == "" {
		cfg.Corpus.LabelField = "Question"
	}
	if cfg.Corpus.SkipPrefixes == nil {
		cfg.Corpus.SkipPrefixes = []string{"~$", "."}
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderHashing
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case ProviderOpenAI:
			cfg.Embedding.Model = "text-embedding-3-small"
		case ProviderGemini:
			cfg.Embedding.Model = "text-embedding-004"
		case ProviderONNX:
			cfg.Embedding.Model = "sentence-transformers/all-MiniLM-L6-v2"
		default:
			cfg.Embedding.Model = "hashing-en"
		}
	}
	if cfg.Embedding.ModelPath == "" && cfg.Embedding.Provider == ProviderONNX {
		cfg.Embedding.ModelPath = "./models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.OutputName == "" && cfg.Embedding.Provider == ProviderONNX {
		cfg.Embedding.OutputName = "last_hidden_state"
	}
	if cfg.Embedding.Dimensions == 0 {
		switch cfg.Embedding.Provider {
		case ProviderOpenAI:
			cfg.Embedding.Dimensions = 1536
		case ProviderGemini:
			cfg.Embedding.Dimensions = 768
		case ProviderONNX:
			cfg.Embedding.Dimensions = 384
		default:
			cfg.Embedding.Dimensions = 1024
		}
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.APIKeyEnv == "" {
		switch cfg.Embedding.Provider {
		case ProviderOpenAI:
			cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
		case ProviderGemini:
			cfg.Embedding.APIKeyEnv = "GEMINI_API_KEY"
		}
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 100
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MaxTopK == 0 {
		cfg.Retrieval.MaxTopK = 20
	}
	if cfg.Retrieval.MinScore == 0 {
		cfg.Retrieval.MinScore = DefaultMinScore
	}
	if cfg.Retrieval.IndexType == "" {
		cfg.Retrieval.IndexType = "memory"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = MemoryDatabase
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = GeneratorExtractive
	}
	if cfg.Generation.Model == "" {
		switch cfg.Generation.Provider {
		case ProviderOpenAI:
			cfg.Generation.Model = "gpt-4o-mini"
		case ProviderGemini:
			cfg.Generation.Model = "gemini-2.0-flash"
		}
	}
	if cfg.Generation.APIKeyEnv == "" {
		switch cfg.Generation.Provider {
		case ProviderOpenAI:
			cfg.Generation.APIKeyEnv = "OPENAI_API_KEY"
		case ProviderGemini:
			cfg.Generation.APIKeyEnv = "GEMINI_API_KEY"
		}
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 2048
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 60 * time.Second
	}
}
