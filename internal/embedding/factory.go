package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/config"
)

// New creates the encoder selected by cfg.Provider. When cfg.CacheSize is positive the
// encoder is wrapped in a CachedEmbedder so repeated queries skip the model.
func New(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case config.ProviderHashing, "":
		e, err = NewHashingEmbedder(cfg.Dimensions)
	case config.ProviderONNX:
		e, err = NewONNXEmbedder(ONNXOptions{
			ModelPath:  cfg.ModelPath,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
			OutputName: cfg.OutputName,
		})
	case config.ProviderOpenAI:
		e, err = NewOpenAIEmbedder(OpenAIOptions{
			APIKey:     config.APIKey(cfg.APIKeyEnv),
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    cfg.Timeout,
		})
	case config.ProviderGemini:
		e, err = NewGeminiEmbedder(ctx, GeminiOptions{
			APIKey:     config.APIKey(cfg.APIKeyEnv),
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s embedder: %w", cfg.Provider, err)
	}
	logger.Info("embedder ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", e.Model()),
		zap.Int("dimensions", e.Dimensions()))
	if cfg.CacheSize <= 0 {
		return e, nil
	}
	cached, err := NewCachedEmbedder(e, cfg.CacheSize)
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	return cached, nil
}
