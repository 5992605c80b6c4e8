package generation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/config"
)

// New creates the generator selected by cfg.Provider.
func New(ctx context.Context, cfg config.GenerationConfig, logger *zap.Logger) (Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		g   Generator
		err error
	)
	switch cfg.Provider {
	case config.GeneratorExtractive, "":
		g = ExtractiveGenerator{}
	case config.ProviderOpenAI:
		g, err = NewOpenAIGenerator(OpenAIOptions{
			APIKey:     config.APIKey(cfg.APIKeyEnv),
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			MaxTokens:  cfg.MaxTokens,
			Timeout:    cfg.Timeout,
			MaxRetries: 2,
		})
	case config.ProviderGemini:
		g, err = NewGeminiGenerator(ctx, GeminiOptions{
			APIKey:    config.APIKey(cfg.APIKeyEnv),
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s generator: %w", cfg.Provider, err)
	}
	logger.Info("generator ready", zap.String("provider", g.Name()), zap.String("model", cfg.Model))
	return g, nil
}
