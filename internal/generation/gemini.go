package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/hyperjump/manabu/internal/metrics"
	"github.com/hyperjump/manabu/internal/models"
)

// GeminiGenerator answers with a Gemini model.
type GeminiGenerator struct {
	client    *genai.Client
	model     string
	maxTokens int32
	timeout   time.Duration
}

// GeminiOptions configures NewGeminiGenerator.
type GeminiOptions struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// NewGeminiGenerator creates a Gemini API client for opts.Model.
func NewGeminiGenerator(ctx context.Context, opts GeminiOptions) (*GeminiGenerator, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini generator: API key is not set")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: opts.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{
		client:    c,
		model:     opts.Model,
		maxTokens: int32(opts.MaxTokens),
		timeout:   opts.Timeout,
	}, nil
}

// Name returns "gemini".
func (g *GeminiGenerator) Name() string { return "gemini" }

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, query string, result *models.RetrievalResult) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SystemPrompt}}},
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = g.maxTokens
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(UserPrompt(query, result)), cfg)
	metrics.CaptureDependencyLatency("gemini_generate", time.Since(start))
	if err != nil {
		return "", &models.GenerationError{Provider: g.Name(), Err: err}
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &models.GenerationError{Provider: g.Name(), Err: errors.New("empty response")}
	}
	return text, nil
}
