package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hyperjump/manabu/internal/metrics"
	"github.com/hyperjump/manabu/internal/models"
)

// OpenAIGenerator answers with an OpenAI chat model (or a compatible server).
type OpenAIGenerator struct {
	client    openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// OpenAIOptions configures NewOpenAIGenerator.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
}

// NewOpenAIGenerator returns a generator for opts.Model. The API key is required.
func NewOpenAIGenerator(opts OpenAIOptions) (*OpenAIGenerator, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai generator: API key is not set")
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey), option.WithMaxRetries(opts.MaxRetries)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &OpenAIGenerator{
		client:    openai.NewClient(reqOpts...),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		timeout:   opts.Timeout,
	}, nil
}

// Name returns "openai".
func (g *OpenAIGenerator) Name() string { return "openai" }

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, query string, result *models.RetrievalResult) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(UserPrompt(query, result)),
		},
		Model: openai.ChatModel(g.model),
	}
	if g.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(g.maxTokens))
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	metrics.CaptureDependencyLatency("openai_chat", time.Since(start))
	if err != nil {
		return "", &models.GenerationError{Provider: g.Name(), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &models.GenerationError{Provider: g.Name(), Err: errors.New("response has no choices")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
