package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/hyperjump/manabu/internal/metrics"
)

// GeminiEmbedder calls the Gemini API embedContent method.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int32
	batchSize  int
	timeout    time.Duration
}

// GeminiOptions configures NewGeminiEmbedder.
type GeminiOptions struct {
	APIKey     string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
}

// NewGeminiEmbedder creates a Gemini API client for opts.Model.
func NewGeminiEmbedder(ctx context.Context, opts GeminiOptions) (*GeminiEmbedder, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini embedder: API key is not set")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: opts.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &GeminiEmbedder{
		client:     c,
		model:      opts.Model,
		dimensions: int32(opts.Dimensions),
		batchSize:  opts.BatchSize,
		timeout:    opts.Timeout,
	}, nil
}

// Embed embeds a single text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends texts in requests of at most batchSize contents.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vecs, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *GeminiEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: text}}}
	}
	cfg := &genai.EmbedContentConfig{}
	if e.dimensions > 0 {
		cfg.OutputDimensionality = &e.dimensions
	}

	start := time.Now()
	res, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	metrics.CaptureDependencyLatency("gemini_embeddings", time.Since(start))
	if err != nil {
		status := 0
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.Code
		}
		return nil, wrapError("gemini", err, status)
	}
	if res == nil || len(res.Embeddings) != len(texts) {
		got := 0
		if res != nil {
			got = len(res.Embeddings)
		}
		return nil, wrapError("gemini", fmt.Errorf("got %d embeddings for %d inputs", got, len(texts)), 0)
	}

	out := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		vec := make([]float32, len(emb.Values))
		copy(vec, emb.Values)
		NormalizeL2(vec)
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the requested output dimensionality.
func (e *GeminiEmbedder) Dimensions() int {
	return int(e.dimensions)
}

// Model returns the embedding model name.
func (e *GeminiEmbedder) Model() string {
	return e.model
}

// Close is a no-op; genai clients hold no resources that need releasing.
func (e *GeminiEmbedder) Close() error {
	return nil
}
