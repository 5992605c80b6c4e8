// Package retrieval answers queries against a built index: embed, search, cut off, and
// re-assemble chunks.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/manabu/internal/config"
	"github.com/hyperjump/manabu/internal/embedding"
	"github.com/hyperjump/manabu/internal/keyword"
	"github.com/hyperjump/manabu/internal/metrics"
	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/storage"
	"github.com/hyperjump/manabu/internal/vector"
	"go.uber.org/zap"
)

// maxSuggestions bounds the "did you mean" queries attached to empty results.
const maxSuggestions = 3

// Retriever runs queries against an index built by the same encoder. It holds no
// mutable state and is safe for concurrent use.
type Retriever struct {
	embedder embedding.Embedder
	index    vector.Index
	store    storage.ChunkStore
	speller  *keyword.SpellChecker
	chunks   map[int64]*models.Chunk
	topK     int
	maxTopK  int
	minScore float64
	logger   *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger for query failures.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// WithSpellChecker enables query suggestions for results with no relevant context.
func WithSpellChecker(sc *keyword.SpellChecker) Option {
	return func(r *Retriever) { r.speller = sc }
}

// WithChunks serves chunk payloads from the given build output instead of the store, so
// concurrent queries never wait on a database connection. The slice is indexed once and
// must not be modified afterwards.
func WithChunks(chunks []*models.Chunk) Option {
	return func(r *Retriever) {
		r.chunks = make(map[int64]*models.Chunk, len(chunks))
		for _, c := range chunks {
			r.chunks[c.ID] = c
		}
	}
}

// NewRetriever returns a Retriever over a built index. builtModel is the encoder model the
// index was built with; an embedder reporting a different model is rejected because its
// vectors would not be comparable.
func NewRetriever(
	embedder embedding.Embedder,
	index vector.Index,
	store storage.ChunkStore,
	cfg config.RetrievalConfig,
	builtModel string,
	opts ...Option,
) (*Retriever, error) {
	if embedder.Model() != builtModel {
		return nil, fmt.Errorf("encoder model %q does not match index model %q", embedder.Model(), builtModel)
	}
	if embedder.Dimensions() != index.Dimensions() {
		return nil, fmt.Errorf("encoder dimensions %d do not match index dimensions %d", embedder.Dimensions(), index.Dimensions())
	}
	r := &Retriever{
		embedder: embedder,
		index:    index,
		store:    store,
		topK:     cfg.TopK,
		maxTopK:  cfg.MaxTopK,
		minScore: cfg.MinScore,
		logger:   zap.NewNop(),
	}
	if r.topK <= 0 {
		r.topK = 5
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// TopK returns the default number of results.
func (r *Retriever) TopK() int { return r.topK }

// MinScore returns the similarity cutoff.
func (r *Retriever) MinScore() float64 { return r.minScore }

// Retrieve returns the default top-k chunks for query. See Search.
func (r *Retriever) Retrieve(ctx context.Context, query string) (*models.RetrievalResult, error) {
	return r.Search(ctx, &models.RetrieveRequest{Query: query})
}

// Search validates req, embeds the query, and returns up to req.TopK chunks scoring at
// least the cutoff, highest first. When nothing survives the cutoff it returns an empty
// result together with models.ErrNoRelevantContext.
func (r *Retriever) Search(ctx context.Context, req *models.RetrieveRequest) (*models.RetrievalResult, error) {
	start := time.Now()
	if err := req.Validate(r.topK, r.maxTopK); err != nil {
		metrics.RecordRetrieval(metrics.OutcomeInvalid, time.Since(start))
		return nil, err
	}

	queryVec, err := r.embedder.Embed(ctx, req.Query)
	if err != nil {
		var embErr *models.EmbeddingError
		if !errors.As(err, &embErr) {
			err = &models.EmbeddingError{Op: "query", Err: err}
		}
		r.fail(req.Query, start, err)
		return nil, err
	}

	hits, err := r.index.Search(ctx, queryVec, req.TopK)
	if err != nil {
		err = fmt.Errorf("vector search failed: %w", err)
		r.fail(req.Query, start, err)
		return nil, err
	}

	var kept []vector.Hit
	for _, h := range hits {
		if h.Score >= r.minScore {
			kept = append(kept, h)
		}
	}

	result := &models.RetrievalResult{Query: req.Query, Chunks: make([]*models.ScoredChunk, 0, len(kept))}
	if len(kept) == 0 {
		result.QueryTime = time.Since(start).Milliseconds()
		metrics.RecordRetrieval(metrics.OutcomeNoContext, time.Since(start))
		return result, models.ErrNoRelevantContext
	}

	ids := make([]int64, len(kept))
	for i, h := range kept {
		ids[i] = h.ID
	}
	chunks, err := r.loadChunks(ctx, ids)
	if err != nil {
		err = fmt.Errorf("load chunks: %w", err)
		r.fail(req.Query, start, err)
		return nil, err
	}
	for i, h := range kept {
		chunk, ok := chunks[h.ID]
		if !ok {
			err = fmt.Errorf("chunk %d missing from store", h.ID)
			r.fail(req.Query, start, err)
			return nil, err
		}
		result.Chunks = append(result.Chunks, &models.ScoredChunk{Chunk: chunk, Score: h.Score, Rank: i + 1})
	}
	result.QueryTime = time.Since(start).Milliseconds()
	metrics.RecordRetrieval(metrics.OutcomeHit, time.Since(start))
	r.logger.Debug("retrieval",
		zap.String("query", req.Query),
		zap.Int("hits", len(hits)),
		zap.Int("kept", len(result.Chunks)),
		zap.Int64("query_time_ms", result.QueryTime))
	return result, nil
}

func (r *Retriever) loadChunks(ctx context.Context, ids []int64) (map[int64]*models.Chunk, error) {
	if r.chunks == nil {
		return r.store.GetChunks(ctx, ids)
	}
	out := make(map[int64]*models.Chunk, len(ids))
	for _, id := range ids {
		if c, ok := r.chunks[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (r *Retriever) fail(query string, start time.Time, err error) {
	metrics.RecordRetrieval(metrics.OutcomeError, time.Since(start))
	r.logger.Warn("retrieval failed", zap.String("query", query), zap.Error(err))
}

// Suggest returns alternative spellings of query built from the corpus vocabulary, or nil
// when no spell checker is configured or every word is known.
func (r *Retriever) Suggest(query string) []string {
	if r.speller == nil {
		return nil
	}
	return r.speller.GetTopSuggestions(query, maxSuggestions)
}

// Respond runs req and shapes the outcome for callers. Finding nothing relevant is not an
// error here: the response carries the flag and any suggestions instead.
func (r *Retriever) Respond(ctx context.Context, req *models.RetrieveRequest) (*models.RetrieveResponse, error) {
	result, err := r.Search(ctx, req)
	if errors.Is(err, models.ErrNoRelevantContext) {
		return &models.RetrieveResponse{
			Query:             req.Query,
			Results:           []*models.ScoredChunk{},
			NoRelevantContext: true,
			Suggestions:       r.Suggest(req.Query),
			QueryTime:         result.QueryTime,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.RetrieveResponse{
		Query:     result.Query,
		Results:   result.Chunks,
		QueryTime: result.QueryTime,
	}, nil
}
