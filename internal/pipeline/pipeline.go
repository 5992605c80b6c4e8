// Package pipeline owns the process lifecycle: one build, then serving queries.
package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/config"
	"github.com/hyperjump/manabu/internal/embedding"
	"github.com/hyperjump/manabu/internal/extract"
	"github.com/hyperjump/manabu/internal/indexer"
	"github.com/hyperjump/manabu/internal/keyword"
	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/retrieval"
	"github.com/hyperjump/manabu/internal/storage"
	"github.com/hyperjump/manabu/internal/vector"
)

// Phase is the lifecycle stage of a Pipeline.
type Phase string

const (
	PhaseBuilding Phase = "building"
	PhaseServing  Phase = "serving"
	PhaseFailed   Phase = "failed"
)

// Deps are the components a Pipeline wires together. Extractor may be nil.
type Deps struct {
	Extractor *extract.Extractor
	Embedder  embedding.Embedder
	Index     vector.Index
	Store     storage.ChunkStore
	Corpus    config.CorpusConfig
	Retrieval config.RetrievalConfig
	Logger    *zap.Logger
}

// Pipeline builds the index once and hands out the Retriever afterwards. The zero phase
// is building; the transition to serving or failed happens once and is final.
type Pipeline struct {
	deps   Deps
	logger *zap.Logger

	once  sync.Once
	ready chan struct{}

	mu        sync.RWMutex
	phase     Phase
	report    *indexer.BuildReport
	retriever *retrieval.Retriever
	err       error
}

// New returns a Pipeline in the building phase.
func New(deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		deps:   deps,
		logger: logger,
		ready:  make(chan struct{}),
		phase:  PhaseBuilding,
	}
}

// Build runs the build phase. Only the first call does work; later calls return the first
// outcome.
func (p *Pipeline) Build(ctx context.Context) (*indexer.BuildReport, error) {
	p.once.Do(func() {
		report, r, err := p.build(ctx)
		p.mu.Lock()
		p.report, p.retriever, p.err = report, r, err
		if err != nil {
			p.phase = PhaseFailed
		} else {
			p.phase = PhaseServing
		}
		p.mu.Unlock()
		close(p.ready)
		if err != nil {
			p.logger.Error("build failed", zap.Error(err))
		}
	})
	<-p.ready
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.report, p.err
}

func (p *Pipeline) build(ctx context.Context) (*indexer.BuildReport, *retrieval.Retriever, error) {
	idx := indexer.NewIndexer(p.deps.Extractor, p.deps.Embedder, p.deps.Index, p.deps.Store, p.deps.Corpus,
		indexer.WithLogger(p.logger))
	report, err := idx.Build(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts := []retrieval.Option{retrieval.WithLogger(p.logger), retrieval.WithChunks(report.ChunkList)}
	texts := make([]string, len(report.ChunkList))
	for i, c := range report.ChunkList {
		texts[i] = c.Text
	}
	if lex, err := keyword.NewLexicon(texts); err != nil {
		p.logger.Warn("query suggestions disabled", zap.Error(err))
	} else if sc, err := keyword.NewSpellChecker(lex); err != nil {
		p.logger.Warn("query suggestions disabled", zap.Error(err))
	} else {
		opts = append(opts, retrieval.WithSpellChecker(sc))
		p.logger.Debug("lexicon built", zap.Int("terms", lex.Len()))
	}

	r, err := retrieval.NewRetriever(p.deps.Embedder, p.deps.Index, p.deps.Store, p.deps.Retrieval, report.Model, opts...)
	if err != nil {
		return nil, nil, &models.BuildError{Reason: "create retriever", Err: err}
	}
	return report, r, nil
}

// Wait blocks until the build finishes or ctx is done, then returns the Retriever or the
// build error.
func (p *Pipeline) Wait(ctx context.Context) (*retrieval.Retriever, error) {
	select {
	case <-p.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return p.Retriever()
}

// Retriever returns the Retriever without blocking. It returns models.ErrNotReady while
// the build is running and the build error if it failed.
func (p *Pipeline) Retriever() (*retrieval.Retriever, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch p.phase {
	case PhaseServing:
		return p.retriever, nil
	case PhaseFailed:
		return nil, p.err
	default:
		return nil, models.ErrNotReady
	}
}

// Phase returns the current lifecycle phase.
func (p *Pipeline) Phase() Phase {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.phase
}

// Report returns the build report, or nil before a successful build.
func (p *Pipeline) Report() *indexer.BuildReport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.report
}

// Err returns the build error, if the build failed.
func (p *Pipeline) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// Index returns the vector index.
func (p *Pipeline) Index() vector.Index { return p.deps.Index }

// Store returns the chunk store.
func (p *Pipeline) Store() storage.ChunkStore { return p.deps.Store }
