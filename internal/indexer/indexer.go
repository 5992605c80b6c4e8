package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/manabu/internal/config"
	"github.com/hyperjump/manabu/internal/embedding"
	"github.com/hyperjump/manabu/internal/extract"
	"github.com/hyperjump/manabu/internal/metrics"
	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/storage"
	"github.com/hyperjump/manabu/internal/vector"
	"go.uber.org/zap"
)

// Indexer runs the build phase: discover, parse, chunk, embed, index and store.
type Indexer struct {
	extractor *extract.Extractor
	embedder  embedding.Embedder
	index     vector.Index
	store     storage.ChunkStore
	chunker   *Chunker
	config    config.CorpusConfig
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger for build progress and skipped files.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer. A nil extractor uses extract.NewExtractor().
func NewIndexer(
	extractor *extract.Extractor,
	embedder embedding.Embedder,
	index vector.Index,
	store storage.ChunkStore,
	cfg config.CorpusConfig,
	opts ...IndexerOption,
) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		store:     store,
		chunker:   NewChunker(cfg.LabelField),
		config:    cfg,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// SkippedFile is a corpus file that failed to parse and contributed no chunks.
type SkippedFile struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// BuildReport summarizes a completed build.
type BuildReport struct {
	// Files counts the files that parsed; skipped files are listed in Skipped only.
	Files      int                      `json:"files"`
	Chunks     int                      `json:"chunks"`
	Skipped    []SkippedFile            `json:"skipped"`
	Duration   time.Duration            `json:"duration"`
	Sources    []*models.SourceDocument `json:"sources"`
	Model      string                   `json:"model"`
	Dimensions int                      `json:"dimensions"`
	// ChunkList holds every chunk in id order.
	ChunkList []*models.Chunk `json:"-"`
}

type corpusFile struct {
	path string
	name string
	size int64
}

type fileResult struct {
	chunks []*models.Chunk
	err    error
}

// Build reads the corpus directory once and builds the vector index and chunk store.
// Files that fail to parse are skipped and reported. A build with no chunks, an
// encoder failure or an index failure returns *models.BuildError.
func (idx *Indexer) Build(ctx context.Context) (*BuildReport, error) {
	start := time.Now()
	files, err := idx.discover()
	if err != nil {
		return nil, &models.BuildError{Reason: "read corpus directory", Err: err}
	}
	idx.logger.Info("build started",
		zap.String("directory", idx.config.Directory),
		zap.Int("files", len(files)))

	results := idx.parseAll(ctx, files)
	if err := ctx.Err(); err != nil {
		return nil, &models.BuildError{Reason: "cancelled", Err: err}
	}

	report := &BuildReport{
		Model:      idx.embedder.Model(),
		Dimensions: idx.embedder.Dimensions(),
	}
	var chunks []*models.Chunk
	for i, f := range files {
		res := results[i]
		if res.err != nil {
			idx.logger.Warn("skipping unparseable file", zap.String("path", f.name), zap.Error(res.err))
			report.Skipped = append(report.Skipped, SkippedFile{Path: f.name, Error: res.err.Error()})
			continue
		}
		report.Sources = append(report.Sources, &models.SourceDocument{
			Name:      f.name,
			Path:      f.path,
			Format:    strings.TrimPrefix(strings.ToLower(filepath.Ext(f.name)), "."),
			Chunks:    len(res.chunks),
			SizeBytes: f.size,
		})
		for _, c := range res.chunks {
			c.ID = int64(len(chunks))
			chunks = append(chunks, c)
		}
	}
	report.Files = len(report.Sources)
	if len(chunks) == 0 {
		return nil, &models.BuildError{Reason: "no chunks produced"}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		var embErr *models.EmbeddingError
		if !errors.As(err, &embErr) {
			err = &models.EmbeddingError{Op: "build", Err: err}
		}
		return nil, &models.BuildError{Reason: "embed chunks", Err: err}
	}
	if len(vectors) != len(chunks) {
		return nil, &models.BuildError{Reason: fmt.Sprintf("encoder returned %d vectors for %d chunks", len(vectors), len(chunks))}
	}

	entries := make([]vector.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vector.Entry{ID: c.ID, Vector: vectors[i]}
	}
	if err := idx.index.Build(entries); err != nil {
		var buildErr *models.BuildError
		if errors.As(err, &buildErr) {
			return nil, err
		}
		return nil, &models.BuildError{Reason: "build vector index", Err: err}
	}

	if err := idx.store.Reset(ctx); err != nil {
		return nil, &models.BuildError{Reason: "reset chunk store", Err: err}
	}
	if err := idx.store.InsertSources(ctx, report.Sources); err != nil {
		return nil, &models.BuildError{Reason: "store sources", Err: err}
	}
	if err := idx.store.InsertChunks(ctx, chunks); err != nil {
		return nil, &models.BuildError{Reason: "store chunks", Err: err}
	}

	report.Chunks = len(chunks)
	report.ChunkList = chunks
	report.Duration = time.Since(start)
	metrics.RecordBuild(report.Duration, report.Chunks, len(report.Skipped))
	idx.logger.Info("build finished",
		zap.Int("files", report.Files),
		zap.Int("chunks", report.Chunks),
		zap.Int("skipped", len(report.Skipped)),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// parseAll extracts and chunks files on a bounded worker pool. Results are indexed by
// file position so the merged order does not depend on scheduling.
func (idx *Indexer) parseAll(ctx context.Context, files []corpusFile) []fileResult {
	results := make([]fileResult, len(files))
	workers := idx.config.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(files) {
		workers = len(files)
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = idx.parseFile(files[i])
			}
		}()
	}
feed:
	for i := range files {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

func (idx *Indexer) parseFile(f corpusFile) fileResult {
	blocks, err := idx.extractor.Extract(f.path)
	if err != nil {
		return fileResult{err: err}
	}
	chunks := idx.chunker.Chunk(blocks, f.name)
	idx.logger.Debug("file parsed",
		zap.String("path", f.name),
		zap.Int("blocks", len(blocks)),
		zap.Int("chunks", len(chunks)))
	return fileResult{chunks: chunks}
}

// discover walks the corpus directory and returns the supported files sorted by their
// slash-separated path relative to the directory.
func (idx *Indexer) discover() ([]corpusFile, error) {
	root, err := filepath.Abs(idx.config.Directory)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}
	var files []corpusFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}
		if idx.skipName(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !extract.Supports(ext) || !extensionAllowed(ext, idx.config.Extensions) {
			return nil
		}
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		files = append(files, corpusFile{path: path, name: filepath.ToSlash(rel), size: finfo.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

func (idx *Indexer) skipName(name string) bool {
	for _, p := range idx.config.SkipPrefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// extensionAllowed reports whether ext is in allowed. An empty list allows everything.
func extensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
