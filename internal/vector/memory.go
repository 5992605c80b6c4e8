package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hyperjump/manabu/internal/models"
)

// MemoryIndex is an in-memory index using brute-force inner product search.
// Suitable for the small corpora this service targets, and used when FAISS is not available.
type MemoryIndex struct {
	dimensions int
	mu         sync.Mutex // serializes Build
	frozen     atomic.Pointer[memorySnapshot]
}

type memorySnapshot struct {
	ids     []int64
	vectors [][]float32
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Dimensions returns the vector dimension the index accepts.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Build copies entries into the index. It fails with *models.BuildError on zero entries,
// a dimension mismatch, a duplicate id, or when the index was already built.
func (m *MemoryIndex) Build(entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen.Load() != nil {
		return &models.BuildError{Reason: "index already built"}
	}
	if err := validateEntries(entries, m.dimensions); err != nil {
		return err
	}
	snap := &memorySnapshot{
		ids:     make([]int64, len(entries)),
		vectors: make([][]float32, len(entries)),
	}
	for i, e := range entries {
		vec := make([]float32, m.dimensions)
		copy(vec, e.Vector)
		snap.ids[i] = e.ID
		snap.vectors[i] = vec
	}
	m.frozen.Store(snap)
	return nil
}

// Search returns the top-k entries by inner product, highest first. Equal scores keep
// insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	snap := m.frozen.Load()
	if snap == nil {
		return nil, ErrNotBuilt
	}
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits := make([]Hit, len(snap.ids))
	for i, vec := range snap.vectors {
		hits[i] = Hit{ID: snap.ids[i], Score: InnerProduct(query, vec)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k:k], nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	if snap := m.frozen.Load(); snap != nil {
		return len(snap.ids)
	}
	return 0
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
