//go:build faiss && cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"unsafe"

	"github.com/hyperjump/manabu/internal/models"
)

const faissCompiled = true

// FAISSIndex is a vector index backed by a FAISS IndexFlatIP (inner product), which equals
// cosine similarity for normalized vectors. FAISS labels are insertion positions; ids maps
// them back to chunk ids.
type FAISSIndex struct {
	index      *C.FaissIndexFlatIP
	dimensions int
	ids        []int64
	built      bool
	mu         sync.RWMutex
}

// NewFAISSIndex creates an empty FAISS index with the given dimension.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	var index *C.FaissIndexFlatIP
	ret := C.faiss_IndexFlatIP_new_with(&index, C.idx_t(dimensions))
	if ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}
	return &FAISSIndex{index: index, dimensions: dimensions}, nil
}

// faissLastError returns the last FAISS error message.
func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Build adds all entries in one call. It can be called once.
func (f *FAISSIndex) Build(entries []Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.built {
		return &models.BuildError{Reason: "index already built"}
	}
	if err := validateEntries(entries, f.dimensions); err != nil {
		return err
	}

	// FAISS takes one contiguous row-major array.
	n := len(entries)
	flat := make([]float32, n*f.dimensions)
	ids := make([]int64, n)
	for i, e := range entries {
		copy(flat[i*f.dimensions:(i+1)*f.dimensions], e.Vector)
		ids[i] = e.ID
	}
	ret := C.faiss_Index_add(f.index, C.idx_t(n), (*C.float)(unsafe.Pointer(&flat[0])))
	if ret != 0 {
		return &models.BuildError{Reason: "faiss add", Err: fmt.Errorf("%s", faissLastError())}
	}
	f.ids = ids
	f.built = true
	return nil
}

// Search returns the top-k entries by inner product. FAISS does not guarantee an order
// among equal scores, so results are re-sorted with insertion position as the tie-breaker.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.built {
		return nil, ErrNotBuilt
	}
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	if k > len(f.ids) {
		k = len(f.ids)
	}

	distances := make([]float32, k)
	labels := make([]int64, k)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	type ranked struct {
		pos   int64
		score float64
	}
	found := make([]ranked, 0, k)
	for i := 0; i < k; i++ {
		if labels[i] < 0 || labels[i] >= int64(len(f.ids)) {
			continue
		}
		found = append(found, ranked{pos: labels[i], score: float64(distances[i])})
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].score != found[j].score {
			return found[i].score > found[j].score
		}
		return found[i].pos < found[j].pos
	})
	hits := make([]Hit, len(found))
	for i, r := range found {
		hits[i] = Hit{ID: f.ids[r.pos], Score: r.score}
	}
	return hits, nil
}

// Size returns the number of indexed vectors.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Dimensions returns the vector dimension the index accepts.
func (f *FAISSIndex) Dimensions() int {
	return f.dimensions
}

// Close frees the FAISS index resources.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
