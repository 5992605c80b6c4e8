package vector

import (
	"errors"
	"fmt"
)

// IndexType names an Index implementation in config (retrieval.index_type).
type IndexType string

const (
	// IndexTypeMemory is exact brute-force search; the default.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS is a FAISS IndexFlatIP; only present in binaries built with -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// ErrFAISSUnavailable is returned when a FAISS index is requested from a binary built
// without FAISS support.
var ErrFAISSUnavailable = errors.New("FAISS not available: build with -tags=faiss and install libfaiss_c")

// NewIndex creates an empty index of the named type. The empty string selects memory.
func NewIndex(indexType string, dimensions int) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		idx, err := NewMemoryIndex(dimensions)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case IndexTypeFAISS:
		idx, err := NewFAISSIndex(dimensions)
		if err != nil {
			return nil, err
		}
		return idx, nil
	}
	return nil, fmt.Errorf("unknown index type %q (want %q or %q)", indexType, IndexTypeMemory, IndexTypeFAISS)
}

// NewIndexOrMemory is NewIndex, except that a FAISS request in a build without FAISS yields
// a MemoryIndex. fellBack reports the substitution so callers can log it.
func NewIndexOrMemory(indexType string, dimensions int) (idx Index, fellBack bool, err error) {
	idx, err = NewIndex(indexType, dimensions)
	if errors.Is(err, ErrFAISSUnavailable) {
		mem, memErr := NewMemoryIndex(dimensions)
		if memErr != nil {
			return nil, false, memErr
		}
		return mem, true, nil
	}
	return idx, false, err
}

// IsFAISSAvailable reports whether this binary was built with FAISS support.
func IsFAISSAvailable() bool {
	return faissCompiled
}
