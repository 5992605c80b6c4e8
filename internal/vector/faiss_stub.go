//go:build !faiss || !cgo

package vector

import "context"

const faissCompiled = false

// FAISSIndex is a placeholder in builds without FAISS; it cannot be constructed.
type FAISSIndex struct{}

// NewFAISSIndex always fails with ErrFAISSUnavailable.
func NewFAISSIndex(int) (*FAISSIndex, error) {
	return nil, ErrFAISSUnavailable
}

func (*FAISSIndex) Build([]Entry) error { return ErrFAISSUnavailable }

func (*FAISSIndex) Search(context.Context, []float32, int) ([]Hit, error) {
	return nil, ErrFAISSUnavailable
}

func (*FAISSIndex) Size() int       { return 0 }
func (*FAISSIndex) Dimensions() int { return 0 }
func (*FAISSIndex) Close() error    { return nil }
func (*FAISSIndex) Type() string    { return string(IndexTypeFAISS) }
