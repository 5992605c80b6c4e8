// Package vector provides build-once vector indexes and similarity search.
package vector

import (
	"context"
	"errors"
)

// Entry pairs a chunk id with its embedding.
type Entry struct {
	ID     int64
	Vector []float32
}

// Hit is a single search result.
type Hit struct {
	ID    int64
	Score float64 // inner product; cosine similarity for normalized vectors
}

// Index is built once from the full entry set and is read-only afterwards. Search is safe
// for concurrent use after Build returns.
type Index interface {
	Build(entries []Entry) error
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// ErrNotBuilt is returned by Search before Build has succeeded.
var ErrNotBuilt = errors.New("vector index not built")
