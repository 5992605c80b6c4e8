// Package storage holds the chunk table that backs retrieval results and citations.
package storage

import (
	"context"

	"github.com/hyperjump/manabu/internal/models"
)

// ChunkStore persists the chunks and source files of one build. Contents are replaced
// wholesale on every build; nothing is carried across process restarts.
type ChunkStore interface {
	// Reset removes all chunks and sources.
	Reset(ctx context.Context) error
	InsertSources(ctx context.Context, sources []*models.SourceDocument) error
	InsertChunks(ctx context.Context, chunks []*models.Chunk) error
	// GetChunks returns the chunks with the given ids keyed by id. Unknown ids are absent.
	GetChunks(ctx context.Context, ids []int64) (map[int64]*models.Chunk, error)
	// ListSources returns the source files in name order with their chunk counts.
	ListSources(ctx context.Context) ([]*models.SourceDocument, error)
	CountChunks(ctx context.Context) (int64, error)
	Close() error
}
