package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/manabu/internal/models"
)

func newTestStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleChunks() []*models.Chunk {
	return []*models.Chunk{
		{ID: 0, Text: "Vacation Policy\n\nFifteen days.", SourceFile: "handbook.docx", SectionLabel: "Vacation Policy", Kind: models.ChunkSection},
		{ID: 1, Text: "Sick Leave\n\nDoctor's note.", SourceFile: "handbook.docx", SectionLabel: "Sick Leave", Kind: models.ChunkSection},
		{ID: 2, Text: "Question: Parking?\nAnswer: Free.", SourceFile: "faq.xlsx", SectionLabel: "Parking?", Kind: models.ChunkRow,
			Metadata: map[string]string{"question": "Parking?", "answer": "Free."}},
	}
}

func TestSQLiteStore_ChunksAndSources(t *testing.T) {
	for _, path := range []string{MemoryPath, filepath.Join(t.TempDir(), "sub", "chunks.db")} {
		t.Run(path, func(t *testing.T) {
			store := newTestStore(t, path)
			ctx := context.Background()

			sources := []*models.SourceDocument{
				{Name: "handbook.docx", Path: "/corpus/handbook.docx", Format: "docx", SizeBytes: 2048},
				{Name: "faq.xlsx", Path: "/corpus/faq.xlsx", Format: "xlsx", SizeBytes: 1024},
			}
			if err := store.InsertSources(ctx, sources); err != nil {
				t.Fatal(err)
			}
			if err := store.InsertChunks(ctx, sampleChunks()); err != nil {
				t.Fatal(err)
			}

			n, err := store.CountChunks(ctx)
			if err != nil || n != 3 {
				t.Fatalf("CountChunks = %d, %v", n, err)
			}

			got, err := store.GetChunks(ctx, []int64{2, 0, 99})
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 2 {
				t.Fatalf("expected 2 chunks, got %d", len(got))
			}
			if got[0].SectionLabel != "Vacation Policy" || got[0].Kind != models.ChunkSection || got[0].Metadata != nil {
				t.Errorf("chunk 0 = %+v", got[0])
			}
			if !got[2].IsFAQ() || got[2].Metadata["answer"] != "Free." {
				t.Errorf("chunk 2 = %+v", got[2])
			}

			list, err := store.ListSources(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 2 || list[0].Name != "faq.xlsx" || list[0].Chunks != 1 || list[1].Chunks != 2 {
				t.Errorf("sources = %+v, %+v", list[0], list[1])
			}

			if err := store.Reset(ctx); err != nil {
				t.Fatal(err)
			}
			if n, _ := store.CountChunks(ctx); n != 0 {
				t.Errorf("after Reset: %d chunks", n)
			}
			if list, _ := store.ListSources(ctx); len(list) != 0 {
				t.Errorf("after Reset: %d sources", len(list))
			}
		})
	}
}

func TestSQLiteStore_DuplicateChunkID(t *testing.T) {
	store := newTestStore(t, MemoryPath)
	ctx := context.Background()
	chunks := sampleChunks()
	chunks[1].ID = chunks[0].ID
	if err := store.InsertChunks(ctx, chunks); err == nil {
		t.Fatal("expected primary key violation")
	}
	if n, _ := store.CountChunks(ctx); n != 0 {
		t.Errorf("failed transaction left %d chunks", n)
	}
}

func TestSQLiteStore_GetChunksEmpty(t *testing.T) {
	store := newTestStore(t, MemoryPath)
	got, err := store.GetChunks(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Errorf("GetChunks(nil) = %v, %v", got, err)
	}
}
