//go:build faiss && cgo

package vector

import (
	"context"
	"testing"
)

func TestFAISSIndex_BuildSearch(t *testing.T) {
	idx, err := NewFAISSIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	err = idx.Build([]Entry{
		{ID: 20, Vector: []float32{1, 0, 0}},
		{ID: 21, Vector: []float32{0.9, 0.1, 0}},
		{ID: 22, Vector: []float32{0, 1, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d, want 3", idx.Size())
	}

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 || hits[0].ID != 20 {
		t.Errorf("hits = %v", hits)
	}
}

func TestFAISSIndex_TiesKeepInsertionOrder(t *testing.T) {
	idx, err := NewFAISSIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	_ = idx.Build([]Entry{
		{ID: 9, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{1, 0}},
		{ID: 5, Vector: []float32{1, 0}},
	})
	hits, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []int64{9, 2, 5} {
		if hits[i].ID != want {
			t.Fatalf("hits = %v", hits)
		}
	}
}

func TestFAISSIndex_BuildEmpty(t *testing.T) {
	idx, err := NewFAISSIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if err := idx.Build(nil); err == nil {
		t.Error("expected error for empty build")
	}
}
