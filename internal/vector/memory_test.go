package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/manabu/internal/models"
)

func builtIndex(t *testing.T, entries []Entry) *MemoryIndex {
	t.Helper()
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Build(entries); err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestMemoryIndex_BuildSearch(t *testing.T) {
	idx := builtIndex(t, []Entry{
		{ID: 10, Vector: []float32{1, 0, 0}},
		{ID: 11, Vector: []float32{0.9, 0.1, 0}},
		{ID: 12, Vector: []float32{0, 1, 0}},
	})
	defer idx.Close()
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 results, got %d", len(hits))
	}
	if hits[0].ID != 10 || hits[1].ID != 11 {
		t.Errorf("order = %d, %d", hits[0].ID, hits[1].ID)
	}
	if hits[0].Score < hits[1].Score {
		t.Error("scores not descending")
	}
}

func TestMemoryIndex_TiesKeepInsertionOrder(t *testing.T) {
	idx := builtIndex(t, []Entry{
		{ID: 7, Vector: []float32{0, 1, 0}},
		{ID: 3, Vector: []float32{1, 0, 0}},
		{ID: 5, Vector: []float32{1, 0, 0}},
		{ID: 1, Vector: []float32{1, 0, 0}},
	})
	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{3, 5, 1, 7}
	for i, h := range hits {
		if h.ID != want[i] {
			t.Fatalf("hit %d = %d, want %d (hits %v)", i, h.ID, want[i], hits)
		}
	}
}

func TestMemoryIndex_KLargerThanSize(t *testing.T) {
	idx := builtIndex(t, []Entry{{ID: 1, Vector: []float32{1, 0, 0}}, {ID: 2, Vector: []float32{0, 1, 0}}})
	hits, err := idx.Search(context.Background(), []float32{0, 0, 1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("expected all 2 entries, got %d", len(hits))
	}
	none, err := idx.Search(context.Background(), []float32{0, 0, 1}, 0)
	if err != nil || len(none) != 0 {
		t.Errorf("k=0: %v, %v", none, err)
	}
}

func TestMemoryIndex_BuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{"empty", nil},
		{"dimension mismatch", []Entry{{ID: 1, Vector: []float32{1, 0, 0}}, {ID: 2, Vector: []float32{1, 0}}}},
		{"duplicate id", []Entry{{ID: 1, Vector: []float32{1, 0, 0}}, {ID: 1, Vector: []float32{0, 1, 0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, _ := NewMemoryIndex(3)
			err := idx.Build(tt.entries)
			var bErr *models.BuildError
			if !errors.As(err, &bErr) {
				t.Fatalf("expected BuildError, got %v", err)
			}
			if idx.Size() != 0 {
				t.Errorf("failed build left %d entries", idx.Size())
			}
		})
	}
}

func TestMemoryIndex_BuildOnce(t *testing.T) {
	idx := builtIndex(t, []Entry{{ID: 1, Vector: []float32{1, 0, 0}}})
	var bErr *models.BuildError
	if err := idx.Build([]Entry{{ID: 2, Vector: []float32{0, 1, 0}}}); !errors.As(err, &bErr) {
		t.Fatalf("second Build: %v", err)
	}
	if idx.Size() != 1 {
		t.Errorf("Size=%d after rejected rebuild", idx.Size())
	}
}

func TestMemoryIndex_BuildCopiesVectors(t *testing.T) {
	vec := []float32{1, 0, 0}
	idx := builtIndex(t, []Entry{{ID: 1, Vector: vec}})
	vec[0] = -1
	hits, _ := idx.Search(context.Background(), []float32{1, 0, 0}, 1)
	if hits[0].Score != 1 {
		t.Errorf("score = %v; index shares caller memory", hits[0].Score)
	}
}

func TestMemoryIndex_SearchErrors(t *testing.T) {
	idx, _ := NewMemoryIndex(3)
	if _, err := idx.Search(context.Background(), []float32{1, 0, 0}, 1); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("search before build: %v", err)
	}
	_ = idx.Build([]Entry{{ID: 1, Vector: []float32{1, 0, 0}}})
	if _, err := idx.Search(context.Background(), []float32{1, 0}, 1); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestInnerProduct(t *testing.T) {
	if got := InnerProduct([]float32{1, 2}, []float32{3, 4}); got != 11 {
		t.Errorf("InnerProduct = %v", got)
	}
	if got := InnerProduct([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("mismatched lengths = %v", got)
	}
	if got := L2Norm([]float32{3, 4}); got != 5 {
		t.Errorf("L2Norm = %v", got)
	}
}
