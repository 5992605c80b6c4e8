package embedding

import (
	"context"
	"testing"
)

func TestNewCachedEmbedder_InvalidCapacity(t *testing.T) {
	if _, err := NewCachedEmbedder(NewMockEmbedder(4), 0); err == nil {
		t.Error("expected error for zero capacity")
	}
}

func TestCachedEmbedder_Embed(t *testing.T) {
	ctx := context.Background()
	mock := NewMockEmbedder(8)
	ce, err := NewCachedEmbedder(mock, 2)
	if err != nil {
		t.Fatal(err)
	}

	first, err := ce.Embed(ctx, "vacation days")
	if err != nil {
		t.Fatal(err)
	}
	second, _ := ce.Embed(ctx, "vacation days")
	if mock.Calls() != 1 {
		t.Errorf("inner calls = %d, want 1", mock.Calls())
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("cached vector differs")
		}
	}

	// Touching "vacation days" after "sick leave" leaves "sick leave" as the eviction victim.
	_, _ = ce.Embed(ctx, "sick leave")
	_, _ = ce.Embed(ctx, "vacation days")
	_, _ = ce.Embed(ctx, "parking")
	if ce.Cached() != 2 {
		t.Errorf("Cached() = %d, want 2", ce.Cached())
	}
	calls := mock.Calls()
	_, _ = ce.Embed(ctx, "vacation days")
	if mock.Calls() != calls {
		t.Error("recently used entry was evicted")
	}
	_, _ = ce.Embed(ctx, "sick leave")
	if mock.Calls() != calls+1 {
		t.Error("least recently used entry should have been evicted")
	}
}

func TestCachedEmbedder_EmbedBatch(t *testing.T) {
	ctx := context.Background()
	mock := NewMockEmbedder(8)
	ce, err := NewCachedEmbedder(mock, 10)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ce.Embed(ctx, "vacation days"); err != nil {
		t.Fatal(err)
	}

	vecs, err := ce.EmbedBatch(ctx, []string{"vacation days", "sick leave", "sick leave"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 || mock.Calls() != 2 {
		t.Errorf("len=%d calls=%d, want 3 vectors from 2 encoder calls", len(vecs), mock.Calls())
	}
	direct, _ := mock.Embed(ctx, "sick leave")
	for i := range direct {
		if vecs[1][i] != direct[i] || vecs[2][i] != direct[i] {
			t.Fatal("batch result out of order")
		}
	}
	if ce.Dimensions() != 8 || ce.Model() != "mock" {
		t.Errorf("wrapped accessors: %d %s", ce.Dimensions(), ce.Model())
	}
}
