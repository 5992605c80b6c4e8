package embedding

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync/atomic"
)

// MockEmbedder returns pseudo-random unit vectors seeded by the text, so equal texts get
// equal vectors and different texts are nearly orthogonal. Set Err to make every call fail.
type MockEmbedder struct {
	Err error

	dims  int
	calls atomic.Int64
}

// NewMockEmbedder returns a MockEmbedder of the given size, 384 if dims is not positive.
func NewMockEmbedder(dims int) *MockEmbedder {
	if dims <= 0 {
		dims = 384
	}
	return &MockEmbedder{dims: dims}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	vec := make([]float32, m.dims)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}
	NormalizeL2(vec)
	return vec, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, m.Embed)
}

// Calls counts texts embedded so far, including failed calls.
func (m *MockEmbedder) Calls() int { return int(m.calls.Load()) }

func (m *MockEmbedder) Dimensions() int { return m.dims }
func (m *MockEmbedder) Model() string   { return "mock" }
func (m *MockEmbedder) Close() error    { return nil }
