package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// HashingModel is the model identity reported by HashingEmbedder.
const HashingModel = "hashing-en"

// bigramWeight scales adjacent-term features relative to single terms.
const bigramWeight = 0.5

// HashingEmbedder is an offline encoder: text is run through bleve's English analyzer
// (tokenize, lowercase, stop words, stemming) and the resulting terms and adjacent-term
// pairs are hashed into a signed, fixed-size vector with sublinear term frequency weights.
// Vectors are L2-normalized, so inner product is cosine similarity over shared vocabulary.
type HashingEmbedder struct {
	dimensions int
	analyze    func([]byte) analysis.TokenStream
}

// NewHashingEmbedder returns a HashingEmbedder producing vectors of the given size.
func NewHashingEmbedder(dimensions int) (*HashingEmbedder, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	analyzer := mapping.NewIndexMapping().AnalyzerNamed(en.AnalyzerName)
	if analyzer == nil {
		return nil, fmt.Errorf("bleve analyzer %q not registered", en.AnalyzerName)
	}
	return &HashingEmbedder{dimensions: dimensions, analyze: analyzer.Analyze}, nil
}

// Embed returns the hashed feature vector for text. Text without indexable terms yields
// the zero vector.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	counts := make(map[string]float64)
	var prev string
	for _, tok := range e.analyze([]byte(text)) {
		term := string(tok.Term)
		if term == "" {
			continue
		}
		counts[term]++
		if prev != "" {
			counts[prev+" "+term] += bigramWeight
		}
		prev = term
	}

	vec := make([]float32, e.dimensions)
	for feature, tf := range counts {
		h := fnv.New64a()
		_, _ = h.Write([]byte(feature))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dimensions))
		weight := tf
		if tf >= 1 {
			weight = 1 + math.Log(tf)
		}
		if sum>>63 == 1 {
			weight = -weight
		}
		vec[idx] += float32(weight)
	}
	NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *HashingEmbedder) Dimensions() int {
	return e.dimensions
}

// Model returns HashingModel.
func (e *HashingEmbedder) Model() string {
	return HashingModel
}

// Close is a no-op.
func (e *HashingEmbedder) Close() error {
	return nil
}
