package vector

import "math"

// InnerProduct is the similarity used by every index; for L2-normalized inputs it equals
// cosine similarity. Mismatched or empty vectors score 0.
func InnerProduct(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var sum float64
	for i, x := range a {
		sum += float64(x) * float64(b[i])
	}
	return sum
}

// L2Norm returns the Euclidean length of x.
func L2Norm(x []float32) float64 {
	return math.Sqrt(InnerProduct(x, x))
}
