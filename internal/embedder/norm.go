package embedder

import "math"

// normalizeAll rescales each vector in place to unit L2 norm. Retrieval
// scores passages by dot product, which equals cosine similarity only when
// every vector is unit length. Zero vectors are left untouched.
func normalizeAll(vectors [][]float32) {
	for _, v := range vectors {
		normalize(v)
	}
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
