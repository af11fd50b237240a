package embeddings

import (
	"context"
	"math"
)

// Vector is a fixed-dimension embedding vector.
type Vector []float32

// Embedder turns texts into vectors, one per input, order preserved. A
// failure means no vectors at all; partial results are never returned.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]Vector, error)
	Model() string
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 for
// empty or mismatched vectors.
func CosineSimilarity(a, b Vector) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
