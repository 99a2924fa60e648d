package dedup

import "math"

// seenEmbedding pairs an accepted item's embedding with its identifier.
type seenEmbedding struct {
	vector []float32
	id     string
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero-norm inputs yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
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
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// semanticMatch compares an embedding against every previously accepted one,
// short-circuiting on the first cosine similarity at or above threshold.
// A nil embedding (backend unavailable or the embed call failed for this
// item) is never a match.
func semanticMatch(embedding []float32, seen []seenEmbedding, threshold float64) (bool, float64, string) {
	if len(embedding) == 0 || len(seen) == 0 {
		return false, 0, ""
	}
	for _, prior := range seen {
		sim := CosineSimilarity(embedding, prior.vector)
		if sim >= threshold {
			return true, sim, prior.id
		}
	}
	return false, 0, ""
}
