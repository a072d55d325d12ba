// Package scoring computes per-document reading signals: novelty, depth,
// redundancy and cognitive load, each with a human-readable explanation.
package scoring

import (
	"math"

	"github.com/thebtf/readlens/pkg/models"
)

// CosineSimilarity returns the cosine similarity between two equal-length
// vectors: dot(a,b) / (|a|*|b|). Defined as 0 when either vector is empty,
// zero, or the lengths differ — absence of signal is valid, not an error.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// BestMatch scans the candidates and returns the one most similar to the
// given embedding, with its similarity. Candidates are expected newest
// first; ties keep the earlier (more recent) candidate. Returns (nil, 0)
// when there are no candidates or no comparable embeddings.
func BestMatch(embedding []float32, candidates []models.HistoryDocument) (*models.HistoryDocument, float64) {
	var best *models.HistoryDocument
	bestSim := 0.0

	for i := range candidates {
		sim := CosineSimilarity(embedding, candidates[i].Embedding)
		if best == nil || sim > bestSim {
			best = &candidates[i]
			bestSim = sim
		}
	}

	if best == nil {
		return nil, 0.0
	}
	return best, bestSim
}
