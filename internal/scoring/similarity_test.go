package scoring

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/readlens/pkg/models"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"scaled copies still identical", []float32{1, 2}, []float32{3, 6}, 1.0},
		{"zero vector left", []float32{0, 0}, []float32{1, 2}, 0.0},
		{"zero vector right", []float32{1, 2}, []float32{0, 0}, 0.0},
		{"empty left", nil, []float32{1, 2}, 0.0},
		{"mismatched lengths", []float32{1, 2, 3}, []float32{1, 2}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float32{0.3, -0.2, 0.9, 0.1}
	b := []float32{0.5, 0.5, 0.1, -0.7}

	assert.InDelta(t, CosineSimilarity(a, b), CosineSimilarity(b, a), 1e-12)
}

func TestBestMatch_EmptyCandidates(t *testing.T) {
	match, sim := BestMatch([]float32{1, 0}, nil)

	assert.Nil(t, match)
	assert.Equal(t, 0.0, sim)
}

func TestBestMatch_PicksMaximum(t *testing.T) {
	now := time.Now()
	candidates := []models.HistoryDocument{
		{ID: uuid.New(), Title: "weak", Embedding: []float32{0, 1}, CreatedAt: now},
		{ID: uuid.New(), Title: "strong", Embedding: []float32{1, 0.1}, CreatedAt: now.Add(-time.Hour)},
		{ID: uuid.New(), Title: "medium", Embedding: []float32{1, 1}, CreatedAt: now.Add(-2 * time.Hour)},
	}

	match, sim := BestMatch([]float32{1, 0}, candidates)

	require.NotNil(t, match)
	assert.Equal(t, "strong", match.Title)
	assert.Greater(t, sim, 0.99)
}

func TestBestMatch_TiePrefersMostRecent(t *testing.T) {
	// Candidates are newest first; an exact tie keeps the earlier entry
	now := time.Now()
	candidates := []models.HistoryDocument{
		{ID: uuid.New(), Title: "newer", Embedding: []float32{2, 0}, CreatedAt: now},
		{ID: uuid.New(), Title: "older", Embedding: []float32{3, 0}, CreatedAt: now.Add(-time.Hour)},
	}

	match, sim := BestMatch([]float32{1, 0}, candidates)

	require.NotNil(t, match)
	assert.Equal(t, "newer", match.Title)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestBestMatch_NoEmbeddingAnywhere(t *testing.T) {
	candidates := []models.HistoryDocument{
		{ID: uuid.New(), Title: "first"},
	}

	match, sim := BestMatch(nil, candidates)

	require.NotNil(t, match)
	assert.Equal(t, 0.0, sim)
}
