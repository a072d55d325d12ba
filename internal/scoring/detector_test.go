package scoring

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/readlens/pkg/models"
)

func detectorDoc(concepts ...string) *models.Document {
	doc := &models.Document{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Title:     "new article",
		Embedding: []float32{0.5, 0.5},
		CreatedAt: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
	}
	for _, name := range concepts {
		doc.Concepts = append(doc.Concepts, models.Concept{Name: name, Relevance: 0.5})
	}
	return doc
}

func TestDetector_BelowThresholdNoRecord(t *testing.T) {
	detector := NewDetector(nil)
	doc := detectorDoc("a", "b")

	window := &models.HistoryWindow{
		Recent: []models.HistoryDocument{
			// cos ~0.707, below the 0.85 default
			{ID: uuid.New(), Title: "loosely related", Embedding: []float32{1, 0}, CreatedAt: doc.CreatedAt.Add(-time.Hour)},
		},
	}

	assert.Nil(t, detector.Detect(doc, window))
}

func TestDetector_IdenticalEmbeddingCreatesRecord(t *testing.T) {
	detector := NewDetector(nil)
	doc := detectorDoc("go", "embeddings", "news")

	prior := models.HistoryDocument{
		ID:        uuid.New(),
		Title:     "The same story",
		Concepts:  []string{"go", "news", "elsewhere"},
		Embedding: []float32{0.5, 0.5},
		CreatedAt: time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
	}
	window := &models.HistoryWindow{Recent: []models.HistoryDocument{prior}}

	detection := detector.Detect(doc, window)

	require.NotNil(t, detection)
	assert.InDelta(t, 1.0, detection.SimilarityScore, 1e-9)
	assert.Equal(t, doc.ID, detection.DocumentID)
	assert.Equal(t, doc.UserID, detection.UserID)
	assert.Equal(t, prior.ID, detection.SimilarToID)
	assert.Equal(t, []string{"go", "news"}, detection.RepeatedConcepts)
	assert.InDelta(t, 2.0/3.0, detection.OverlapPercentage, 1e-9)
	assert.Contains(t, detection.Explanation, "100% similar")
	assert.Contains(t, detection.Explanation, `"The same story"`)
	assert.Contains(t, detection.Explanation, "2025-06-10")
	assert.Contains(t, detection.Explanation, "share 2 concepts")
}

func TestDetector_EmptyWindow(t *testing.T) {
	detector := NewDetector(nil)

	assert.Nil(t, detector.Detect(detectorDoc("a"), &models.HistoryWindow{}))
}

func TestDetector_CustomThreshold(t *testing.T) {
	cfg := models.DefaultScoringConfig()
	cfg.SimilarityThreshold = 0.5
	detector := NewDetector(cfg)

	doc := detectorDoc("a")
	window := &models.HistoryWindow{
		Recent: []models.HistoryDocument{
			{ID: uuid.New(), Title: "related", Embedding: []float32{1, 0}, CreatedAt: doc.CreatedAt.Add(-time.Hour)},
		},
	}

	detection := detector.Detect(doc, window)

	require.NotNil(t, detection)
	assert.InDelta(t, 0.7071, detection.SimilarityScore, 0.001)
}

func TestDetector_NoConceptsZeroOverlap(t *testing.T) {
	detector := NewDetector(nil)
	doc := detectorDoc()

	window := &models.HistoryWindow{
		Recent: []models.HistoryDocument{
			{ID: uuid.New(), Title: "twin", Embedding: []float32{0.5, 0.5}, CreatedAt: doc.CreatedAt.Add(-time.Hour)},
		},
	}

	detection := detector.Detect(doc, window)

	require.NotNil(t, detection)
	assert.Empty(t, detection.RepeatedConcepts)
	assert.Equal(t, 0.0, detection.OverlapPercentage)
}
