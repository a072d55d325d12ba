package insights

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/readlens/pkg/models"
)

func scored(createdAt time.Time, words int, novelty, depth, redundancy, load float64, concepts ...string) ScoredDocument {
	doc := &models.Document{
		ID:        uuid.New(),
		WordCount: words,
		CreatedAt: createdAt,
	}
	for _, name := range concepts {
		doc.Concepts = append(doc.Concepts, models.Concept{Name: name, Relevance: 0.5})
	}
	return ScoredDocument{
		Document: doc,
		Score: &models.DocumentScore{
			DocumentID:    doc.ID,
			Novelty:       novelty,
			Depth:         depth,
			Redundancy:    redundancy,
			CognitiveLoad: load,
		},
	}
}

func week() (time.Time, time.Time) {
	start := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC) // a Monday
	return start, start.AddDate(0, 0, 7)
}

func TestAggregate_EmptyWeek(t *testing.T) {
	userID := uuid.New()
	start, end := week()

	insight := Aggregate(userID, start, end, nil, 0)

	assert.Equal(t, 0, insight.TotalDocuments)
	assert.Equal(t, 0, insight.TotalWords)
	assert.Nil(t, insight.AvgNovelty)
	assert.Nil(t, insight.AvgDepth)
	assert.Nil(t, insight.AvgRedundancy)
	assert.Nil(t, insight.AvgCognitiveLoad)
	assert.Empty(t, insight.TopConcepts)
	assert.Equal(t, "No documents processed this week.", insight.Summary)
}

func TestAggregate_AveragesAndTotals(t *testing.T) {
	userID := uuid.New()
	start, end := week()

	docs := []ScoredDocument{
		scored(start.Add(24*time.Hour), 800, 1.0, 0.6, 0.0, 0.4, "go"),
		scored(start.Add(48*time.Hour), 1200, 0.5, 0.8, 0.2, 0.6, "go", "wasm"),
	}

	insight := Aggregate(userID, start, end, docs, 1)

	assert.Equal(t, 2, insight.TotalDocuments)
	assert.Equal(t, 2000, insight.TotalWords)
	require.NotNil(t, insight.AvgNovelty)
	assert.InDelta(t, 0.75, *insight.AvgNovelty, 1e-9)
	assert.InDelta(t, 0.7, *insight.AvgDepth, 1e-9)
	assert.InDelta(t, 0.1, *insight.AvgRedundancy, 1e-9)
	assert.InDelta(t, 0.5, *insight.AvgCognitiveLoad, 1e-9)
	assert.Equal(t, 1, insight.RedundanciesDetected)

	assert.Contains(t, insight.Summary, "2 documents")
	assert.Contains(t, insight.Summary, "novelty 75%")
	assert.Contains(t, insight.Summary, "1 redundant reads detected")
	assert.Contains(t, insight.Summary, "Most frequent concept: go")
}

func TestAggregate_TopConceptsOrdering(t *testing.T) {
	userID := uuid.New()
	start, end := week()

	// "wasm" and "sqlite" tie at 2; "wasm" appeared first
	docs := []ScoredDocument{
		scored(start, 100, 1, 0.5, 0, 0.2, "wasm", "sqlite", "go"),
		scored(start.Add(time.Hour), 100, 1, 0.5, 0, 0.2, "go", "wasm"),
		scored(start.Add(2*time.Hour), 100, 1, 0.5, 0, 0.2, "go", "sqlite"),
	}

	insight := Aggregate(userID, start, end, docs, 0)

	require.Len(t, insight.TopConcepts, 3)
	assert.Equal(t, models.ConceptCount{Name: "go", Count: 3}, insight.TopConcepts[0])
	assert.Equal(t, models.ConceptCount{Name: "wasm", Count: 2}, insight.TopConcepts[1])
	assert.Equal(t, models.ConceptCount{Name: "sqlite", Count: 2}, insight.TopConcepts[2])
}

func TestAggregate_TopConceptsCapped(t *testing.T) {
	userID := uuid.New()
	start, end := week()

	names := make([]string, 25)
	for i := range names {
		names[i] = string(rune('a'+i%26)) + string(rune('0'+i/26))
	}
	docs := []ScoredDocument{scored(start, 100, 1, 0.5, 0, 0.2, names...)}

	insight := Aggregate(userID, start, end, docs, 0)

	assert.Len(t, insight.TopConcepts, TopConceptLimit)
}

func TestAggregate_Idempotent(t *testing.T) {
	userID := uuid.New()
	start, end := week()
	docs := []ScoredDocument{
		scored(start.Add(time.Hour), 500, 0.8, 0.4, 0.1, 0.3, "go"),
	}

	first := Aggregate(userID, start, end, docs, 0)
	second := Aggregate(userID, start, end, docs, 0)

	// Everything except the generated ID and creation time is identical
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.TotalWords, second.TotalWords)
	assert.Equal(t, *first.AvgNovelty, *second.AvgNovelty)
	assert.Equal(t, first.TopConcepts, second.TopConcepts)
}

func TestPreviousWeekStart(t *testing.T) {
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		// A Wednesday maps back to the previous Monday minus a week
		{time.Date(2025, 6, 18, 15, 30, 0, 0, time.UTC), time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)},
		// A Monday maps to the Monday one week earlier
		{time.Date(2025, 6, 16, 3, 0, 0, 0, time.UTC), time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)},
		// A Sunday belongs to the week starting the prior Monday
		{time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC), time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PreviousWeekStart(tt.now), "now=%s", tt.now)
	}
}
