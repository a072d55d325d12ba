// Package insights builds periodic roll-ups of a user's reading signals.
package insights

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thebtf/readlens/pkg/models"
)

// ScoredDocument pairs a document with its score for aggregation.
type ScoredDocument struct {
	Document *models.Document
	Score    *models.DocumentScore
}

// Store is the persistence surface the insight service needs.
type Store interface {
	// ScoredDocumentsInRange returns the user's scored documents whose
	// document timestamp falls in [start, end), oldest first.
	ScoredDocumentsInRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]ScoredDocument, error)

	// CountDetectionsInRange counts redundancy detections for documents in
	// [start, end).
	CountDetectionsInRange(ctx context.Context, userID uuid.UUID, start, end time.Time) (int, error)

	// UpsertInsight overwrites the insight for (user, period start).
	UpsertInsight(ctx context.Context, insight *models.UserInsight) error

	// ActiveUserIDs returns users with documents created since the given
	// time, for the weekly schedule.
	ActiveUserIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

// TopConceptLimit caps how many concepts a weekly insight names.
const TopConceptLimit = 10

// Service computes and persists weekly insights.
type Service struct {
	store Store
	log   zerolog.Logger
}

// NewService creates an insight service.
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "insights").Logger(),
	}
}

// GenerateWeekly recomputes the insight for the week starting at weekStart.
// Idempotent: the same underlying data always yields an identical record,
// and recomputation overwrites the prior one.
func (s *Service) GenerateWeekly(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*models.UserInsight, error) {
	weekStart = weekStart.UTC().Truncate(24 * time.Hour)
	weekEnd := weekStart.AddDate(0, 0, 7)

	docs, err := s.store.ScoredDocumentsInRange(ctx, userID, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("load scored documents: %w", err)
	}

	detections, err := s.store.CountDetectionsInRange(ctx, userID, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("count detections: %w", err)
	}

	insight := Aggregate(userID, weekStart, weekEnd, docs, detections)

	if err := s.store.UpsertInsight(ctx, insight); err != nil {
		return nil, fmt.Errorf("persist insight: %w", err)
	}

	s.log.Info().
		Str("user", userID.String()).
		Time("week_start", weekStart).
		Int("documents", insight.TotalDocuments).
		Msg("weekly insight generated")

	return insight, nil
}

// Aggregate builds a UserInsight from one week of scored documents. Pure
// computation; averages are nil when no documents were processed that week.
func Aggregate(userID uuid.UUID, weekStart, weekEnd time.Time, docs []ScoredDocument, detections int) *models.UserInsight {
	insight := &models.UserInsight{
		ID:                   uuid.New(),
		UserID:               userID,
		PeriodStart:          weekStart,
		PeriodEnd:            weekEnd,
		TotalDocuments:       len(docs),
		RedundanciesDetected: detections,
		CreatedAt:            time.Now().UTC(),
	}

	if len(docs) == 0 {
		insight.Summary = "No documents processed this week."
		return insight
	}

	var sumNovelty, sumDepth, sumRedundancy, sumLoad float64
	for _, sd := range docs {
		insight.TotalWords += sd.Document.WordCount
		sumNovelty += sd.Score.Novelty
		sumDepth += sd.Score.Depth
		sumRedundancy += sd.Score.Redundancy
		sumLoad += sd.Score.CognitiveLoad
	}

	n := float64(len(docs))
	insight.AvgNovelty = ptr(sumNovelty / n)
	insight.AvgDepth = ptr(sumDepth / n)
	insight.AvgRedundancy = ptr(sumRedundancy / n)
	insight.AvgCognitiveLoad = ptr(sumLoad / n)

	insight.TopConcepts = topConcepts(docs, TopConceptLimit)

	insight.Summary = fmt.Sprintf(
		"You read %d documents (%s words) this week: average novelty %.0f%%, depth %.0f%%. %d redundant reads detected.",
		insight.TotalDocuments, formatCount(insight.TotalWords),
		*insight.AvgNovelty*100, *insight.AvgDepth*100, detections)
	if len(insight.TopConcepts) > 0 {
		insight.Summary += fmt.Sprintf(" Most frequent concept: %s.", insight.TopConcepts[0].Name)
	}

	return insight
}

// topConcepts counts concept occurrences across the week's documents,
// ordered by count descending with ties broken by first appearance.
// Documents are expected oldest first, so first-seen order is stable.
func topConcepts(docs []ScoredDocument, limit int) []models.ConceptCount {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0

	for _, sd := range docs {
		for _, c := range sd.Document.Concepts {
			if _, ok := counts[c.Name]; !ok {
				firstSeen[c.Name] = order
				order++
			}
			counts[c.Name]++
		}
	}

	ranked := make([]models.ConceptCount, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, models.ConceptCount{Name: name, Count: count})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return firstSeen[ranked[i].Name] < firstSeen[ranked[j].Name]
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func formatCount(n int) string {
	if n < 10000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%.1fk", float64(n)/1000)
}

func ptr(v float64) *float64 { return &v }
