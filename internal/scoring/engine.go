package scoring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/thebtf/readlens/pkg/models"
)

// HistoryStore reads a user's historical baseline. Implementations must
// scope every query to the given user; no cross-user reads happen inside
// the engine.
type HistoryStore interface {
	// HistoricalConcepts returns the distinct concept names across the
	// user's documents strictly before the given timestamp.
	HistoricalConcepts(ctx context.Context, userID uuid.UUID, before time.Time) (map[string]struct{}, error)

	// RecentDocuments returns up to limit documents strictly before the
	// given timestamp, newest first, with concepts and embeddings.
	RecentDocuments(ctx context.Context, userID uuid.UUID, before time.Time, limit int) ([]models.HistoryDocument, error)
}

// ScoreStore persists scoring results.
type ScoreStore interface {
	// UpsertScore writes the score for a document, overwriting any prior
	// score (last writer wins).
	UpsertScore(ctx context.Context, score *models.DocumentScore) error

	// ReplaceDetection replaces the document's redundancy detection with
	// the given one, or clears it when detection is nil.
	ReplaceDetection(ctx context.Context, documentID uuid.UUID, detection *models.RedundancyDetection) error
}

// Engine orchestrates one scoring pass: history window read, metric
// calculation, composite aggregation, detection, persistence. Scoring for
// different users is fully independent; for the same (user, document) pair
// concurrent calls are coalesced so at most one computation runs.
type Engine struct {
	history  HistoryStore
	scores   ScoreStore
	calc     *Calculator
	detector *Detector
	group    singleflight.Group
	log      zerolog.Logger
}

// NewEngine creates a scoring engine.
func NewEngine(history HistoryStore, scores ScoreStore, config *models.ScoringConfig, log zerolog.Logger) *Engine {
	if config == nil {
		config = models.DefaultScoringConfig()
	}
	return &Engine{
		history:  history,
		scores:   scores,
		calc:     NewCalculator(config),
		detector: NewDetector(config),
		log:      log.With().Str("component", "scoring-engine").Logger(),
	}
}

// Result is the outcome of one scoring pass.
type Result struct {
	Score     *models.DocumentScore
	Detection *models.RedundancyDetection // nil below threshold
}

// Window loads the history baseline for a document: the user's historical
// concept set and the most recent K documents, both strictly before the
// document's timestamp. Empty results are the valid new-user state.
func (e *Engine) Window(ctx context.Context, doc *models.Document) (*models.HistoryWindow, error) {
	concepts, err := e.history.HistoricalConcepts(ctx, doc.UserID, doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("load historical concepts: %w", err)
	}

	recent, err := e.history.RecentDocuments(ctx, doc.UserID, doc.CreatedAt, e.calc.Config().HistoryWindowSize)
	if err != nil {
		return nil, fmt.Errorf("load recent documents: %w", err)
	}

	return &models.HistoryWindow{Concepts: concepts, Recent: recent}, nil
}

// ScoreDocument scores a single document against the user's history and
// persists the score plus any redundancy detection. Concurrent calls for
// the same (user, document) pair share one computation; re-scoring with
// unchanged history is idempotent.
func (e *Engine) ScoreDocument(ctx context.Context, doc *models.Document) (*Result, error) {
	key := doc.UserID.String() + ":" + doc.ID.String()

	v, err, _ := e.group.Do(key, func() (interface{}, error) {
		return e.scoreLocked(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (e *Engine) scoreLocked(ctx context.Context, doc *models.Document) (*Result, error) {
	window, err := e.Window(ctx, doc)
	if err != nil {
		return nil, err
	}

	comps := e.calc.Score(doc, window)
	detection := e.detector.FromMatch(doc, comps.BestMatch, comps.BestSimilarity)

	score := &models.DocumentScore{
		ID:                       uuid.New(),
		DocumentID:               doc.ID,
		UserID:                   doc.UserID,
		Novelty:                  comps.Novelty,
		Depth:                    comps.Depth,
		Redundancy:               comps.Redundancy,
		CognitiveLoad:            comps.CognitiveLoad,
		OverallValue:             comps.OverallValue,
		NoveltyExplanation:       comps.NoveltyExplanation,
		DepthExplanation:         comps.DepthExplanation,
		RedundancyExplanation:    comps.RedundancyExplanation,
		CognitiveLoadExplanation: comps.CognitiveLoadExplanation,
		CalculatedAt:             time.Now().UTC(),
	}

	if err := e.scores.UpsertScore(ctx, score); err != nil {
		return nil, fmt.Errorf("persist score: %w", err)
	}
	if err := e.scores.ReplaceDetection(ctx, doc.ID, detection); err != nil {
		return nil, fmt.Errorf("persist detection: %w", err)
	}

	e.log.Debug().
		Str("document", doc.ID.String()).
		Float64("value", score.OverallValue).
		Bool("redundant", detection != nil).
		Msg("document scored")

	return &Result{Score: score, Detection: detection}, nil
}

// RescoreUser recomputes scores for all of one user's documents in
// timestamp order, so each pass sees the historical-concept baseline of the
// documents before it. A failed document is logged and skipped; it never
// blocks the rest of the batch.
func (e *Engine) RescoreUser(ctx context.Context, docs []*models.Document) (int, error) {
	sorted := make([]*models.Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	scored := 0
	for _, doc := range sorted {
		if err := ctx.Err(); err != nil {
			return scored, err
		}
		if _, err := e.ScoreDocument(ctx, doc); err != nil {
			e.log.Warn().Err(err).
				Str("document", doc.ID.String()).
				Msg("scoring failed, skipping document")
			continue
		}
		scored++
	}
	return scored, nil
}

// RescoreAll rescores several users' documents with a bounded worker pool.
// Users run in parallel up to maxParallel; within one user documents stay
// sequential in timestamp order.
func (e *Engine) RescoreAll(ctx context.Context, byUser map[uuid.UUID][]*models.Document, maxParallel int) error {
	if maxParallel <= 0 {
		maxParallel = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for userID, docs := range byUser {
		g.Go(func() error {
			scored, err := e.RescoreUser(gctx, docs)
			if err != nil {
				return fmt.Errorf("rescore user %s: %w", userID, err)
			}
			e.log.Info().
				Str("user", userID.String()).
				Int("scored", scored).
				Int("total", len(docs)).
				Msg("user rescore complete")
			return nil
		})
	}

	return g.Wait()
}
