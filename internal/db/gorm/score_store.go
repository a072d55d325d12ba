package gorm

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thebtf/readlens/internal/insights"
	"github.com/thebtf/readlens/pkg/models"
)

// ScoreStore persists document scores, redundancy detections and weekly
// insights.
type ScoreStore struct {
	db    *gorm.DB
	rawDB *sql.DB
}

// NewScoreStore creates a new score store.
func NewScoreStore(store *Store) *ScoreStore {
	return &ScoreStore{
		db:    store.DB,
		rawDB: store.GetRawDB(),
	}
}

// UpsertScore overwrites the score for the document. Rescoring a document
// replaces its previous score rather than appending.
func (s *ScoreStore) UpsertScore(ctx context.Context, score *models.DocumentScore) error {
	row := ScoreFromModel(score)
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "document_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"novelty", "depth", "redundancy", "cognitive_load", "overall_value",
				"novelty_explanation", "depth_explanation",
				"redundancy_explanation", "cognitive_load_explanation",
				"calculated_at",
			}),
		}).
		Create(row).Error; err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

// GetScore returns the score for a document, or nil when the document has
// not been scored.
func (s *ScoreStore) GetScore(ctx context.Context, documentID uuid.UUID) (*models.DocumentScore, error) {
	var row DocumentScore
	if err := s.db.WithContext(ctx).First(&row, "document_id = ?", documentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get score: %w", err)
	}
	return row.ToModel(), nil
}

// ReplaceDetection replaces the document's redundancy detection. A nil
// detection clears any existing record, keeping the zero-or-one invariant
// through rescoring.
func (s *ScoreStore) ReplaceDetection(ctx context.Context, documentID uuid.UUID, detection *models.RedundancyDetection) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).
			Delete(&RedundancyDetection{}).Error; err != nil {
			return fmt.Errorf("delete existing detection: %w", err)
		}
		if detection == nil {
			return nil
		}
		if err := tx.Create(DetectionFromModel(detection)).Error; err != nil {
			return fmt.Errorf("insert detection: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace detection: %w", err)
	}
	return nil
}

// GetDetection returns the document's redundancy detection, or nil when
// none was recorded.
func (s *ScoreStore) GetDetection(ctx context.Context, documentID uuid.UUID) (*models.RedundancyDetection, error) {
	var row RedundancyDetection
	if err := s.db.WithContext(ctx).First(&row, "document_id = ?", documentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get detection: %w", err)
	}
	return row.ToModel(), nil
}

// ListUserDetections returns a user's redundancy detections, newest first.
// Offset pages further back in history.
func (s *ScoreStore) ListUserDetections(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.RedundancyDetection, error) {
	var rows []RedundancyDetection
	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("detected_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}

	detections := make([]*models.RedundancyDetection, 0, len(rows))
	for i := range rows {
		detections = append(detections, rows[i].ToModel())
	}
	return detections, nil
}

// ScoredDocumentsInRange returns the user's scored documents whose document
// timestamp falls in [start, end), oldest first. Unscored documents are
// excluded.
func (s *ScoreStore) ScoredDocumentsInRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]insights.ScoredDocument, error) {
	var docRows []Document
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).
		Order("created_at ASC").
		Find(&docRows).Error; err != nil {
		return nil, fmt.Errorf("query documents in range: %w", err)
	}
	if len(docRows) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(docRows))
	for i := range docRows {
		ids = append(ids, docRows[i].ID)
	}

	var scoreRows []DocumentScore
	if err := s.db.WithContext(ctx).
		Where("document_id IN ?", ids).
		Find(&scoreRows).Error; err != nil {
		return nil, fmt.Errorf("query scores in range: %w", err)
	}
	scoreByDoc := make(map[uuid.UUID]*DocumentScore, len(scoreRows))
	for i := range scoreRows {
		scoreByDoc[scoreRows[i].DocumentID] = &scoreRows[i]
	}

	scored := make([]insights.ScoredDocument, 0, len(docRows))
	for i := range docRows {
		score, ok := scoreByDoc[docRows[i].ID]
		if !ok {
			continue
		}
		scored = append(scored, insights.ScoredDocument{
			Document: docRows[i].ToModel(),
			Score:    score.ToModel(),
		})
	}
	return scored, nil
}

// CountDetectionsInRange counts a user's redundancy detections for
// documents created in [start, end).
func (s *ScoreStore) CountDetectionsInRange(ctx context.Context, userID uuid.UUID, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM redundancy_detections rd
		JOIN documents d ON d.id = rd.document_id
		WHERE rd.user_id = $1 AND d.created_at >= $2 AND d.created_at < $3
	`

	var count int
	if err := s.rawDB.QueryRowContext(ctx, query, userID, start, end).Scan(&count); err != nil {
		return 0, fmt.Errorf("count detections in range: %w", err)
	}
	return count, nil
}

// UpsertInsight overwrites the insight for (user, period start).
func (s *ScoreStore) UpsertInsight(ctx context.Context, insight *models.UserInsight) error {
	row := InsightFromModel(insight)
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "period_start"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"period_end", "total_documents", "total_words",
				"avg_novelty", "avg_depth", "avg_redundancy", "avg_cognitive_load",
				"redundancies_detected", "top_concepts", "summary", "created_at",
			}),
		}).
		Create(row).Error; err != nil {
		return fmt.Errorf("upsert insight: %w", err)
	}
	return nil
}

// GetInsight returns the insight for (user, period start), or nil when
// none exists.
func (s *ScoreStore) GetInsight(ctx context.Context, userID uuid.UUID, periodStart time.Time) (*models.UserInsight, error) {
	var row UserInsight
	if err := s.db.WithContext(ctx).
		First(&row, "user_id = ? AND period_start = ?", userID, periodStart).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get insight: %w", err)
	}
	return row.ToModel(), nil
}

// LatestInsight returns the user's most recent insight, or nil when the
// user has none yet.
func (s *ScoreStore) LatestInsight(ctx context.Context, userID uuid.UUID) (*models.UserInsight, error) {
	var row UserInsight
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("period_start DESC").
		First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("latest insight: %w", err)
	}
	return row.ToModel(), nil
}

// ActiveUserIDs returns users with documents created since the given time.
func (s *ScoreStore) ActiveUserIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	rows, err := s.rawDB.QueryContext(ctx,
		"SELECT DISTINCT user_id FROM documents WHERE created_at >= $1", since)
	if err != nil {
		return nil, fmt.Errorf("query active users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}
	return ids, nil
}
