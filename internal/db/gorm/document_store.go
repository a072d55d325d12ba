package gorm

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	pgvec "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/thebtf/readlens/pkg/models"
)

// DocumentStore provides document persistence and the history-window queries
// the scoring engine runs against.
type DocumentStore struct {
	db    *gorm.DB
	rawDB *sql.DB
}

// NewDocumentStore creates a new document store.
func NewDocumentStore(store *Store) *DocumentStore {
	return &DocumentStore{
		db:    store.DB,
		rawDB: store.GetRawDB(),
	}
}

// CreateDocument stores a processed document.
func (s *DocumentStore) CreateDocument(ctx context.Context, doc *models.Document) (*models.Document, error) {
	row := DocumentFromModel(doc)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return row.ToModel(), nil
}

// GetDocument returns a document by ID, or nil when it does not exist.
func (s *DocumentStore) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var row Document
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return row.ToModel(), nil
}

// ListUserDocuments returns all of a user's documents oldest first, the
// order rescoring walks them in.
func (s *DocumentStore) ListUserDocuments(ctx context.Context, userID uuid.UUID) ([]*models.Document, error) {
	var rows []Document
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list user documents: %w", err)
	}

	docs := make([]*models.Document, 0, len(rows))
	for i := range rows {
		docs = append(docs, rows[i].ToModel())
	}
	return docs, nil
}

// AllDocumentsByUser returns every document grouped by user, for full
// reprocessing runs.
func (s *DocumentStore) AllDocumentsByUser(ctx context.Context) (map[uuid.UUID][]*models.Document, error) {
	var rows []Document
	if err := s.db.WithContext(ctx).
		Order("user_id ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list all documents: %w", err)
	}

	byUser := make(map[uuid.UUID][]*models.Document)
	for i := range rows {
		byUser[rows[i].UserID] = append(byUser[rows[i].UserID], rows[i].ToModel())
	}
	return byUser, nil
}

// HistoricalConcepts returns the distinct concept names across a user's
// documents created strictly before the given time.
func (s *DocumentStore) HistoricalConcepts(ctx context.Context, userID uuid.UUID, before time.Time) (map[string]struct{}, error) {
	query := `
		SELECT DISTINCT c->>'name'
		FROM documents
		CROSS JOIN LATERAL jsonb_array_elements(concepts) AS c
		WHERE user_id = $1 AND created_at < $2
	`

	rows, err := s.rawDB.QueryContext(ctx, query, userID, before)
	if err != nil {
		return nil, fmt.Errorf("query historical concepts: %w", err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan concept name: %w", err)
		}
		set[name] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate concept names: %w", err)
	}
	return set, nil
}

// RecentDocuments returns the user's most recent documents created strictly
// before the given time, newest first, capped at limit.
func (s *DocumentStore) RecentDocuments(ctx context.Context, userID uuid.UUID, before time.Time, limit int) ([]models.HistoryDocument, error) {
	var rows []Document
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND created_at < ?", userID, before).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query recent documents: %w", err)
	}

	recent := make([]models.HistoryDocument, 0, len(rows))
	for i := range rows {
		doc := rows[i].ToModel()
		recent = append(recent, models.HistoryDocument{
			ID:        doc.ID,
			Title:     doc.Title,
			Concepts:  doc.ConceptNames(),
			Embedding: doc.Embedding,
			CreatedAt: doc.CreatedAt,
		})
	}
	return recent, nil
}

// SimilarDocument is one row of a nearest-neighbour lookup: document
// metadata plus its cosine similarity to the query document.
type SimilarDocument struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}

// SimilarDocuments returns the user's documents nearest to the given
// embedding by cosine distance, most similar first. The query document
// itself is excluded. Uses the ivfflat index on the embedding column.
func (s *DocumentStore) SimilarDocuments(ctx context.Context, userID, excludeID uuid.UUID, embedding []float32, limit int) ([]SimilarDocument, error) {
	query := `
		SELECT id, title, created_at, 1 - (embedding <=> $1) AS similarity
		FROM documents
		WHERE user_id = $2 AND id <> $3 AND embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $4
	`

	rows, err := s.rawDB.QueryContext(ctx, query, pgvec.NewVector(embedding), userID, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query similar documents: %w", err)
	}
	defer rows.Close()

	similar := make([]SimilarDocument, 0, limit)
	for rows.Next() {
		var doc SimilarDocument
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.CreatedAt, &doc.Similarity); err != nil {
			return nil, fmt.Errorf("scan similar document: %w", err)
		}
		similar = append(similar, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similar documents: %w", err)
	}
	return similar, nil
}

// DocumentSummary is one row of the recent-documents listing: document
// metadata plus its score when one exists.
type DocumentSummary struct {
	Document  *models.Document       `json:"document"`
	Score     *models.DocumentScore  `json:"score,omitempty"`
}

// RecentDocumentSummaries lists the user's newest documents with their
// scores attached where scoring has run. Offset pages further back in
// history.
func (s *DocumentStore) RecentDocumentSummaries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]DocumentSummary, error) {
	var rows []Document
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query recent summaries: %w", err)
	}

	summaries := make([]DocumentSummary, 0, len(rows))
	for i := range rows {
		summary := DocumentSummary{Document: rows[i].ToModel()}

		var score DocumentScore
		err := s.db.WithContext(ctx).First(&score, "document_id = ?", rows[i].ID).Error
		switch err {
		case nil:
			summary.Score = score.ToModel()
		case gorm.ErrRecordNotFound:
			// Unscored document, listed without a score
		default:
			return nil, fmt.Errorf("load score for summary: %w", err)
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// DashboardStats aggregates a user's reading totals for the dashboard.
type DashboardStats struct {
	TotalDocuments       int        `json:"total_documents"`
	TotalWords           int        `json:"total_words"`
	AvgOverallValue      *float64   `json:"avg_overall_value,omitempty"`
	RedundanciesDetected int        `json:"redundancies_detected"`
	LastDocumentAt       *time.Time `json:"last_document_at,omitempty"`
}

// GetDashboardStats computes the user's all-time dashboard totals.
func (s *DocumentStore) GetDashboardStats(ctx context.Context, userID uuid.UUID) (*DashboardStats, error) {
	query := `
		SELECT
			COUNT(d.id),
			COALESCE(SUM(d.word_count), 0),
			AVG(sc.overall_value),
			MAX(d.created_at)
		FROM documents d
		LEFT JOIN document_scores sc ON sc.document_id = d.id
		WHERE d.user_id = $1
	`

	stats := &DashboardStats{}
	var avgValue sql.NullFloat64
	var lastAt sql.NullTime
	if err := s.rawDB.QueryRowContext(ctx, query, userID).
		Scan(&stats.TotalDocuments, &stats.TotalWords, &avgValue, &lastAt); err != nil {
		return nil, fmt.Errorf("query dashboard stats: %w", err)
	}
	if avgValue.Valid {
		stats.AvgOverallValue = &avgValue.Float64
	}
	if lastAt.Valid {
		stats.LastDocumentAt = &lastAt.Time
	}

	var detections int64
	if err := s.db.WithContext(ctx).
		Model(&RedundancyDetection{}).
		Where("user_id = ?", userID).
		Count(&detections).Error; err != nil {
		return nil, fmt.Errorf("count detections: %w", err)
	}
	stats.RedundanciesDetected = int(detections)

	return stats, nil
}
