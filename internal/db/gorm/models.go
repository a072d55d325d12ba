package gorm

import (
	"time"

	"github.com/google/uuid"
	pgvec "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/thebtf/readlens/pkg/models"
)

// GORM models. Conversions to and from pkg/models live next to each row type
// so the domain packages never see gorm tags or pgvector column types.

// Document is the documents table row.
type Document struct {
	ID                    uuid.UUID          `gorm:"type:uuid;primaryKey"`
	UserID                uuid.UUID          `gorm:"type:uuid;not null;index:idx_documents_user_created,priority:1"`
	Title                 string             `gorm:"type:text;not null"`
	WordCount             int                `gorm:"not null;default:0"`
	Concepts              models.ConceptList `gorm:"type:jsonb"`
	ClaimCount            int                `gorm:"not null;default:0"`
	EmotionalPatternCount int                `gorm:"not null;default:0"`
	// Column dimension comes from the documents migration, which reads the
	// configured embedding size; the tag stays dimension-agnostic.
	Embedding pgvec.Vector `gorm:"type:vector"`
	CreatedAt time.Time    `gorm:"not null;index:idx_documents_user_created,priority:2,sort:desc"`
}

func (Document) TableName() string { return "documents" }

// BeforeCreate hook to ensure ID and timestamp are set.
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return nil
}

// ToModel converts a documents row to the domain document.
func (d *Document) ToModel() *models.Document {
	return &models.Document{
		ID:                    d.ID,
		UserID:                d.UserID,
		Title:                 d.Title,
		WordCount:             d.WordCount,
		Concepts:              d.Concepts,
		ClaimCount:            d.ClaimCount,
		EmotionalPatternCount: d.EmotionalPatternCount,
		Embedding:             d.Embedding.Slice(),
		CreatedAt:             d.CreatedAt,
	}
}

// DocumentFromModel converts a domain document to a documents row.
func DocumentFromModel(doc *models.Document) *Document {
	return &Document{
		ID:                    doc.ID,
		UserID:                doc.UserID,
		Title:                 doc.Title,
		WordCount:             doc.WordCount,
		Concepts:              doc.Concepts,
		ClaimCount:            doc.ClaimCount,
		EmotionalPatternCount: doc.EmotionalPatternCount,
		Embedding:             pgvec.NewVector(doc.Embedding),
		CreatedAt:             doc.CreatedAt,
	}
}

// DocumentScore is the document_scores table row. One per document,
// overwritten on rescoring.
type DocumentScore struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_scores_document_unique"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_scores_user"`

	Novelty       float64 `gorm:"not null"`
	Depth         float64 `gorm:"not null"`
	Redundancy    float64 `gorm:"not null"`
	CognitiveLoad float64 `gorm:"not null"`
	OverallValue  float64 `gorm:"not null"`

	NoveltyExplanation       string `gorm:"type:text"`
	DepthExplanation         string `gorm:"type:text"`
	RedundancyExplanation    string `gorm:"type:text"`
	CognitiveLoadExplanation string `gorm:"type:text"`

	CalculatedAt time.Time `gorm:"not null"`
}

func (DocumentScore) TableName() string { return "document_scores" }

// BeforeCreate hook to ensure ID is set.
func (s *DocumentScore) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ToModel converts a document_scores row to the domain score.
func (s *DocumentScore) ToModel() *models.DocumentScore {
	return &models.DocumentScore{
		ID:                       s.ID,
		DocumentID:               s.DocumentID,
		UserID:                   s.UserID,
		Novelty:                  s.Novelty,
		Depth:                    s.Depth,
		Redundancy:               s.Redundancy,
		CognitiveLoad:            s.CognitiveLoad,
		OverallValue:             s.OverallValue,
		NoveltyExplanation:       s.NoveltyExplanation,
		DepthExplanation:         s.DepthExplanation,
		RedundancyExplanation:    s.RedundancyExplanation,
		CognitiveLoadExplanation: s.CognitiveLoadExplanation,
		CalculatedAt:             s.CalculatedAt,
	}
}

// ScoreFromModel converts a domain score to a document_scores row.
func ScoreFromModel(score *models.DocumentScore) *DocumentScore {
	return &DocumentScore{
		ID:                       score.ID,
		DocumentID:               score.DocumentID,
		UserID:                   score.UserID,
		Novelty:                  score.Novelty,
		Depth:                    score.Depth,
		Redundancy:               score.Redundancy,
		CognitiveLoad:            score.CognitiveLoad,
		OverallValue:             score.OverallValue,
		NoveltyExplanation:       score.NoveltyExplanation,
		DepthExplanation:         score.DepthExplanation,
		RedundancyExplanation:    score.RedundancyExplanation,
		CognitiveLoadExplanation: score.CognitiveLoadExplanation,
		CalculatedAt:             score.CalculatedAt,
	}
}

// RedundancyDetection is the redundancy_detections table row. Zero or one
// per document.
type RedundancyDetection struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_detections_document_unique"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_detections_user"`

	SimilarToID       uuid.UUID         `gorm:"type:uuid;not null"`
	SimilarToTitle    string            `gorm:"type:text"`
	SimilarityScore   float64           `gorm:"not null"`
	OverlapPercentage float64           `gorm:"not null"`
	RepeatedConcepts  models.StringList `gorm:"type:jsonb"`
	Explanation       string            `gorm:"type:text"`

	DetectedAt time.Time `gorm:"not null"`
}

func (RedundancyDetection) TableName() string { return "redundancy_detections" }

// BeforeCreate hook to ensure ID is set.
func (d *RedundancyDetection) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// ToModel converts a redundancy_detections row to the domain detection.
func (d *RedundancyDetection) ToModel() *models.RedundancyDetection {
	return &models.RedundancyDetection{
		ID:                d.ID,
		DocumentID:        d.DocumentID,
		UserID:            d.UserID,
		SimilarToID:       d.SimilarToID,
		SimilarToTitle:    d.SimilarToTitle,
		SimilarityScore:   d.SimilarityScore,
		OverlapPercentage: d.OverlapPercentage,
		RepeatedConcepts:  d.RepeatedConcepts,
		Explanation:       d.Explanation,
		DetectedAt:        d.DetectedAt,
	}
}

// DetectionFromModel converts a domain detection to a redundancy_detections row.
func DetectionFromModel(det *models.RedundancyDetection) *RedundancyDetection {
	return &RedundancyDetection{
		ID:                det.ID,
		DocumentID:        det.DocumentID,
		UserID:            det.UserID,
		SimilarToID:       det.SimilarToID,
		SimilarToTitle:    det.SimilarToTitle,
		SimilarityScore:   det.SimilarityScore,
		OverlapPercentage: det.OverlapPercentage,
		RepeatedConcepts:  det.RepeatedConcepts,
		Explanation:       det.Explanation,
		DetectedAt:        det.DetectedAt,
	}
}

// UserInsight is the user_insights table row. One per (user, period start);
// recomputation overwrites the prior record. Averages are NULL for weeks
// with no documents.
type UserInsight struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_insights_user_period,priority:1"`

	PeriodStart time.Time `gorm:"not null;uniqueIndex:idx_insights_user_period,priority:2"`
	PeriodEnd   time.Time `gorm:"not null"`

	TotalDocuments int `gorm:"not null;default:0"`
	TotalWords     int `gorm:"not null;default:0"`

	AvgNovelty       *float64
	AvgDepth         *float64
	AvgRedundancy    *float64
	AvgCognitiveLoad *float64

	RedundanciesDetected int                     `gorm:"not null;default:0"`
	TopConcepts          models.ConceptCountList `gorm:"type:jsonb"`
	Summary              string                  `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
}

func (UserInsight) TableName() string { return "user_insights" }

// BeforeCreate hook to ensure ID is set.
func (i *UserInsight) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// ToModel converts a user_insights row to the domain insight.
func (i *UserInsight) ToModel() *models.UserInsight {
	return &models.UserInsight{
		ID:                   i.ID,
		UserID:               i.UserID,
		PeriodStart:          i.PeriodStart,
		PeriodEnd:            i.PeriodEnd,
		TotalDocuments:       i.TotalDocuments,
		TotalWords:           i.TotalWords,
		AvgNovelty:           i.AvgNovelty,
		AvgDepth:             i.AvgDepth,
		AvgRedundancy:        i.AvgRedundancy,
		AvgCognitiveLoad:     i.AvgCognitiveLoad,
		RedundanciesDetected: i.RedundanciesDetected,
		TopConcepts:          i.TopConcepts,
		Summary:              i.Summary,
		CreatedAt:            i.CreatedAt,
	}
}

// InsightFromModel converts a domain insight to a user_insights row.
func InsightFromModel(insight *models.UserInsight) *UserInsight {
	return &UserInsight{
		ID:                   insight.ID,
		UserID:               insight.UserID,
		PeriodStart:          insight.PeriodStart,
		PeriodEnd:            insight.PeriodEnd,
		TotalDocuments:       insight.TotalDocuments,
		TotalWords:           insight.TotalWords,
		AvgNovelty:           insight.AvgNovelty,
		AvgDepth:             insight.AvgDepth,
		AvgRedundancy:        insight.AvgRedundancy,
		AvgCognitiveLoad:     insight.AvgCognitiveLoad,
		RedundanciesDetected: insight.RedundanciesDetected,
		TopConcepts:          insight.TopConcepts,
		Summary:              insight.Summary,
		CreatedAt:            insight.CreatedAt,
	}
}
