package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// DocumentScore holds the four component scores, the composite value score
// and one explanation string per component. One per document, overwritten on
// reprocessing. All scores are in [0,1]:
//   - higher novelty = more new information
//   - higher depth = more substantive content
//   - higher redundancy = more repeated information
//   - higher cognitive load = more mentally taxing
type DocumentScore struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	UserID     uuid.UUID `json:"user_id"`

	Novelty       float64 `json:"novelty_score"`
	Depth         float64 `json:"depth_score"`
	Redundancy    float64 `json:"redundancy_score"`
	CognitiveLoad float64 `json:"cognitive_load_score"`

	// OverallValue blends novelty, depth and (negatively) redundancy.
	// Cognitive load is informational only and excluded from the composite.
	OverallValue float64 `json:"overall_value_score"`

	NoveltyExplanation       string `json:"novelty_explanation"`
	DepthExplanation         string `json:"depth_explanation"`
	RedundancyExplanation    string `json:"redundancy_explanation"`
	CognitiveLoadExplanation string `json:"cognitive_load_explanation"`

	CalculatedAt time.Time `json:"calculated_at"`
}

// RedundancyDetection records that a document repeats content the user has
// already seen. Zero or one per document: created only when the best match
// in the history window clears the similarity threshold.
type RedundancyDetection struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	UserID     uuid.UUID `json:"user_id"`

	// SimilarToID references the most-similar earlier document.
	SimilarToID    uuid.UUID `json:"similar_to_id"`
	SimilarToTitle string    `json:"similar_to_title"`

	// SimilarityScore is the cosine similarity that triggered the detection.
	SimilarityScore float64 `json:"similarity_score"`

	// OverlapPercentage is the share of the document's concepts that also
	// appear in the matched document.
	OverlapPercentage float64 `json:"overlap_percentage"`

	// RepeatedConcepts lists the concept names shared by both documents.
	RepeatedConcepts []string `json:"repeated_concepts"`

	Explanation string    `json:"explanation"`
	DetectedAt  time.Time `json:"detected_at"`
}

// ConceptCount pairs a concept name with how often it appeared in a period.
type ConceptCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// UserInsight is the weekly roll-up of a user's scores and detections.
// One per (user, week); recomputation overwrites the prior record.
//
// Averages are nil when no documents were processed that week.
type UserInsight struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	// PeriodStart is inclusive, PeriodEnd exclusive.
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	TotalDocuments int `json:"total_documents"`
	TotalWords     int `json:"total_words"`

	AvgNovelty       *float64 `json:"avg_novelty_score"`
	AvgDepth         *float64 `json:"avg_depth_score"`
	AvgRedundancy    *float64 `json:"avg_redundancy_score"`
	AvgCognitiveLoad *float64 `json:"avg_cognitive_load"`

	RedundanciesDetected int `json:"redundancies_detected"`

	// TopConcepts is ordered by frequency descending, ties by first-seen.
	TopConcepts []ConceptCount `json:"top_concepts"`

	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// ConceptCountList is a []ConceptCount that stores as a JSON column.
type ConceptCountList []ConceptCount

// Scan implements sql.Scanner for ConceptCountList.
func (c *ConceptCountList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		if len(v) == 0 {
			*c = nil
			return nil
		}
		return json.Unmarshal(v, c)
	case string:
		if v == "" {
			*c = nil
			return nil
		}
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("ConceptCountList: unsupported type %T", src)
	}
}

// Value implements driver.Valuer for ConceptCountList.
func (c ConceptCountList) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
