package scoring

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/thebtf/readlens/pkg/models"
)

// Detector applies the similarity threshold policy on top of the best-match
// scan and builds the persisted RedundancyDetection record. Pure computation:
// the same document and window always classify the same way.
type Detector struct {
	config *models.ScoringConfig
}

// NewDetector creates a redundancy detector. If config is nil, defaults
// are used.
func NewDetector(config *models.ScoringConfig) *Detector {
	if config == nil {
		config = models.DefaultScoringConfig()
	}
	return &Detector{config: config}
}

// Detect returns a RedundancyDetection when the best match in the window
// clears the similarity threshold, nil otherwise. The similarity stored on
// the record is exactly the value that triggered creation.
func (d *Detector) Detect(doc *models.Document, window *models.HistoryWindow) *models.RedundancyDetection {
	match, similarity := BestMatch(doc.Embedding, window.Recent)
	return d.FromMatch(doc, match, similarity)
}

// FromMatch builds the detection from an already-computed best match, so a
// scoring pass that ran the similarity scan once does not need a second one.
func (d *Detector) FromMatch(doc *models.Document, match *models.HistoryDocument, similarity float64) *models.RedundancyDetection {
	if match == nil || similarity < d.config.SimilarityThreshold {
		return nil
	}

	docConcepts := doc.ConceptSet()
	matchConcepts := match.ConceptSet()

	overlap := make([]string, 0, len(docConcepts))
	for name := range docConcepts {
		if _, ok := matchConcepts[name]; ok {
			overlap = append(overlap, name)
		}
	}
	sort.Strings(overlap)

	overlapPct := 0.0
	if len(docConcepts) > 0 {
		overlapPct = float64(len(overlap)) / float64(len(docConcepts))
	}

	explanation := fmt.Sprintf("This content is %.0f%% similar to %q from %s. They share %d concepts.",
		similarity*100, match.Title, match.CreatedAt.Format("2006-01-02"), len(overlap))

	return &models.RedundancyDetection{
		ID:                uuid.New(),
		DocumentID:        doc.ID,
		UserID:            doc.UserID,
		SimilarToID:       match.ID,
		SimilarToTitle:    match.Title,
		SimilarityScore:   similarity,
		OverlapPercentage: overlapPct,
		RepeatedConcepts:  overlap,
		Explanation:       explanation,
		DetectedAt:        time.Now().UTC(),
	}
}
