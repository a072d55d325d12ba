package scoring

import (
	"fmt"
	"time"

	"github.com/thebtf/readlens/pkg/models"
)

// Calculator computes the four reading-signal scores for a document against
// a user's history window. All methods are pure functions of their inputs
// and the configuration; there is no shared mutable state, so one Calculator
// is safe for concurrent use across users.
type Calculator struct {
	config *models.ScoringConfig
}

// NewCalculator creates a calculator. If config is nil, defaults are used.
func NewCalculator(config *models.ScoringConfig) *Calculator {
	if config == nil {
		config = models.DefaultScoringConfig()
	}
	return &Calculator{config: config}
}

// Config returns the calculator's scoring configuration.
func (c *Calculator) Config() *models.ScoringConfig {
	return c.config
}

// Components is the full breakdown of one scoring pass. Every score is in
// [0,1] and carries a non-empty explanation.
type Components struct {
	Novelty       float64
	Depth         float64
	Redundancy    float64
	CognitiveLoad float64
	OverallValue  float64

	NoveltyExplanation       string
	DepthExplanation         string
	RedundancyExplanation    string
	CognitiveLoadExplanation string

	// BestMatch is the most similar historical document, nil when the
	// window is empty. BestSimilarity is its raw cosine similarity.
	BestMatch      *models.HistoryDocument
	BestSimilarity float64
}

// Score computes all four component scores and the composite value for a
// document against its history window. Deterministic: the same document and
// window always produce an identical breakdown.
func (c *Calculator) Score(doc *models.Document, window *models.HistoryWindow) Components {
	var comps Components

	comps.Novelty, comps.NoveltyExplanation = c.Novelty(doc, window.Concepts)
	comps.Depth, comps.DepthExplanation = c.Depth(doc)
	comps.Redundancy, comps.RedundancyExplanation, comps.BestMatch, comps.BestSimilarity =
		c.Redundancy(doc, window.Recent)
	comps.CognitiveLoad, comps.CognitiveLoadExplanation = c.CognitiveLoad(doc)
	comps.OverallValue = c.OverallValue(comps.Novelty, comps.Depth, comps.Redundancy)

	return comps
}

// Novelty measures the fraction of the document's concepts the user has
// never seen before: |doc concepts - historical concepts| / |doc concepts|.
// In [0,1] by construction. With empty history every concept is new, so a
// user's first documents always score 1.0.
func (c *Calculator) Novelty(doc *models.Document, historical map[string]struct{}) (float64, string) {
	if len(doc.Concepts) == 0 {
		return 0.0, "No concepts extracted; novelty cannot be assessed."
	}

	seen := make(map[string]struct{}, len(doc.Concepts))
	newCount := 0
	total := 0
	for _, concept := range doc.Concepts {
		if _, dup := seen[concept.Name]; dup {
			continue
		}
		seen[concept.Name] = struct{}{}
		total++
		if _, known := historical[concept.Name]; !known {
			newCount++
		}
	}

	novelty := float64(newCount) / float64(total)

	var explanation string
	switch {
	case novelty >= 0.7:
		explanation = fmt.Sprintf("High novelty: %d out of %d concepts are new to you.", newCount, total)
	case novelty >= 0.3:
		explanation = fmt.Sprintf("Moderate novelty: %d new concepts out of %d total.", newCount, total)
	default:
		explanation = fmt.Sprintf("Low novelty: most concepts (%d of %d) were already familiar.", total-newCount, total)
	}

	if len(historical) == 0 {
		explanation += " First documents are always maximally novel."
	}

	return novelty, explanation
}

// Depth measures how substantive the content is: a step function of length,
// concept density normalized to 5 concepts per 100 words, and claim count
// normalized to 10 claims.
func (c *Calculator) Depth(doc *models.Document) (float64, string) {
	wordCount := doc.WordCount

	var lengthScore float64
	switch {
	case wordCount < c.config.ShallowContentThreshold:
		lengthScore = 0.2
	case wordCount < 500:
		lengthScore = 0.4
	case wordCount < 1000:
		lengthScore = 0.6
	case wordCount < 2000:
		lengthScore = 0.8
	default:
		lengthScore = 1.0
	}

	conceptScore := 0.0
	if wordCount > 0 {
		density := float64(len(doc.Concepts)) / (float64(wordCount) / 100.0)
		conceptScore = min(1.0, density/5.0)
	}

	claimsScore := min(1.0, float64(doc.ClaimCount)/10.0)

	depth := lengthScore*c.config.Depth.Length +
		conceptScore*c.config.Depth.Concepts +
		claimsScore*c.config.Depth.Claims

	var explanation string
	switch {
	case depth >= 0.7:
		explanation = fmt.Sprintf("High depth: substantive content with %d words and %d factual claims.",
			wordCount, doc.ClaimCount)
	case depth >= 0.4:
		explanation = fmt.Sprintf("Moderate depth: %d words, %d concepts and %d claims.",
			wordCount, len(doc.Concepts), doc.ClaimCount)
	default:
		explanation = fmt.Sprintf("Low depth: brief content (%d words, %d claims) with limited detail.",
			wordCount, doc.ClaimCount)
	}

	return depth, explanation
}

// Redundancy is the maximum cosine similarity between the document and the
// recent history window, clamped to [0,1]. The best match is returned so the
// detector can reuse it without a second scan.
func (c *Calculator) Redundancy(doc *models.Document, recent []models.HistoryDocument) (float64, string, *models.HistoryDocument, float64) {
	match, similarity := BestMatch(doc.Embedding, recent)

	score := clamp01(similarity)

	var explanation string
	switch {
	case match != nil && score >= c.config.SimilarityThreshold:
		explanation = fmt.Sprintf("High redundancy: %.0f%% similar to %q (read %s).",
			score*100, match.Title, relativeAge(match.CreatedAt, doc.CreatedAt))
	case match != nil && score >= 0.5:
		explanation = fmt.Sprintf("Some redundancy: %.0f%% similar to %q (read %s).",
			score*100, match.Title, relativeAge(match.CreatedAt, doc.CreatedAt))
	default:
		explanation = "Low redundancy: this content appears unique compared to your recent reading."
	}

	return score, explanation, match, similarity
}

// CognitiveLoad estimates the mental effort to process the content from
// length, concept density and emotional-pattern count. A heuristic proxy for
// effort, not a quality judgment.
func (c *Calculator) CognitiveLoad(doc *models.Document) (float64, string) {
	wordCount := doc.WordCount

	var lengthLoad float64
	switch {
	case wordCount < 500:
		lengthLoad = 0.2
	case wordCount < 1500:
		lengthLoad = 0.5
	case wordCount < 3000:
		lengthLoad = 0.7
	default:
		lengthLoad = 0.9
	}

	density := 0.0
	if wordCount > 0 {
		density = float64(len(doc.Concepts)) / (float64(wordCount) / 100.0)
	}
	var conceptLoad float64
	switch {
	case density > 8:
		conceptLoad = 0.9
	case density > 5:
		conceptLoad = 0.6
	default:
		conceptLoad = 0.3
	}

	emotionalLoad := min(1.0, float64(doc.EmotionalPatternCount)*0.3)

	load := lengthLoad*c.config.Load.Length +
		conceptLoad*c.config.Load.Concepts +
		emotionalLoad*c.config.Load.Emotional

	var explanation string
	switch {
	case load >= 0.7:
		explanation = fmt.Sprintf("High cognitive load: %d words of dense material. Consider taking breaks.", wordCount)
	case load >= 0.4:
		explanation = fmt.Sprintf("Moderate cognitive load: %d words of manageable complexity.", wordCount)
	default:
		explanation = fmt.Sprintf("Low cognitive load: %d words, easy to process.", wordCount)
	}

	return load, explanation
}

// OverallValue blends the components into the composite value score:
//
//	value = clamp01(novelty*Wn + depth*Wd - redundancy*Wr)
//
// Cognitive load is informational only and excluded. Weights need not sum
// to 1; the result is clamped instead.
func (c *Calculator) OverallValue(novelty, depth, redundancy float64) float64 {
	value := novelty*c.config.Weights.Novelty +
		depth*c.config.Weights.Depth -
		redundancy*c.config.Weights.Redundancy
	return clamp01(value)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// relativeAge renders how long before the scored document the matched one
// was read, for explanation strings.
func relativeAge(earlier, later time.Time) string {
	days := int(later.Sub(earlier).Hours() / 24)
	switch {
	case days <= 0:
		return "earlier today"
	case days == 1:
		return "yesterday"
	case days < 14:
		return fmt.Sprintf("%d days ago", days)
	case days < 60:
		return fmt.Sprintf("%d weeks ago", days/7)
	default:
		return fmt.Sprintf("on %s", earlier.Format("2006-01-02"))
	}
}
