package models

import (
	"fmt"
	"math"
)

// ValueWeights are the component weights for the composite value score.
// CognitiveLoad is carried for configurability and reporting but is never
// part of the composite.
type ValueWeights struct {
	Novelty       float64 `json:"novelty"`
	Depth         float64 `json:"depth"`
	Redundancy    float64 `json:"redundancy"`
	CognitiveLoad float64 `json:"cognitive_load"`
}

// DepthWeights are the factor weights inside the depth score. They should
// sum to 1.0 by convention; this is not enforced because the composite is
// clamped downstream.
type DepthWeights struct {
	Length   float64 `json:"length"`
	Concepts float64 `json:"concepts"`
	Claims   float64 `json:"claims"`
}

// LoadWeights are the factor weights inside the cognitive load score.
type LoadWeights struct {
	Length    float64 `json:"length"`
	Concepts  float64 `json:"concepts"`
	Emotional float64 `json:"emotional"`
}

// ScoringConfig contains all scoring weights and thresholds. It is passed
// explicitly into calculators and detectors so tests and deployments can
// override it without shared globals.
type ScoringConfig struct {
	// SimilarityThreshold is the cosine similarity above which a
	// RedundancyDetection is persisted.
	SimilarityThreshold float64 `json:"similarity_threshold"`

	// MinContentLength is the minimum content length (chars) the ingestion
	// side analyzes. Carried here so the whole analysis configuration lives
	// in one place.
	MinContentLength int `json:"min_content_length"`

	// ShallowContentThreshold is the word count below which content gets
	// the lowest length score.
	ShallowContentThreshold int `json:"shallow_content_threshold"`

	// HistoryWindowSize is the number of recent documents compared for
	// redundancy. Documents within the window are weighted uniformly.
	HistoryWindowSize int `json:"history_window_size"`

	Weights ValueWeights `json:"scoring_weights"`
	Depth   DepthWeights `json:"depth_weights"`
	Load    LoadWeights  `json:"load_weights"`
}

// DefaultScoringConfig returns the default scoring configuration.
func DefaultScoringConfig() *ScoringConfig {
	return &ScoringConfig{
		SimilarityThreshold:     0.85,
		MinContentLength:        50,
		ShallowContentThreshold: 200,
		HistoryWindowSize:       50,
		Weights: ValueWeights{
			Novelty:       0.30,
			Depth:         0.25,
			Redundancy:    0.25,
			CognitiveLoad: 0.20,
		},
		Depth: DepthWeights{
			Length:   0.4,
			Concepts: 0.4,
			Claims:   0.2,
		},
		Load: LoadWeights{
			Length:    0.4,
			Concepts:  0.4,
			Emotional: 0.2,
		},
	}
}

// Validate rejects non-finite or negative weights and out-of-range
// thresholds. Called at configuration-load time so bad weights fail fast
// instead of surfacing as per-document scoring failures.
func (c *ScoringConfig) Validate() error {
	weights := map[string]float64{
		"scoring_weights.novelty":        c.Weights.Novelty,
		"scoring_weights.depth":          c.Weights.Depth,
		"scoring_weights.redundancy":     c.Weights.Redundancy,
		"scoring_weights.cognitive_load": c.Weights.CognitiveLoad,
		"depth_weights.length":           c.Depth.Length,
		"depth_weights.concepts":         c.Depth.Concepts,
		"depth_weights.claims":           c.Depth.Claims,
		"load_weights.length":            c.Load.Length,
		"load_weights.concepts":          c.Load.Concepts,
		"load_weights.emotional":         c.Load.Emotional,
	}
	for name, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("scoring config: %s is not a finite number", name)
		}
		if w < 0 {
			return fmt.Errorf("scoring config: %s must not be negative (got %g)", name, w)
		}
	}

	if math.IsNaN(c.SimilarityThreshold) || c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("scoring config: similarity_threshold must be in [0,1] (got %g)", c.SimilarityThreshold)
	}
	if c.HistoryWindowSize <= 0 {
		return fmt.Errorf("scoring config: history_window_size must be positive (got %d)", c.HistoryWindowSize)
	}
	if c.ShallowContentThreshold < 0 {
		return fmt.Errorf("scoring config: shallow_content_threshold must not be negative (got %d)", c.ShallowContentThreshold)
	}
	return nil
}
