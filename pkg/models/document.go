// Package models contains domain models for readlens.
package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Concept is a named entity or topic extracted from a document, with the
// relevance the extractor assigned to it. Concepts are the atomic unit for
// novelty and overlap comparisons.
type Concept struct {
	Name      string  `json:"name"`
	Relevance float64 `json:"relevance"`
}

// Document is the read model this core consumes. It is created by the
// ingestion/NLP pipeline and never mutated here; the scoring engine only
// reads it.
type Document struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	Title  string    `json:"title"`

	WordCount             int       `json:"word_count"`
	Concepts              []Concept `json:"concepts"`
	ClaimCount            int       `json:"claim_count"`
	EmotionalPatternCount int       `json:"emotional_pattern_count"`

	// Embedding is the single averaged chunk embedding for the document.
	// Empty when the embedding pipeline has not run yet; similarity against
	// an empty embedding is defined as 0.
	Embedding []float32 `json:"embedding,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ConceptNames returns the document's concept names in extraction order.
func (d *Document) ConceptNames() []string {
	names := make([]string, 0, len(d.Concepts))
	for _, c := range d.Concepts {
		names = append(names, c.Name)
	}
	return names
}

// ConceptSet returns the document's concept names as a set.
func (d *Document) ConceptSet() map[string]struct{} {
	set := make(map[string]struct{}, len(d.Concepts))
	for _, c := range d.Concepts {
		set[c.Name] = struct{}{}
	}
	return set
}

// HistoryDocument is a historical document as seen through the history
// window: just enough to compare against (embedding, concepts) and to name
// in explanations (title, timestamp).
type HistoryDocument struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Concepts  []string  `json:"concepts"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ConceptSet returns the historical document's concept names as a set.
func (h *HistoryDocument) ConceptSet() map[string]struct{} {
	set := make(map[string]struct{}, len(h.Concepts))
	for _, name := range h.Concepts {
		set[name] = struct{}{}
	}
	return set
}

// HistoryWindow is the per-user comparison baseline for one scoring pass:
// every concept seen strictly before the scored document, plus the most
// recent K documents, newest first. Derived per call, never persisted.
type HistoryWindow struct {
	// Concepts is the set of distinct concept names across all of the
	// user's documents strictly before the scored document's timestamp.
	Concepts map[string]struct{}

	// Recent holds the most recent K documents before the scored document,
	// ordered newest first.
	Recent []HistoryDocument
}

// Empty reports whether the user had no prior documents. This is the valid
// new-user state, not an error.
func (w *HistoryWindow) Empty() bool {
	return len(w.Concepts) == 0 && len(w.Recent) == 0
}

// ConceptList is a []Concept that stores as a JSON column.
type ConceptList []Concept

// Scan implements sql.Scanner for ConceptList.
func (c *ConceptList) Scan(src interface{}) error {
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
		return fmt.Errorf("ConceptList: unsupported type %T", src)
	}
}

// Value implements driver.Valuer for ConceptList.
func (c ConceptList) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// StringList is a []string that stores as a JSON column.
type StringList []string

// Scan implements sql.Scanner for StringList.
func (s *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		if len(v) == 0 {
			*s = nil
			return nil
		}
		return json.Unmarshal(v, s)
	case string:
		if v == "" {
			*s = nil
			return nil
		}
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("StringList: unsupported type %T", src)
	}
}

// Value implements driver.Valuer for StringList.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
