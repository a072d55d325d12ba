// Package snippet provides fast, storage-free heuristic analysis of short
// visible text snippets. It flags signals with an explanation and a
// confidence; it never makes truth claims.
package snippet

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InsightType classifies a snippet signal.
type InsightType string

const (
	// TypeRepetition flags text the user has just seen.
	TypeRepetition InsightType = "repetition"
	// TypeCognitiveLoad flags mentally dense text.
	TypeCognitiveLoad InsightType = "cognitive_load"
	// TypePersuasion flags emotional/persuasion-style framing.
	TypePersuasion InsightType = "persuasion"
	// TypeAIStyle flags phrasing that can resemble generated text.
	TypeAIStyle InsightType = "ai_style"
)

// Insight is one snippet-level signal. Explanation and confidence are
// always present; AffectedText is the normalized, truncated snippet.
type Insight struct {
	ID           uuid.UUID   `json:"id"`
	Type         InsightType `json:"type"`
	Confidence   float64     `json:"confidence"`
	Explanation  string      `json:"explanation"`
	AffectedText string      `json:"affected_text"`
	CreatedAt    time.Time   `json:"created_at"`
}

var urgencyPhrases = []string{
	"act now",
	"urgent",
	"immediately",
	"must",
	"right now",
	"before it's too late",
	"shocking",
	"you won't believe",
	"wake up",
	"they don't want you to know",
}

var aiPhrases = []string{
	"in conclusion",
	"as an ai",
	"it is important to note",
	"overall",
	"to summarize",
	"in summary",
	"additionally",
	"moreover",
	"furthermore",
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	capsWord      = regexp.MustCompile(`\b[A-Z]{4,}\b`)
	bulletLine    = regexp.MustCompile(`(?m)^\s*[-*]\s+`)
)

const maxAffectedText = 320

// Analyzer holds the seen-snippet state used for the repetition signal.
// Safe for concurrent use.
type Analyzer struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewAnalyzer creates a snippet analyzer with empty repetition state.
func NewAnalyzer() *Analyzer {
	return &Analyzer{seen: make(map[string]struct{})}
}

// HashText returns a stable hash of whitespace-normalized, lowercased text,
// used to deduplicate repeated snippets.
func HashText(text string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Analyze inspects a snippet and returns zero or more insights. No
// database access; pure heuristics plus the in-memory repetition set.
func (a *Analyzer) Analyze(text string) []Insight {
	cleaned := strings.Join(strings.Fields(text), " ")
	if cleaned == "" {
		return nil
	}

	now := time.Now().UTC()
	var insights []Insight

	if a.isRepeat(cleaned) {
		insights = append(insights, Insight{
			ID:         uuid.New(),
			Type:       TypeRepetition,
			Confidence: 0.75,
			Explanation: "This looks very similar to something you just saw. " +
				"Repetition can reduce signal and increase mental fatigue.",
			AffectedText: truncate(cleaned),
			CreatedAt:    now,
		})
	}

	words := strings.Fields(cleaned)
	avgSentenceWords := averageSentenceWords(cleaned, len(words))

	if load := loadScore(cleaned, words, avgSentenceWords); load >= 0.55 {
		insights = append(insights, Insight{
			ID:         uuid.New(),
			Type:       TypeCognitiveLoad,
			Confidence: clamp(load, 0.55, 0.9),
			Explanation: "This snippet looks mentally dense (long sentences, lots of clauses). " +
				"Consider slowing down or taking breaks.",
			AffectedText: truncate(cleaned),
			CreatedAt:    now,
		})
	}

	if score, why := persuasionScore(cleaned); score >= 0.45 {
		insights = append(insights, Insight{
			ID:         uuid.New(),
			Type:       TypePersuasion,
			Confidence: clamp(score, 0.45, 0.85),
			Explanation: "This resembles persuasion/emotional framing signals (" + why + "). " +
				"This is not a truth judgment, just a pattern warning with reasons.",
			AffectedText: truncate(cleaned),
			CreatedAt:    now,
		})
	}

	if score, why := aiStyleScore(text, cleaned, avgSentenceWords); score >= 0.50 {
		insights = append(insights, Insight{
			ID:         uuid.New(),
			Type:       TypeAIStyle,
			Confidence: clamp(score, 0.50, 0.85),
			Explanation: "This text shows signals that can resemble generated writing (" + why + "). " +
				"This can be wrong; treat it as a gentle prompt to verify.",
			AffectedText: truncate(cleaned),
			CreatedAt:    now,
		})
	}

	return insights
}

// isRepeat reports whether the snippet was seen before, recording it
// otherwise.
func (a *Analyzer) isRepeat(cleaned string) bool {
	hash := HashText(cleaned)

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.seen[hash]; ok {
		return true
	}
	a.seen[hash] = struct{}{}
	return false
}

func averageSentenceWords(cleaned string, wordCount int) float64 {
	var sentences []string
	for _, s := range sentenceSplit.Split(cleaned, -1) {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return float64(wordCount)
	}
	total := 0
	for _, s := range sentences {
		total += len(strings.Fields(s))
	}
	return float64(total) / float64(len(sentences))
}

func loadScore(cleaned string, words []string, avgSentenceWords float64) float64 {
	avgWordLen := 0.0
	if len(words) > 0 {
		total := 0
		for _, w := range words {
			total += len(w)
		}
		avgWordLen = float64(total) / float64(len(words))
	}

	score := 0.0
	if len(words) >= 90 {
		score += 0.35
	}
	if avgSentenceWords >= 22 {
		score += 0.35
	}
	if avgWordLen >= 5.3 {
		score += 0.15
	}
	if strings.Count(cleaned, ",") >= 6 {
		score += 0.15
	}
	return score
}

func persuasionScore(cleaned string) (float64, string) {
	lower := strings.ToLower(cleaned)
	exclam := strings.Count(cleaned, "!")

	capsHits := 0
	for _, w := range capsWord.FindAllString(cleaned, -1) {
		if isAlpha(w) {
			capsHits++
		}
	}

	var urgencyHits []string
	for _, p := range urgencyPhrases {
		if strings.Contains(lower, p) {
			urgencyHits = append(urgencyHits, p)
		}
	}

	score := 0.0
	if exclam >= 3 {
		score += 0.25
	}
	if capsHits >= 2 {
		score += 0.25
	}
	if len(urgencyHits) > 0 {
		score += 0.35
	}
	if strings.Contains(cleaned, "?") && exclam > 0 {
		score += 0.10
	}

	var bits []string
	if len(urgencyHits) > 0 {
		bits = append(bits, "urgency phrasing")
	}
	if exclam >= 3 {
		bits = append(bits, "heavy exclamation")
	}
	if capsHits >= 2 {
		bits = append(bits, "all-caps emphasis")
	}
	why := "persuasion-style formatting"
	if len(bits) > 0 {
		why = strings.Join(bits, ", ")
	}
	return score, why
}

func aiStyleScore(raw, cleaned string, avgSentenceWords float64) (float64, string) {
	lower := strings.ToLower(cleaned)

	phraseHits := 0
	for _, p := range aiPhrases {
		if strings.Contains(lower, p) {
			phraseHits++
		}
	}

	repeatedTransitions := 0
	for _, p := range []string{"additionally", "moreover", "furthermore"} {
		repeatedTransitions += strings.Count(lower, p)
	}

	bulletish := len(bulletLine.FindAllString(raw, -1))

	score := 0.0
	if phraseHits > 0 {
		score += 0.35
	}
	if repeatedTransitions >= 2 {
		score += 0.25
	}
	if bulletish >= 3 {
		score += 0.10
	}
	if avgSentenceWords >= 24 {
		score += 0.10
	}

	var bits []string
	if phraseHits > 0 {
		bits = append(bits, "templated phrasing")
	}
	if repeatedTransitions >= 2 {
		bits = append(bits, "repeated transitions")
	}
	if avgSentenceWords >= 24 {
		bits = append(bits, "very uniform long sentences")
	}
	why := "stylistic signals"
	if len(bits) > 0 {
		why = strings.Join(bits, ", ")
	}
	return score, why
}

func truncate(text string) string {
	if len(text) <= maxAffectedText {
		return text
	}
	return strings.TrimSpace(text[:maxAffectedText-1]) + "…"
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || (r > 'Z' && r < 'a') || r > 'z' {
			return false
		}
	}
	return len(s) > 0
}
