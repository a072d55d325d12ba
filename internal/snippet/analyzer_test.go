package snippet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findType(insights []Insight, t InsightType) *Insight {
	for i := range insights {
		if insights[i].Type == t {
			return &insights[i]
		}
	}
	return nil
}

func TestAnalyze_EmptyText(t *testing.T) {
	a := NewAnalyzer()
	assert.Nil(t, a.Analyze(""))
	assert.Nil(t, a.Analyze("   \n\t  "))
}

func TestAnalyze_NeutralText(t *testing.T) {
	a := NewAnalyzer()
	insights := a.Analyze("The garden was quiet this morning and the birds sang softly.")
	assert.Empty(t, insights)
}

func TestAnalyze_RepetitionOnSecondSighting(t *testing.T) {
	a := NewAnalyzer()
	text := "Interest rates held steady for the third consecutive quarter."

	first := a.Analyze(text)
	assert.Nil(t, findType(first, TypeRepetition))

	// Same content with different whitespace and case still counts as a repeat
	second := a.Analyze("  interest   rates held STEADY for the third consecutive quarter.  ")
	rep := findType(second, TypeRepetition)
	require.NotNil(t, rep)
	assert.Equal(t, 0.75, rep.Confidence)
	assert.NotEmpty(t, rep.Explanation)
}

func TestAnalyze_CognitiveLoad(t *testing.T) {
	a := NewAnalyzer()

	// One run-on sentence of ~100 short words: long text + long sentence
	text := strings.Repeat("the quick brown fox jumps over it and ", 13)
	insights := a.Analyze(text)

	load := findType(insights, TypeCognitiveLoad)
	require.NotNil(t, load)
	assert.GreaterOrEqual(t, load.Confidence, 0.55)
	assert.LessOrEqual(t, load.Confidence, 0.9)
}

func TestAnalyze_Persuasion(t *testing.T) {
	a := NewAnalyzer()
	insights := a.Analyze("ACT NOW! This SHOCKING deal ends soon! Buy today! Don't wait!")

	p := findType(insights, TypePersuasion)
	require.NotNil(t, p)
	assert.GreaterOrEqual(t, p.Confidence, 0.45)
	assert.Contains(t, p.Explanation, "urgency phrasing")
	assert.Contains(t, p.Explanation, "not a truth judgment")
}

func TestAnalyze_AIStyle(t *testing.T) {
	a := NewAnalyzer()
	insights := a.Analyze("It is important to note that the results vary. " +
		"Additionally, the sample was small. Moreover, the method was new. " +
		"Furthermore, replication is pending. In conclusion, more work is needed.")

	ai := findType(insights, TypeAIStyle)
	require.NotNil(t, ai)
	assert.GreaterOrEqual(t, ai.Confidence, 0.50)
	assert.Contains(t, ai.Explanation, "templated phrasing")
}

func TestAnalyze_AffectedTextTruncated(t *testing.T) {
	a := NewAnalyzer()
	long := strings.Repeat("urgent! shocking! you won't believe this! ", 20)
	insights := a.Analyze(long)

	p := findType(insights, TypePersuasion)
	require.NotNil(t, p)
	assert.LessOrEqual(t, len(p.AffectedText), maxAffectedText+len("…"))
}

func TestHashText_NormalizesWhitespaceAndCase(t *testing.T) {
	assert.Equal(t, HashText("Hello  World"), HashText("hello\nworld"))
	assert.NotEqual(t, HashText("hello world"), HashText("hello worlds"))
}
