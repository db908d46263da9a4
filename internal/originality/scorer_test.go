package originality

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradecraft/assessment-service/internal/refstore"
)

type fakeRefStore struct {
	docs map[string]string
}

func (f *fakeRefStore) GetText(_ context.Context, id string) (string, error) {
	text, ok := f.docs[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", refstore.ErrReferenceUnavailable, id)
	}
	return text, nil
}

func defaultConfig() ScorerConfig {
	return ScorerConfig{
		SimilarityMetric:    MetricJaccard,
		SimilarityAggregate: AggregateMax,
		TopK:                3,
		MatchThreshold:      0.5,
		PerplexityWeight:    0.9,
		BurstinessWeight:    0.1,
		PerplexityNorm:      100,
		BurstinessNorm:      2.0,
	}
}

func newTestScorer(t *testing.T, store refstore.ReferenceStore, cfg ScorerConfig) Scorer {
	t.Helper()
	s, err := NewScorer(store, zerolog.Nop(), cfg)
	require.NoError(t, err)
	return s
}

func TestScore_EmptyReferenceSet(t *testing.T) {
	s := newTestScorer(t, &fakeRefStore{docs: map[string]string{}}, defaultConfig())

	report, warnings, err := s.Score(context.Background(), "The mitochondria is the powerhouse of the cell.", nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 0.0, report.SimilarityScore)
	assert.Empty(t, report.MatchedSources)
	assert.Equal(t, 0, report.ComparedWithCount)
}

func TestScore_BoundsHold(t *testing.T) {
	store := &fakeRefStore{docs: map[string]string{
		"ref-1": "The mitochondria is the powerhouse of the cell.",
		"ref-2": "Completely unrelated text about medieval history.",
	}}
	s := newTestScorer(t, store, defaultConfig())

	report, _, err := s.Score(context.Background(), "The mitochondria is the powerhouse of the cell.", []string{"ref-1", "ref-2"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, report.SimilarityScore, 0.0)
	assert.LessOrEqual(t, report.SimilarityScore, 1.0)
	assert.GreaterOrEqual(t, report.AIGeneratedLikelihood, 0.0)
	assert.LessOrEqual(t, report.AIGeneratedLikelihood, 1.0)
}

func TestScore_IdenticalReferenceMatches(t *testing.T) {
	text := "The mitochondria is the powerhouse of the cell."
	store := &fakeRefStore{docs: map[string]string{"ref-1": text}}
	s := newTestScorer(t, store, defaultConfig())

	report, _, err := s.Score(context.Background(), text, []string{"ref-1"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, report.SimilarityScore)
	assert.Equal(t, []string{"ref-1"}, report.MatchedSources)
}

func TestScore_UnreadableReferenceSkippedWithWarning(t *testing.T) {
	store := &fakeRefStore{docs: map[string]string{
		"ref-good": "Some reference text about cells.",
	}}
	s := newTestScorer(t, store, defaultConfig())

	report, warnings, err := s.Score(context.Background(), "Some student text about cells.", []string{"ref-good", "ref-missing"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.ComparedWithCount)
	assert.Equal(t, 1, report.SkippedReferencesCount)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "ref-missing")
}

func TestScore_Deterministic(t *testing.T) {
	store := &fakeRefStore{docs: map[string]string{
		"ref-1": "Photosynthesis converts light energy into chemical energy stored in glucose.",
	}}
	s := newTestScorer(t, store, defaultConfig())

	text := "Plants use photosynthesis to convert light energy into chemical energy. " +
		"This process happens in the chloroplasts. The resulting glucose fuels growth."

	first, _, err := s.Score(context.Background(), text, []string{"ref-1"})
	require.NoError(t, err)
	second, _, err := s.Score(context.Background(), text, []string{"ref-1"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScore_RepetitiveTextLooksMoreMachineGenerated(t *testing.T) {
	s := newTestScorer(t, &fakeRefStore{}, defaultConfig())

	repetitive := strings.Repeat("The model generates the same sentence every time. ", 20)
	varied := "Dawn broke over the quiet harbor. Fishermen argued about yesterday's catch while gulls wheeled overhead. " +
		"A rusted trawler coughed diesel smoke into the cold air. Nobody mentioned the storm forecast, " +
		"though everyone had read it. By noon the market stalls overflowed with cod, mussels, and gossip."

	repReport, _, err := s.Score(context.Background(), repetitive, nil)
	require.NoError(t, err)
	varReport, _, err := s.Score(context.Background(), varied, nil)
	require.NoError(t, err)

	assert.Greater(t, repReport.AIGeneratedLikelihood, varReport.AIGeneratedLikelihood)
}

func TestScore_CancelledContext(t *testing.T) {
	s := newTestScorer(t, &fakeRefStore{}, defaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Score(ctx, "some text", nil)
	require.Error(t, err)
}

func TestJaccardSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, jaccardSimilarity("a b c", "a b c"))
	assert.Equal(t, 0.0, jaccardSimilarity("a b c", "x y z"))
	assert.Equal(t, 0.0, jaccardSimilarity("", "a b"))
}

func TestLevenshteinSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, levenshteinSimilarity("identical", "identical"))
	assert.Equal(t, 0.0, levenshteinSimilarity("", "anything"))

	partial := levenshteinSimilarity("kitten", "sitting")
	assert.Greater(t, partial, 0.0)
	assert.Less(t, partial, 1.0)
}

func TestAggregate_TopKAverage(t *testing.T) {
	cfg := defaultConfig()
	cfg.SimilarityAggregate = AggregateTopKAvg
	cfg.TopK = 2

	store := &fakeRefStore{docs: map[string]string{
		"ref-a": "alpha beta gamma",
		"ref-b": "alpha beta delta",
		"ref-c": "unrelated words entirely different",
	}}
	s := newTestScorer(t, store, cfg)

	report, _, err := s.Score(context.Background(), "alpha beta gamma", []string{"ref-a", "ref-b", "ref-c"})
	require.NoError(t, err)

	// Top-2 average must sit between the best and second-best pairwise scores.
	assert.Less(t, report.SimilarityScore, 1.0)
	assert.Greater(t, report.SimilarityScore, 0.3)
}
