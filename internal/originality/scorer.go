package originality

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/gradecraft/assessment-service/internal/models"
	"github.com/gradecraft/assessment-service/internal/refstore"
)

// Scorer produces an OriginalityReport for a submission without touching
// the grading service.
type Scorer interface {
	Score(ctx context.Context, text string, referenceIDs []string) (*models.OriginalityReport, []string, error)
}

type ScorerConfig struct {
	SimilarityMetric    string
	SimilarityAggregate string
	TopK                int
	MatchThreshold      float64
	PerplexityWeight    float64
	BurstinessWeight    float64
	PerplexityNorm      float64
	BurstinessNorm      float64
}

type scorer struct {
	references refstore.ReferenceStore
	logger     zerolog.Logger
	config     ScorerConfig
}

// NewScorer builds a scorer around an injected read-only reference store.
// PerplexityWeight and BurstinessWeight are expected to sum to 1.
func NewScorer(references refstore.ReferenceStore, logger zerolog.Logger, config ScorerConfig) (Scorer, error) {
	if config.PerplexityNorm <= 0 || config.BurstinessNorm <= 0 {
		return nil, fmt.Errorf("perplexity and burstiness norms must be positive")
	}
	if config.TopK <= 0 {
		config.TopK = 3
	}
	return &scorer{
		references: references,
		logger:     logger,
		config:     config,
	}, nil
}

type referenceMatch struct {
	id         string
	similarity float64
}

// Score computes the similarity and AI-likelihood signals. Unreadable
// references are skipped and reported as warnings; only the returned error
// is a hard failure.
func (s *scorer) Score(ctx context.Context, text string, referenceIDs []string) (*models.OriginalityReport, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("originality scoring aborted: %w", err)
	}

	normalized := normalizeText(text)

	var warnings []string
	matches := make([]referenceMatch, 0, len(referenceIDs))
	skipped := 0

	for _, refID := range referenceIDs {
		if err := ctx.Err(); err != nil {
			return nil, warnings, fmt.Errorf("originality scoring aborted: %w", err)
		}

		refText, err := s.references.GetText(ctx, refID)
		if err != nil {
			skipped++
			warnings = append(warnings, fmt.Sprintf("reference %s skipped: %v", refID, err))
			s.logger.Warn().Err(err).Str("reference_id", refID).Msg("Reference unavailable, skipping")
			continue
		}

		similarity := s.compare(normalized, normalizeText(refText))
		matches = append(matches, referenceMatch{id: refID, similarity: similarity})

		s.logger.Debug().
			Str("reference_id", refID).
			Float64("similarity", similarity).
			Msg("Compared with reference")
	}

	similarityScore, matchedSources := s.aggregate(matches)

	tokens := tokenize(text)
	model := fitBigramModel(tokens)
	perplexity := model.perplexity(tokens)
	burstiness := model.burstiness(splitSentences(text))

	likelihood := s.combineAISignals(perplexity, burstiness)

	report := &models.OriginalityReport{
		SimilarityScore:        similarityScore,
		AIGeneratedLikelihood:  likelihood,
		MatchedSources:         matchedSources,
		Perplexity:             perplexity,
		Burstiness:             burstiness,
		ComparedWithCount:      len(matches),
		SkippedReferencesCount: skipped,
	}

	s.logger.Info().
		Float64("similarity_score", similarityScore).
		Float64("ai_likelihood", likelihood).
		Int("compared_with", len(matches)).
		Int("skipped", skipped).
		Msg("Originality report computed")

	return report, warnings, nil
}

func (s *scorer) compare(text1, text2 string) float64 {
	switch s.config.SimilarityMetric {
	case MetricLevenshtein:
		return levenshteinSimilarity(text1, text2)
	default:
		return jaccardSimilarity(text1, text2)
	}
}

// aggregate folds the per-reference similarities into a single score and
// the ordered matched-sources list. Ties are broken by reference ID so the
// output is deterministic for a fixed reference set.
func (s *scorer) aggregate(matches []referenceMatch) (float64, []string) {
	if len(matches) == 0 {
		return 0, []string{}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].similarity != matches[j].similarity {
			return matches[i].similarity > matches[j].similarity
		}
		return matches[i].id < matches[j].id
	})

	var score float64
	switch s.config.SimilarityAggregate {
	case AggregateTopKAvg:
		k := s.config.TopK
		if k > len(matches) {
			k = len(matches)
		}
		sum := 0.0
		for i := 0; i < k; i++ {
			sum += matches[i].similarity
		}
		score = sum / float64(k)
	default:
		score = matches[0].similarity
	}

	matched := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.similarity >= s.config.MatchThreshold {
			matched = append(matched, m.id)
		}
	}

	return clamp01(score), matched
}

// combineAISignals normalizes both signals to [0,1] and takes the weighted
// average. Low perplexity and low burstiness both push the likelihood up.
func (s *scorer) combineAISignals(perplexity, burstiness float64) float64 {
	perplexityScore := clamp01(1.0 - perplexity/s.config.PerplexityNorm)
	burstinessScore := clamp01(1.0 - burstiness/s.config.BurstinessNorm)

	return clamp01(s.config.PerplexityWeight*perplexityScore + s.config.BurstinessWeight*burstinessScore)
}
