package originality

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

const (
	MetricJaccard     = "jaccard"
	MetricLevenshtein = "levenshtein"
)

const (
	AggregateMax     = "max"
	AggregateTopKAvg = "topk_avg"
)

// normalizeText collapses whitespace and lowercases, so that formatting
// differences do not inflate similarity.
func normalizeText(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// jaccardSimilarity is the token-set intersection over union of two texts.
func jaccardSimilarity(text1, text2 string) float64 {
	if text1 == "" || text2 == "" {
		return 0.0
	}

	set1 := make(map[string]bool)
	for _, token := range strings.Fields(text1) {
		set1[token] = true
	}

	set2 := make(map[string]bool)
	for _, token := range strings.Fields(text2) {
		set2[token] = true
	}

	intersection := 0
	for token := range set1 {
		if set2[token] {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// levenshteinSimilarity is 1 minus the normalized edit distance.
func levenshteinSimilarity(text1, text2 string) float64 {
	if text1 == "" || text2 == "" {
		return 0.0
	}

	source := []rune(text1)
	target := []rune(text2)

	longest := len(source)
	if len(target) > longest {
		longest = len(target)
	}
	if longest == 0 {
		return 0.0
	}

	distance := levenshtein.DistanceForStrings(source, target, levenshtein.DefaultOptions)
	return clamp01(1.0 - float64(distance)/float64(longest))
}
