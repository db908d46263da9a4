package originality

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// The AI-likelihood signals are computed from a smoothed word-bigram model
// fit on the document itself. The model is a pure function of the text, so
// repeated runs on identical input always produce identical scores.

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// tokenize lowercases the text and splits it into words, stripping
// punctuation from token edges.
func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		token := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func splitSentences(text string) []string {
	parts := sentenceSplitRe.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// bigramModel is an add-one smoothed word-bigram language model.
type bigramModel struct {
	bigramCounts map[string]map[string]int
	prevCounts   map[string]int
	vocabSize    int
}

func fitBigramModel(tokens []string) *bigramModel {
	m := &bigramModel{
		bigramCounts: make(map[string]map[string]int),
		prevCounts:   make(map[string]int),
	}

	vocab := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		vocab[t] = struct{}{}
	}
	m.vocabSize = len(vocab)

	for i := 1; i < len(tokens); i++ {
		prev, cur := tokens[i-1], tokens[i]
		if m.bigramCounts[prev] == nil {
			m.bigramCounts[prev] = make(map[string]int)
		}
		m.bigramCounts[prev][cur]++
		m.prevCounts[prev]++
	}

	return m
}

// surprisal returns -log2 P(cur | prev) in bits.
func (m *bigramModel) surprisal(prev, cur string) float64 {
	count := 0
	if next, ok := m.bigramCounts[prev]; ok {
		count = next[cur]
	}
	p := float64(count+1) / float64(m.prevCounts[prev]+m.vocabSize)
	return -math.Log2(p)
}

// perplexity is 2^(mean token surprisal) over the whole document. Very
// short documents get a fixed high value so they read as human-written.
func (m *bigramModel) perplexity(tokens []string) float64 {
	if len(tokens) < 2 {
		return shortTextPerplexity
	}

	total := 0.0
	for i := 1; i < len(tokens); i++ {
		total += m.surprisal(tokens[i-1], tokens[i])
	}
	mean := total / float64(len(tokens)-1)
	return math.Exp2(mean)
}

const shortTextPerplexity = 10000

// burstiness is the population standard deviation of per-sentence mean
// surprisal. Uniformly predictable documents score near zero.
func (m *bigramModel) burstiness(sentences []string) float64 {
	means := make([]float64, 0, len(sentences))
	for _, s := range sentences {
		tokens := tokenize(s)
		if len(tokens) < 2 {
			continue
		}
		total := 0.0
		for i := 1; i < len(tokens); i++ {
			total += m.surprisal(tokens[i-1], tokens[i])
		}
		means = append(means, total/float64(len(tokens)-1))
	}

	if len(means) < 2 {
		return 0
	}

	sum := 0.0
	for _, v := range means {
		sum += v
	}
	mean := sum / float64(len(means))

	variance := 0.0
	for _, v := range means {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(means))

	return math.Sqrt(variance)
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
