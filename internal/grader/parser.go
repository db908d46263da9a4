package grader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gradecraft/assessment-service/internal/models"
)

var (
	scoreLineRe    = regexp.MustCompile(`^\s*SCORE\[(.+?)\]\s*:\s*(-?[0-9]+(?:\.[0-9]+)?)\s*(?:/\s*[0-9.]+)?\s*$`)
	feedbackLineRe = regexp.MustCompile(`^\s*FEEDBACK\[(.+?)\]\s*:\s*(.*)$`)
	overallLineRe  = regexp.MustCompile(`^\s*OVERALL\s*:\s*(.*)$`)
)

// parseResponse extracts per-criterion scores and feedback from the
// service's free-form text. It fails closed: a rubric criterion without a
// parsable numeric score is ErrMalformedResponse, never a silent zero.
// Out-of-range scores are clamped into [0, criterion max].
func parseResponse(content string, rubric models.Rubric) (*models.GradingResult, error) {
	scores := make(map[string]float64)
	feedback := make(map[string]string)
	var overall strings.Builder

	// Feedback and overall blocks run until the next marker line.
	currentFeedback := ""
	inOverall := false

	for _, line := range strings.Split(content, "\n") {
		if m := scoreLineRe.FindStringSubmatch(line); m != nil {
			value, err := strconv.ParseFloat(m[2], 64)
			if err == nil {
				scores[normalizeCriterionName(m[1])] = value
			}
			currentFeedback = ""
			inOverall = false
			continue
		}

		if m := feedbackLineRe.FindStringSubmatch(line); m != nil {
			name := normalizeCriterionName(m[1])
			feedback[name] = strings.TrimSpace(m[2])
			currentFeedback = name
			inOverall = false
			continue
		}

		if m := overallLineRe.FindStringSubmatch(line); m != nil {
			overall.WriteString(strings.TrimSpace(m[1]))
			currentFeedback = ""
			inOverall = true
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if inOverall {
			if overall.Len() > 0 {
				overall.WriteString(" ")
			}
			overall.WriteString(trimmed)
		} else if currentFeedback != "" {
			feedback[currentFeedback] = strings.TrimSpace(feedback[currentFeedback] + " " + trimmed)
		}
	}

	result := &models.GradingResult{
		MaxScore:             rubric.MaxScore(),
		PerCriterionScores:   make(map[string]float64, len(rubric.Criteria)),
		PerCriterionFeedback: make(map[string]string, len(rubric.Criteria)),
		OverallFeedback:      overall.String(),
	}

	total := 0.0
	for _, c := range rubric.Criteria {
		key := normalizeCriterionName(c.Name)
		raw, ok := scores[key]
		if !ok {
			return nil, fmt.Errorf("%w: no score marker for criterion %q", ErrMalformedResponse, c.Name)
		}

		clamped := clampScore(raw, c.MaxPoints)
		result.PerCriterionScores[c.Name] = clamped
		result.PerCriterionFeedback[c.Name] = feedback[key]
		total += clamped
	}

	result.NumericScore = total
	if result.NumericScore > result.MaxScore {
		result.NumericScore = result.MaxScore
	}

	return result, nil
}

func normalizeCriterionName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func clampScore(value, max float64) float64 {
	if value < 0 {
		return 0
	}
	if value > max {
		return max
	}
	return value
}
