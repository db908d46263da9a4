package grader

import (
	"fmt"
	"strings"

	"github.com/gradecraft/assessment-service/internal/models"
)

const systemPrompt = "You are an experienced teacher providing fair and constructive feedback. " +
	"Grade strictly against the rubric. Respond in plain text using exactly the markers you are asked for, " +
	"with no markdown formatting."

// Submissions longer than this are truncated before prompting so the
// request stays within the service's context limits.
const maxSubmissionChars = 8000

// buildPrompt embeds the rubric criteria and the submission text into a
// grading request. The response format is pinned down so the parser can
// extract scores deterministically.
func buildPrompt(submission models.Submission, rubric models.Rubric) string {
	var b strings.Builder

	b.WriteString("Grade the following student submission against the rubric below.\n\n")
	b.WriteString("RUBRIC:\n")
	for _, c := range rubric.Criteria {
		fmt.Fprintf(&b, "- %s (max %g points)", c.Name, c.MaxPoints)
		if c.Description != "" {
			fmt.Fprintf(&b, ": %s", c.Description)
		}
		b.WriteString("\n")
	}

	text := submission.RawText
	if len(text) > maxSubmissionChars {
		text = text[:maxSubmissionChars] +
			fmt.Sprintf("\n[Note: submission truncated from %d characters]", len(submission.RawText))
	}

	b.WriteString("\nSUBMISSION:\n")
	b.WriteString(text)
	b.WriteString("\n\nRespond using exactly this format, one block per rubric criterion:\n\n")
	for _, c := range rubric.Criteria {
		fmt.Fprintf(&b, "SCORE[%s]: <number between 0 and %g>\n", c.Name, c.MaxPoints)
		fmt.Fprintf(&b, "FEEDBACK[%s]: <specific feedback for this criterion>\n", c.Name)
	}
	b.WriteString("OVERALL: <overall feedback with concrete steps for improvement>\n")

	return b.String()
}
