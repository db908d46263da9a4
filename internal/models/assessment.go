package models

import (
	"time"
)

type SourceFormat string

const (
	SourceFormatText SourceFormat = "text"
	SourceFormatPDF  SourceFormat = "pdf"
)

func (f SourceFormat) String() string {
	return string(f)
}

// Submission is the normalized form of a student's work. Immutable once
// created; produced by the normalizer and consumed by all later stages.
type Submission struct {
	ID           string       `json:"id" db:"id"`
	StudentID    string       `json:"student_id" db:"student_id"`
	AssignmentID string       `json:"assignment_id" db:"assignment_id"`
	RawText      string       `json:"raw_text" db:"raw_text"`
	SourceFormat SourceFormat `json:"source_format" db:"source_format"`
}

// Rubric is the scoring schema for an assignment. Supplied per request,
// read-only for the whole pipeline.
type Rubric struct {
	Criteria []Criterion `json:"criteria"`
}

type Criterion struct {
	Name        string  `json:"name"`
	MaxPoints   float64 `json:"max_points"`
	Description string  `json:"description,omitempty"`
}

// MaxScore is the sum of all criterion maximums.
func (r Rubric) MaxScore() float64 {
	total := 0.0
	for _, c := range r.Criteria {
		total += c.MaxPoints
	}
	return total
}

// OriginalityReport carries the plagiarism-similarity and AI-generation
// signals for one submission. Produced once, never mutated.
type OriginalityReport struct {
	SimilarityScore        float64  `json:"similarity_score"`
	AIGeneratedLikelihood  float64  `json:"ai_generated_likelihood"`
	MatchedSources         []string `json:"matched_sources"`
	Perplexity             float64  `json:"perplexity"`
	Burstiness             float64  `json:"burstiness"`
	ComparedWithCount      int      `json:"compared_with_count"`
	SkippedReferencesCount int      `json:"skipped_references_count"`
}

// GradingResult is what the grading service produced for one submission.
type GradingResult struct {
	NumericScore         float64            `json:"numeric_score"`
	MaxScore             float64            `json:"max_score"`
	PerCriterionScores   map[string]float64 `json:"per_criterion_scores"`
	PerCriterionFeedback map[string]string  `json:"per_criterion_feedback"`
	OverallFeedback      string             `json:"overall_feedback"`
}

type AssessmentStatus string

const (
	StatusPending            AssessmentStatus = "pending"
	StatusNormalizing        AssessmentStatus = "normalizing"
	StatusScoringOriginality AssessmentStatus = "scoring_originality"
	StatusGrading            AssessmentStatus = "grading"
	StatusAggregating        AssessmentStatus = "aggregating"
	StatusComplete           AssessmentStatus = "complete"
	StatusPartialDegraded    AssessmentStatus = "partial_degraded"
	StatusFailed             AssessmentStatus = "failed"
)

func (s AssessmentStatus) String() string {
	return string(s)
}

// Terminal reports whether the status is final. Terminal records are never
// re-attempted; a resubmission creates a new record.
func (s AssessmentStatus) Terminal() bool {
	switch s {
	case StatusComplete, StatusPartialDegraded, StatusFailed:
		return true
	}
	return false
}

// AssessmentRecord is the terminal aggregate for one submission.
type AssessmentRecord struct {
	ID                string             `json:"id" db:"id"`
	Submission        Submission         `json:"submission"`
	Rubric            Rubric             `json:"rubric"`
	OriginalityReport *OriginalityReport `json:"originality_report,omitempty"`
	GradingResult     *GradingResult     `json:"grading_result,omitempty"`
	Status            AssessmentStatus   `json:"status" db:"status"`
	FailureReason     string             `json:"failure_reason,omitempty" db:"failure_reason"`
	Warnings          []string           `json:"warnings,omitempty"`
	RawObjectKey      string             `json:"raw_object_key,omitempty" db:"raw_object_key"`
	ProcessingTimeMs  int                `json:"processing_time_ms" db:"processing_time_ms"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
	StartedAt         *time.Time         `json:"started_at,omitempty" db:"started_at"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt         time.Time          `json:"updated_at" db:"updated_at"`
}

// ReferenceDocument is the index row for one reference text kept in the
// object store. The assignment's configured set is used when a submission
// does not name explicit reference IDs.
type ReferenceDocument struct {
	ID           string    `json:"id" db:"id"`
	AssignmentID string    `json:"assignment_id" db:"assignment_id"`
	Title        string    `json:"title" db:"title"`
	ObjectKey    string    `json:"object_key" db:"object_key"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
