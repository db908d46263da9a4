package models

import (
	"time"
)

// The consumer reloads the full record from the database, so the event
// carries only what is needed to locate it.
type SubmissionReceivedEvent struct {
	RecordID     string   `json:"record_id"`
	StudentID    string   `json:"student_id"`
	AssignmentID string   `json:"assignment_id"`
	ObjectKey    string   `json:"object_key"`
	ReferenceIDs []string `json:"reference_ids,omitempty"`
	Timestamp    int64    `json:"timestamp"`
}

type AssessmentCompletedEvent struct {
	RecordID         string    `json:"record_id"`
	StudentID        string    `json:"student_id"`
	AssignmentID     string    `json:"assignment_id"`
	Status           string    `json:"status"`
	NumericScore     *float64  `json:"numeric_score,omitempty"`
	MaxScore         *float64  `json:"max_score,omitempty"`
	SimilarityScore  *float64  `json:"similarity_score,omitempty"`
	ProcessingTimeMs int       `json:"processing_time_ms"`
	CompletedAt      time.Time `json:"completed_at"`
}

type AssessmentFailedEvent struct {
	RecordID string    `json:"record_id"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}
