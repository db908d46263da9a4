package models

import "time"

// Data Transfer Objects

type SubmitRequest struct {
	StudentID     string   `json:"student_id" validate:"required"`
	AssignmentID  string   `json:"assignment_id" validate:"required"`
	Content       string   `json:"content,omitempty"`
	ContentBase64 string   `json:"content_base64,omitempty"`
	Format        string   `json:"format" validate:"required,oneof=text pdf"`
	Rubric        Rubric   `json:"rubric" validate:"required"`
	ReferenceIDs  []string `json:"reference_ids,omitempty"`
}

type SubmitAsyncResponse struct {
	RecordID  string `json:"record_id"`
	Status    string `json:"status"`
	StatusURL string `json:"status_url"`
}

type GetAssessmentResponse struct {
	RecordID          string             `json:"record_id"`
	StudentID         string             `json:"student_id"`
	AssignmentID      string             `json:"assignment_id"`
	Status            string             `json:"status"`
	FailureReason     string             `json:"failure_reason,omitempty"`
	Warnings          []string           `json:"warnings,omitempty"`
	OriginalityReport *OriginalityReport `json:"originality_report,omitempty"`
	GradingResult     *GradingResult     `json:"grading_result,omitempty"`
	ProcessingTimeMs  int                `json:"processing_time_ms"`
	CreatedAt         time.Time          `json:"created_at"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
}

type ListAssessmentsResponse struct {
	Assessments []GetAssessmentResponse `json:"assessments"`
	Total       int                     `json:"total"`
	Page        int                     `json:"page"`
	Limit       int                     `json:"limit"`
}

type HealthCheckResponse struct {
	Status        string    `json:"status"`
	Database      bool      `json:"database"`
	RabbitMQ      bool      `json:"rabbitmq"`
	ObjectStore   bool      `json:"object_store"`
	ActiveWorkers int       `json:"active_workers"`
	QueueLength   int       `json:"queue_length"`
	Uptime        string    `json:"uptime"`
	Timestamp     time.Time `json:"timestamp"`
}

// ToResponse flattens an AssessmentRecord into its API representation.
func (r *AssessmentRecord) ToResponse() GetAssessmentResponse {
	return GetAssessmentResponse{
		RecordID:          r.ID,
		StudentID:         r.Submission.StudentID,
		AssignmentID:      r.Submission.AssignmentID,
		Status:            r.Status.String(),
		FailureReason:     r.FailureReason,
		Warnings:          r.Warnings,
		OriginalityReport: r.OriginalityReport,
		GradingResult:     r.GradingResult,
		ProcessingTimeMs:  r.ProcessingTimeMs,
		CreatedAt:         r.CreatedAt,
		CompletedAt:       r.CompletedAt,
	}
}
