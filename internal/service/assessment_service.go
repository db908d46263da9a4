package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gradecraft/assessment-service/internal/grader"
	"github.com/gradecraft/assessment-service/internal/models"
	"github.com/gradecraft/assessment-service/internal/normalizer"
	"github.com/gradecraft/assessment-service/internal/originality"
	"github.com/gradecraft/assessment-service/internal/repository"
	"github.com/gradecraft/assessment-service/pkg/utils"
)

// ErrInvalidRequest marks rejections caused by the request itself, as
// opposed to storage or broker failures. Handlers map it to 400.
var ErrInvalidRequest = errors.New("invalid request")

// SubmissionStore is the object-store handle the service needs for raw
// submission bytes. Satisfied by refstore.MinIOStore.
type SubmissionStore interface {
	PutSubmission(ctx context.Context, key string, raw []byte) error
	GetSubmission(ctx context.Context, key string) ([]byte, error)
	Ping(ctx context.Context) error
}

// EventPublisher publishes lifecycle events. Satisfied by
// repository.RabbitMQRepository.
type EventPublisher interface {
	PublishEvent(ctx context.Context, exchange, routingKey string, event interface{}) error
	IsClosed() bool
}

type AssessmentService interface {
	Assess(ctx context.Context, req *models.SubmitRequest) (*models.AssessmentRecord, error)
	AssessAsync(ctx context.Context, req *models.SubmitRequest) (string, error)
	ProcessSubmission(ctx context.Context, record *models.AssessmentRecord, raw []byte, referenceIDs []string) error
	GetAssessment(ctx context.Context, id string) (*models.AssessmentRecord, error)
	ListByAssignment(ctx context.Context, assignmentID string, limit, offset int) ([]models.AssessmentRecord, int, error)
	ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]models.AssessmentRecord, int, error)
	GetServiceStatus(ctx context.Context) (*models.HealthCheckResponse, error)
}

type ServiceConfig struct {
	Exchange             string
	SubmissionRoutingKey string
	CompletedRoutingKey  string
	FailedRoutingKey     string
	PipelineTimeout      time.Duration
}

type assessmentService struct {
	assessmentRepo repository.AssessmentRepository
	referenceRepo  repository.ReferenceRepository
	objects        SubmissionStore
	publisher      EventPublisher
	norm           normalizer.Normalizer
	scorer         originality.Scorer
	grader         grader.Grader
	logger         zerolog.Logger
	config         ServiceConfig
	startTime      time.Time
}

func NewAssessmentService(
	assessmentRepo repository.AssessmentRepository,
	referenceRepo repository.ReferenceRepository,
	objects SubmissionStore,
	publisher EventPublisher,
	norm normalizer.Normalizer,
	scorer originality.Scorer,
	grd grader.Grader,
	logger zerolog.Logger,
	config ServiceConfig,
) AssessmentService {
	return &assessmentService{
		assessmentRepo: assessmentRepo,
		referenceRepo:  referenceRepo,
		objects:        objects,
		publisher:      publisher,
		norm:           norm,
		scorer:         scorer,
		grader:         grd,
		logger:         logger,
		config:         config,
		startTime:      time.Now(),
	}
}

// Assess runs the full pipeline synchronously and returns the terminal
// record. Pipeline failures surface on the record, not as an error; an
// error return means the request itself could not be accepted.
func (s *assessmentService) Assess(ctx context.Context, req *models.SubmitRequest) (*models.AssessmentRecord, error) {
	raw, format, err := decodeContent(req)
	if err != nil {
		return nil, err
	}

	record, err := s.createRecord(ctx, req, format, raw)
	if err != nil {
		return nil, err
	}

	if s.config.PipelineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.PipelineTimeout)
		defer cancel()
	}

	if err := s.ProcessSubmission(ctx, record, raw, req.ReferenceIDs); err != nil {
		return nil, err
	}

	return record, nil
}

// AssessAsync accepts the submission, stores the raw bytes, and enqueues
// it for the worker pool. Returns the record ID for status polling.
func (s *assessmentService) AssessAsync(ctx context.Context, req *models.SubmitRequest) (string, error) {
	raw, format, err := decodeContent(req)
	if err != nil {
		return "", err
	}

	record, err := s.createRecord(ctx, req, format, raw)
	if err != nil {
		return "", err
	}

	event := models.SubmissionReceivedEvent{
		RecordID:     record.ID,
		StudentID:    record.Submission.StudentID,
		AssignmentID: record.Submission.AssignmentID,
		ObjectKey:    record.RawObjectKey,
		ReferenceIDs: req.ReferenceIDs,
		Timestamp:    time.Now().Unix(),
	}

	if err := s.publisher.PublishEvent(ctx, s.config.Exchange, s.config.SubmissionRoutingKey, event); err != nil {
		record.Status = models.StatusFailed
		record.FailureReason = "failed to enqueue submission"
		now := time.Now()
		record.CompletedAt = &now
		if updateErr := s.assessmentRepo.Update(ctx, record); updateErr != nil {
			s.logger.Error().Err(updateErr).Str("record_id", record.ID).Msg("Failed to mark record failed")
		}
		return "", fmt.Errorf("failed to publish submission event: %w", err)
	}

	s.logger.Info().
		Str("record_id", record.ID).
		Str("assignment_id", record.Submission.AssignmentID).
		Msg("Submission enqueued")

	return record.ID, nil
}

func (s *assessmentService) createRecord(ctx context.Context, req *models.SubmitRequest, format models.SourceFormat, raw []byte) (*models.AssessmentRecord, error) {
	if len(req.Rubric.Criteria) == 0 {
		return nil, fmt.Errorf("%w: rubric must have at least one criterion", ErrInvalidRequest)
	}

	now := time.Now()
	record := &models.AssessmentRecord{
		ID: uuid.New().String(),
		Submission: models.Submission{
			StudentID:    req.StudentID,
			AssignmentID: req.AssignmentID,
			SourceFormat: format,
		},
		Rubric:    req.Rubric,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	record.Submission.ID = record.ID

	objectKey := fmt.Sprintf("%s/%s-%s", req.AssignmentID, record.ID, utils.ContentHash(raw)[:12])
	if err := s.objects.PutSubmission(ctx, objectKey, raw); err != nil {
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}
	record.RawObjectKey = objectKey

	if err := s.assessmentRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create assessment record: %w", err)
	}

	return record, nil
}

// ProcessSubmission drives the record through normalize, originality
// scoring, grading and aggregation. The record is mutated in place and
// persisted at each transition; the returned error covers persistence
// problems only. Stage failures are recorded on the record itself:
// normalization and grading failures are fatal, an originality failure
// degrades the result but the pipeline continues.
func (s *assessmentService) ProcessSubmission(ctx context.Context, record *models.AssessmentRecord, raw []byte, referenceIDs []string) error {
	startTime := time.Now()
	record.StartedAt = &startTime

	s.setStatus(ctx, record, models.StatusNormalizing)

	text, err := s.norm.Normalize(raw, record.Submission.SourceFormat)
	if err != nil {
		return s.fail(ctx, record, startTime, fmt.Sprintf("normalization failed: %v", err))
	}
	record.Submission.RawText = text

	s.setStatus(ctx, record, models.StatusScoringOriginality)

	degraded := false
	refs, err := s.resolveReferences(ctx, record.Submission.AssignmentID, referenceIDs)
	if err != nil {
		s.logger.Error().Err(err).Str("record_id", record.ID).Msg("Failed to resolve reference set")
		record.Warnings = append(record.Warnings, "reference set unavailable, originality scoring skipped")
		degraded = true
	} else {
		report, warnings, scoreErr := s.scorer.Score(ctx, text, refs)
		record.Warnings = append(record.Warnings, warnings...)
		if scoreErr != nil {
			s.logger.Error().Err(scoreErr).Str("record_id", record.ID).Msg("Originality scoring failed")
			record.Warnings = append(record.Warnings, fmt.Sprintf("originality scoring failed: %v", scoreErr))
			degraded = true
		} else {
			record.OriginalityReport = report
		}
	}

	s.setStatus(ctx, record, models.StatusGrading)

	result, err := s.grader.Grade(ctx, record.Submission, record.Rubric)
	if err != nil {
		// The originality report, if any, stays on the record.
		return s.fail(ctx, record, startTime, fmt.Sprintf("grading failed: %v", err))
	}
	record.GradingResult = result

	s.setStatus(ctx, record, models.StatusAggregating)

	now := time.Now()
	record.CompletedAt = &now
	record.ProcessingTimeMs = int(now.Sub(startTime).Milliseconds())
	if degraded {
		record.Status = models.StatusPartialDegraded
	} else {
		record.Status = models.StatusComplete
	}

	if err := s.assessmentRepo.Update(ctx, record); err != nil {
		return fmt.Errorf("failed to persist assessment result: %w", err)
	}

	s.publishCompleted(ctx, record)

	s.logger.Info().
		Str("record_id", record.ID).
		Str("status", record.Status.String()).
		Int("processing_time_ms", record.ProcessingTimeMs).
		Msg("Assessment completed")

	return nil
}

func (s *assessmentService) resolveReferences(ctx context.Context, assignmentID string, referenceIDs []string) ([]string, error) {
	if len(referenceIDs) > 0 {
		return referenceIDs, nil
	}

	docs, err := s.referenceRepo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ObjectKey)
	}
	return ids, nil
}

func (s *assessmentService) setStatus(ctx context.Context, record *models.AssessmentRecord, status models.AssessmentStatus) {
	record.Status = status
	if err := s.assessmentRepo.UpdateStatus(ctx, record.ID, status); err != nil {
		s.logger.Error().Err(err).
			Str("record_id", record.ID).
			Str("status", status.String()).
			Msg("Failed to persist status transition")
	}
}

func (s *assessmentService) fail(ctx context.Context, record *models.AssessmentRecord, startTime time.Time, reason string) error {
	now := time.Now()
	record.Status = models.StatusFailed
	record.FailureReason = reason
	record.CompletedAt = &now
	record.ProcessingTimeMs = int(now.Sub(startTime).Milliseconds())

	s.logger.Error().
		Str("record_id", record.ID).
		Str("reason", reason).
		Msg("Assessment failed")

	if err := s.assessmentRepo.Update(ctx, record); err != nil {
		return fmt.Errorf("failed to persist failed assessment: %w", err)
	}

	event := models.AssessmentFailedEvent{
		RecordID: record.ID,
		Reason:   reason,
		FailedAt: now,
	}
	if err := s.publisher.PublishEvent(ctx, s.config.Exchange, s.config.FailedRoutingKey, event); err != nil {
		s.logger.Error().Err(err).Str("record_id", record.ID).Msg("Failed to publish failure event")
	}

	return nil
}

func (s *assessmentService) publishCompleted(ctx context.Context, record *models.AssessmentRecord) {
	event := models.AssessmentCompletedEvent{
		RecordID:         record.ID,
		StudentID:        record.Submission.StudentID,
		AssignmentID:     record.Submission.AssignmentID,
		Status:           record.Status.String(),
		ProcessingTimeMs: record.ProcessingTimeMs,
		CompletedAt:      *record.CompletedAt,
	}
	if record.GradingResult != nil {
		event.NumericScore = &record.GradingResult.NumericScore
		event.MaxScore = &record.GradingResult.MaxScore
	}
	if record.OriginalityReport != nil {
		event.SimilarityScore = &record.OriginalityReport.SimilarityScore
	}

	if err := s.publisher.PublishEvent(ctx, s.config.Exchange, s.config.CompletedRoutingKey, event); err != nil {
		s.logger.Error().Err(err).Str("record_id", record.ID).Msg("Failed to publish completion event")
	}
}

func (s *assessmentService) GetAssessment(ctx context.Context, id string) (*models.AssessmentRecord, error) {
	if !utils.ValidateUUID(id) {
		return nil, fmt.Errorf("%w: invalid record id", ErrInvalidRequest)
	}
	return s.assessmentRepo.GetByID(ctx, id)
}

func (s *assessmentService) ListByAssignment(ctx context.Context, assignmentID string, limit, offset int) ([]models.AssessmentRecord, int, error) {
	return s.assessmentRepo.GetByAssignmentID(ctx, assignmentID, limit, offset)
}

func (s *assessmentService) ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]models.AssessmentRecord, int, error) {
	return s.assessmentRepo.GetByStudentID(ctx, studentID, limit, offset)
}

func (s *assessmentService) GetServiceStatus(ctx context.Context) (*models.HealthCheckResponse, error) {
	resp := &models.HealthCheckResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	}

	if err := s.assessmentRepo.Ping(ctx); err != nil {
		resp.Status = "degraded"
	} else {
		resp.Database = true
	}

	if err := s.objects.Ping(ctx); err != nil {
		resp.Status = "degraded"
	} else {
		resp.ObjectStore = true
	}

	if s.publisher.IsClosed() {
		resp.Status = "degraded"
	} else {
		resp.RabbitMQ = true
	}

	return resp, nil
}

func decodeContent(req *models.SubmitRequest) ([]byte, models.SourceFormat, error) {
	format := models.SourceFormat(req.Format)
	switch format {
	case models.SourceFormatText, models.SourceFormatPDF:
	default:
		return nil, "", fmt.Errorf("%w: unsupported format %q", ErrInvalidRequest, req.Format)
	}

	var raw []byte
	switch {
	case req.ContentBase64 != "":
		decoded, err := base64.StdEncoding.DecodeString(req.ContentBase64)
		if err != nil {
			return nil, "", fmt.Errorf("%w: invalid base64 content: %v", ErrInvalidRequest, err)
		}
		raw = decoded
	case req.Content != "":
		raw = []byte(req.Content)
	default:
		return nil, "", fmt.Errorf("%w: content is required", ErrInvalidRequest)
	}

	return raw, format, nil
}
