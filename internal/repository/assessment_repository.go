package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/gradecraft/assessment-service/internal/models"
)

type AssessmentRepository interface {
	Create(ctx context.Context, record *models.AssessmentRecord) error
	GetByID(ctx context.Context, id string) (*models.AssessmentRecord, error)
	GetByAssignmentID(ctx context.Context, assignmentID string, limit, offset int) ([]models.AssessmentRecord, int, error)
	GetByStudentID(ctx context.Context, studentID string, limit, offset int) ([]models.AssessmentRecord, int, error)
	Update(ctx context.Context, record *models.AssessmentRecord) error
	UpdateStatus(ctx context.Context, id string, status models.AssessmentStatus) error
	GetByStatus(ctx context.Context, status models.AssessmentStatus, limit int) ([]models.AssessmentRecord, error)
	Exists(ctx context.Context, id string) (bool, error)
	Ping(ctx context.Context) error
}

type assessmentRepository struct {
	*PostgresRepository
}

func NewAssessmentRepository(db *sql.DB, logger zerolog.Logger) AssessmentRepository {
	return &assessmentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const assessmentColumns = `
	id, student_id, assignment_id, source_format, raw_object_key, status,
	failure_reason, rubric, originality_report, grading_result, warnings,
	processing_time_ms, created_at, started_at, completed_at, updated_at
`

func (r *assessmentRepository) Create(ctx context.Context, record *models.AssessmentRecord) error {
	query := `
		INSERT INTO assessments (` + assessmentColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	rubricJSON, reportJSON, resultJSON, err := marshalAssessmentBlobs(record)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.Submission.StudentID,
		record.Submission.AssignmentID,
		record.Submission.SourceFormat,
		record.RawObjectKey,
		record.Status,
		record.FailureReason,
		rubricJSON,
		reportJSON,
		resultJSON,
		pq.Array(record.Warnings),
		record.ProcessingTimeMs,
		record.CreatedAt,
		record.StartedAt,
		record.CompletedAt,
		record.UpdatedAt,
	)

	return err
}

func (r *assessmentRepository) GetByID(ctx context.Context, id string) (*models.AssessmentRecord, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	record, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *assessmentRepository) GetByAssignmentID(ctx context.Context, assignmentID string, limit, offset int) ([]models.AssessmentRecord, int, error) {
	return r.list(ctx, "assignment_id", assignmentID, limit, offset)
}

func (r *assessmentRepository) GetByStudentID(ctx context.Context, studentID string, limit, offset int) ([]models.AssessmentRecord, int, error) {
	return r.list(ctx, "student_id", studentID, limit, offset)
}

func (r *assessmentRepository) list(ctx context.Context, column, value string, limit, offset int) ([]models.AssessmentRecord, int, error) {
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM assessments WHERE %s = $1`, column)

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, value).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT `+assessmentColumns+`
		FROM assessments
		WHERE %s = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, column)

	rows, err := r.db.QueryContext(ctx, query, value, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []models.AssessmentRecord
	for rows.Next() {
		record, err := scanAssessment(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *record)
	}

	return records, total, rows.Err()
}

func (r *assessmentRepository) Update(ctx context.Context, record *models.AssessmentRecord) error {
	query := `
		UPDATE assessments
		SET status = $1,
			failure_reason = $2,
			originality_report = $3,
			grading_result = $4,
			warnings = $5,
			processing_time_ms = $6,
			started_at = $7,
			completed_at = $8,
			updated_at = $9
		WHERE id = $10
	`

	_, reportJSON, resultJSON, err := marshalAssessmentBlobs(record)
	if err != nil {
		return err
	}

	record.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		record.Status,
		record.FailureReason,
		reportJSON,
		resultJSON,
		pq.Array(record.Warnings),
		record.ProcessingTimeMs,
		record.StartedAt,
		record.CompletedAt,
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("assessment %s not found", record.ID)
	}

	return nil
}

func (r *assessmentRepository) UpdateStatus(ctx context.Context, id string, status models.AssessmentStatus) error {
	query := `
		UPDATE assessments
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("assessment %s not found", id)
	}

	return nil
}

func (r *assessmentRepository) GetByStatus(ctx context.Context, status models.AssessmentStatus, limit int) ([]models.AssessmentRecord, error) {
	query := `
		SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.AssessmentRecord
	for rows.Next() {
		record, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

func (r *assessmentRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM assessments WHERE id = $1)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(&exists)
	return exists, err
}

func marshalAssessmentBlobs(record *models.AssessmentRecord) (rubric, report, result []byte, err error) {
	rubric, err = json.Marshal(record.Rubric)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal rubric: %w", err)
	}

	if record.OriginalityReport != nil {
		report, err = json.Marshal(record.OriginalityReport)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal originality report: %w", err)
		}
	}

	if record.GradingResult != nil {
		result, err = json.Marshal(record.GradingResult)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal grading result: %w", err)
		}
	}

	return rubric, report, result, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssessment(row rowScanner) (*models.AssessmentRecord, error) {
	record := &models.AssessmentRecord{}
	var rubricJSON []byte
	var reportJSON, resultJSON []byte
	var failureReason sql.NullString
	var rawObjectKey sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&record.ID,
		&record.Submission.StudentID,
		&record.Submission.AssignmentID,
		&record.Submission.SourceFormat,
		&rawObjectKey,
		&record.Status,
		&failureReason,
		&rubricJSON,
		&reportJSON,
		&resultJSON,
		pq.Array(&record.Warnings),
		&record.ProcessingTimeMs,
		&record.CreatedAt,
		&startedAt,
		&completedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Submission.ID = record.ID
	record.FailureReason = failureReason.String
	record.RawObjectKey = rawObjectKey.String
	if startedAt.Valid {
		record.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		record.CompletedAt = &completedAt.Time
	}

	if err := json.Unmarshal(rubricJSON, &record.Rubric); err != nil {
		return nil, fmt.Errorf("unmarshal rubric: %w", err)
	}
	if len(reportJSON) > 0 {
		record.OriginalityReport = &models.OriginalityReport{}
		if err := json.Unmarshal(reportJSON, record.OriginalityReport); err != nil {
			return nil, fmt.Errorf("unmarshal originality report: %w", err)
		}
	}
	if len(resultJSON) > 0 {
		record.GradingResult = &models.GradingResult{}
		if err := json.Unmarshal(resultJSON, record.GradingResult); err != nil {
			return nil, fmt.Errorf("unmarshal grading result: %w", err)
		}
	}

	return record, nil
}
