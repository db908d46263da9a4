package httpd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradecraft/assessment-service/internal/models"
	"github.com/gradecraft/assessment-service/internal/service"
)

type fakeAssessmentService struct {
	record  *models.AssessmentRecord
	asyncID string
	err     error
}

func (f *fakeAssessmentService) Assess(ctx context.Context, req *models.SubmitRequest) (*models.AssessmentRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

func (f *fakeAssessmentService) AssessAsync(ctx context.Context, req *models.SubmitRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.asyncID, nil
}

func (f *fakeAssessmentService) ProcessSubmission(ctx context.Context, record *models.AssessmentRecord, raw []byte, referenceIDs []string) error {
	return nil
}

func (f *fakeAssessmentService) GetAssessment(ctx context.Context, id string) (*models.AssessmentRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

func (f *fakeAssessmentService) ListByAssignment(ctx context.Context, assignmentID string, limit, offset int) ([]models.AssessmentRecord, int, error) {
	if f.record == nil {
		return nil, 0, nil
	}
	return []models.AssessmentRecord{*f.record}, 1, nil
}

func (f *fakeAssessmentService) ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]models.AssessmentRecord, int, error) {
	if f.record == nil {
		return nil, 0, nil
	}
	return []models.AssessmentRecord{*f.record}, 1, nil
}

func (f *fakeAssessmentService) GetServiceStatus(ctx context.Context) (*models.HealthCheckResponse, error) {
	return &models.HealthCheckResponse{Status: "healthy", Database: true, Timestamp: time.Now()}, nil
}

var _ service.AssessmentService = (*fakeAssessmentService)(nil)

func newTestRouter(svc service.AssessmentService) *chi.Mux {
	handler := NewHandler(svc, nil, zerolog.Nop())
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func completedRecord() *models.AssessmentRecord {
	now := time.Now()
	return &models.AssessmentRecord{
		ID: "8c2f81d1-45ef-4a2e-b0a3-0f1c9e2d7a11",
		Submission: models.Submission{
			ID:           "8c2f81d1-45ef-4a2e-b0a3-0f1c9e2d7a11",
			StudentID:    "student-1",
			AssignmentID: "assignment-1",
			SourceFormat: models.SourceFormatText,
		},
		Status:            models.StatusComplete,
		OriginalityReport: &models.OriginalityReport{SimilarityScore: 0.12},
		GradingResult:     &models.GradingResult{NumericScore: 87.5, MaxScore: 100},
		CreatedAt:         now,
		CompletedAt:       &now,
	}
}

func validSubmitBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(models.SubmitRequest{
		StudentID:    "student-1",
		AssignmentID: "assignment-1",
		Content:      "The mitochondria is the powerhouse of the cell.",
		Format:       "text",
		Rubric: models.Rubric{Criteria: []models.Criterion{
			{Name: "Accuracy", MaxPoints: 100},
		}},
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestSubmit_ReturnsAssessment(t *testing.T) {
	router := newTestRouter(&fakeAssessmentService{record: completedRecord()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/", validSubmitBody(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool                         `json:"success"`
		Data    models.GetAssessmentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "complete", resp.Data.Status)
	require.NotNil(t, resp.Data.GradingResult)
	assert.Equal(t, 87.5, resp.Data.GradingResult.NumericScore)
}

func TestSubmit_RejectsMissingFields(t *testing.T) {
	router := newTestRouter(&fakeAssessmentService{record: completedRecord()})

	body, _ := json.Marshal(map[string]interface{}{
		"student_id": "student-1",
		"format":     "text",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_RejectsEmptyRubric(t *testing.T) {
	router := newTestRouter(&fakeAssessmentService{record: completedRecord()})

	body, _ := json.Marshal(map[string]interface{}{
		"student_id":    "student-1",
		"assignment_id": "assignment-1",
		"content":       "text",
		"format":        "text",
		"rubric":        map[string]interface{}{"criteria": []interface{}{}},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_InfrastructureFailureReturns500(t *testing.T) {
	router := newTestRouter(&fakeAssessmentService{err: errors.New("failed to store submission: connection refused")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/", validSubmitBody(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSubmit_ServiceValidationFailureReturns400(t *testing.T) {
	svcErr := fmt.Errorf("%w: unsupported format %q", service.ErrInvalidRequest, "docx")
	router := newTestRouter(&fakeAssessmentService{err: svcErr})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/", validSubmitBody(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitAsync_ReturnsAccepted(t *testing.T) {
	router := newTestRouter(&fakeAssessmentService{asyncID: "record-123"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/async", validSubmitBody(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		Data models.SubmitAsyncResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "record-123", resp.Data.RecordID)
	assert.Equal(t, "/api/v1/assessments/record-123", resp.Data.StatusURL)
}

func TestGetAssessment_NotFound(t *testing.T) {
	router := newTestRouter(&fakeAssessmentService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assessments/8c2f81d1-45ef-4a2e-b0a3-0f1c9e2d7a11", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAssessment_Found(t *testing.T) {
	router := newTestRouter(&fakeAssessmentService{record: completedRecord()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assessments/8c2f81d1-45ef-4a2e-b0a3-0f1c9e2d7a11", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.GetAssessmentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "8c2f81d1-45ef-4a2e-b0a3-0f1c9e2d7a11", resp.Data.RecordID)
}

func TestListByAssignment_Paginates(t *testing.T) {
	router := newTestRouter(&fakeAssessmentService{record: completedRecord()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assessments/assignment/assignment-1?page=1&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.ListAssessmentsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Total)
	assert.Len(t, resp.Data.Assessments, 1)
	assert.Equal(t, 10, resp.Data.Limit)
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&fakeAssessmentService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
