package httpd

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gradecraft/assessment-service/internal/models"
	"github.com/gradecraft/assessment-service/internal/service"
)

func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "record_id")
	if recordID == "" {
		writeError(w, http.StatusBadRequest, "Record ID is required")
		return
	}

	record, err := h.assessmentService.GetAssessment(r.Context(), recordID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			h.logger.Error().Err(err).Str("record_id", recordID).Msg("Failed to load assessment")
			writeError(w, http.StatusInternalServerError, "Failed to load assessment")
		}
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "Assessment not found")
		return
	}

	writeSuccess(w, record.ToResponse())
}

func (h *Handler) ListByAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "assignment_id")
	if assignmentID == "" {
		writeError(w, http.StatusBadRequest, "Assignment ID is required")
		return
	}

	limit, offset, page := getPagination(r)

	records, total, err := h.assessmentService.ListByAssignment(r.Context(), assignmentID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Str("assignment_id", assignmentID).Msg("Failed to list assessments")
		writeError(w, http.StatusInternalServerError, "Failed to list assessments")
		return
	}

	writeSuccess(w, listResponse(records, total, page, limit))
}

func (h *Handler) ListByStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "student_id")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "Student ID is required")
		return
	}

	limit, offset, page := getPagination(r)

	records, total, err := h.assessmentService.ListByStudent(r.Context(), studentID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Str("student_id", studentID).Msg("Failed to list assessments")
		writeError(w, http.StatusInternalServerError, "Failed to list assessments")
		return
	}

	writeSuccess(w, listResponse(records, total, page, limit))
}

func listResponse(records []models.AssessmentRecord, total, page, limit int) models.ListAssessmentsResponse {
	responses := make([]models.GetAssessmentResponse, 0, len(records))
	for i := range records {
		responses = append(responses, records[i].ToResponse())
	}

	return models.ListAssessmentsResponse{
		Assessments: responses,
		Total:       total,
		Page:        page,
		Limit:       limit,
	}
}
