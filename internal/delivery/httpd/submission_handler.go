package httpd

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gradecraft/assessment-service/internal/models"
	"github.com/gradecraft/assessment-service/internal/service"
	"github.com/gradecraft/assessment-service/pkg/utils"
)

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSubmitRequest(w, r)
	if !ok {
		return
	}

	record, err := h.assessmentService.Assess(r.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to accept submission")
		if errors.Is(err, service.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to process submission")
		}
		return
	}

	writeSuccess(w, record.ToResponse())
}

func (h *Handler) SubmitAsync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSubmitRequest(w, r)
	if !ok {
		return
	}

	recordID, err := h.assessmentService.AssessAsync(r.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to enqueue submission")
		if errors.Is(err, service.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to enqueue submission")
		}
		return
	}

	response := models.SubmitAsyncResponse{
		RecordID:  recordID,
		Status:    models.StatusPending.String(),
		StatusURL: "/api/v1/assessments/" + recordID,
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"data":    response,
	})
}

func (h *Handler) decodeSubmitRequest(w http.ResponseWriter, r *http.Request) (*models.SubmitRequest, bool) {
	var req models.SubmitRequest
	if err := utils.ReadJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}

	if strings.TrimSpace(req.StudentID) == "" || strings.TrimSpace(req.AssignmentID) == "" {
		writeError(w, http.StatusBadRequest, "Fields student_id and assignment_id are required")
		return nil, false
	}
	if req.Content == "" && req.ContentBase64 == "" {
		writeError(w, http.StatusBadRequest, "Either content or content_base64 is required")
		return nil, false
	}
	if len(req.Rubric.Criteria) == 0 {
		writeError(w, http.StatusBadRequest, "Rubric must contain at least one criterion")
		return nil, false
	}
	for _, c := range req.Rubric.Criteria {
		if strings.TrimSpace(c.Name) == "" {
			writeError(w, http.StatusBadRequest, "Rubric criteria must be named")
			return nil, false
		}
		if c.MaxPoints <= 0 {
			writeError(w, http.StatusBadRequest, "Rubric criterion max_points must be positive")
			return nil, false
		}
	}

	return &req, true
}
