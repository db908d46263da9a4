package httpd

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/gradecraft/assessment-service/internal/service"
	"github.com/gradecraft/assessment-service/internal/worker"
)

type Handler struct {
	assessmentService service.AssessmentService
	worker            worker.AssessmentWorker
	logger            zerolog.Logger
}

func NewHandler(
	assessmentService service.AssessmentService,
	worker worker.AssessmentWorker,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		assessmentService: assessmentService,
		worker:            worker,
		logger:            logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	// Health check
	router.Get("/health", h.HealthCheck)
	router.Get("/status", h.GetServiceStatus)

	// Versioned API
	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/submissions", func(r chi.Router) {
			r.Post("/", h.Submit)
			r.Post("/async", h.SubmitAsync)
		})

		api.Route("/assessments", func(r chi.Router) {
			r.Get("/{record_id}", h.GetAssessment)
			r.Get("/assignment/{assignment_id}", h.ListByAssignment)
			r.Get("/student/{student_id}", h.ListByStudent)
		})
	})
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getPagination(r *http.Request) (limit, offset, page int) {
	page = getIntQueryParam(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit = getIntQueryParam(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return limit, (page - 1) * limit, page
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, http.StatusOK, response)
}
