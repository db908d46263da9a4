package grader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradecraft/assessment-service/internal/models"
)

func testSubmission() models.Submission {
	return models.Submission{
		ID:           "sub-1",
		StudentID:    "student-1",
		AssignmentID: "assignment-1",
		RawText:      "The mitochondria is the powerhouse of the cell.",
		SourceFormat: models.SourceFormatText,
	}
}

func singleCriterionRubric() models.Rubric {
	return models.Rubric{Criteria: []models.Criterion{
		{Name: "Quality", MaxPoints: 10},
	}}
}

func chatReply(content string) string {
	payload := map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		Model:       "test-model",
		Temperature: 0.1,
		Timeout:     2 * time.Second,
		MaxRetries:  2,
		Backoff:     BackoffFixed,
		RetryDelay:  time.Millisecond,
	}
}

func TestGrade_Success(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatReply("SCORE[Quality]: 8\nFEEDBACK[Quality]: Concise and correct.\nOVERALL: Good answer.")))
	}))
	defer server.Close()

	g := NewLLMGrader(testConfig(server.URL), zerolog.Nop())

	result, err := g.Grade(context.Background(), testSubmission(), singleCriterionRubric())
	require.NoError(t, err)

	assert.Equal(t, 8.0, result.NumericScore)
	assert.Equal(t, 10.0, result.MaxScore)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestGrade_RetriesTransportFailuresThenSucceeds(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(chatReply("SCORE[Quality]: 7")))
	}))
	defer server.Close()

	g := NewLLMGrader(testConfig(server.URL), zerolog.Nop())

	result, err := g.Grade(context.Background(), testSubmission(), singleCriterionRubric())
	require.NoError(t, err)
	assert.Equal(t, 7.0, result.NumericScore)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestGrade_ExhaustsRetriesOnServerFailure(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	g := NewLLMGrader(testConfig(server.URL), zerolog.Nop())

	_, err := g.Grade(context.Background(), testSubmission(), singleCriterionRubric())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	// MaxRetries=2 means three attempts in total.
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestGrade_MalformedResponseNotRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Write([]byte(chatReply("I think this deserves a good grade but I will not use your format.")))
	}))
	defer server.Close()

	g := NewLLMGrader(testConfig(server.URL), zerolog.Nop())

	_, err := g.Grade(context.Background(), testSubmission(), singleCriterionRubric())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestGrade_ClientErrorNotRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	g := NewLLMGrader(testConfig(server.URL), zerolog.Nop())

	_, err := g.Grade(context.Background(), testSubmission(), singleCriterionRubric())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestGrade_CancelledContextAbortsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RetryDelay = time.Second
	g := NewLLMGrader(cfg, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := g.Grade(ctx, testSubmission(), singleCriterionRubric())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestStaticGrader_Deterministic(t *testing.T) {
	g := NewStaticGrader(0.85, zerolog.Nop())

	first, err := g.Grade(context.Background(), testSubmission(), twoCriterionRubric())
	require.NoError(t, err)
	second, err := g.Grade(context.Background(), testSubmission(), twoCriterionRubric())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.InDelta(t, 85.0, first.NumericScore, 0.001)
	assert.LessOrEqual(t, first.NumericScore, first.MaxScore)
}
