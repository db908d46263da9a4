// Package grader turns a submission and rubric into a GradingResult by
// calling an external generative-language service. The demo variant in
// static.go implements the same interface with canned responses.
package grader

import (
	"context"
	"errors"
	"time"

	"github.com/gradecraft/assessment-service/internal/models"
)

var (
	// ErrMalformedResponse is returned when the grading service's response
	// does not contain parsable score markers for every rubric criterion.
	// Parsing failures are never retried.
	ErrMalformedResponse = errors.New("malformed grading response")

	// ErrServiceUnavailable is returned once transport retries are exhausted.
	ErrServiceUnavailable = errors.New("grading service unavailable")
)

const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

type Grader interface {
	Grade(ctx context.Context, submission models.Submission, rubric models.Rubric) (*models.GradingResult, error)
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	Backoff     string
	RetryDelay  time.Duration
}
