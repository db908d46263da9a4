package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gradecraft/assessment-service/internal/models"
)

// maxResponseSize caps the grading service response body.
const maxResponseSize = 10 * 1024 * 1024

type llmGrader struct {
	config Config
	client *http.Client
	logger zerolog.Logger
}

// NewLLMGrader builds the production Grader: a chat-completions client
// with configurable timeout, retry count and backoff strategy. Retries
// apply to transport and 5xx failures only; parsing failures are final.
func NewLLMGrader(config Config, logger zerolog.Logger) Grader {
	return &llmGrader{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (g *llmGrader) Grade(ctx context.Context, submission models.Submission, rubric models.Rubric) (*models.GradingResult, error) {
	if len(rubric.Criteria) == 0 {
		return nil, fmt.Errorf("rubric has no criteria")
	}

	prompt := buildPrompt(submission, rubric)

	content, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result, err := parseResponse(content, rubric)
	if err != nil {
		g.logger.Error().Err(err).
			Str("submission_id", submission.ID).
			Msg("Grading response failed strict parsing")
		return nil, err
	}

	g.logger.Info().
		Str("submission_id", submission.ID).
		Float64("numeric_score", result.NumericScore).
		Float64("max_score", result.MaxScore).
		Msg("Submission graded")

	return result, nil
}

// complete sends the chat-completions request, retrying transport and
// server-side failures up to MaxRetries times.
func (g *llmGrader) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: g.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: g.config.Temperature,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal grading request: %w", err)
	}

	var lastErr error

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := g.backoffDelay(attempt)
			g.logger.Warn().
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("Retrying grading request")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, ctx.Err())
			}
		}

		content, retriable, err := g.doRequest(ctx, payload)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retriable {
			return "", err
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, ctx.Err())
		}
	}

	return "", fmt.Errorf("%w: %d attempts: %v", ErrServiceUnavailable, g.config.MaxRetries+1, lastErr)
}

// doRequest performs one attempt. The bool result reports whether the
// failure may be retried.
func (g *llmGrader) doRequest(ctx context.Context, payload []byte) (string, bool, error) {
	url := g.config.BaseURL + "/v1/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("failed to create grading request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("grading request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", true, fmt.Errorf("failed to read grading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fallthrough to decode
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", true, fmt.Errorf("grading service returned status %d: %s", resp.StatusCode, string(body))
	default:
		return "", false, fmt.Errorf("grading service rejected request with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, fmt.Errorf("%w: undecodable response envelope: %v", ErrMalformedResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("%w: response contains no choices", ErrMalformedResponse)
	}

	return parsed.Choices[0].Message.Content, false, nil
}

func (g *llmGrader) backoffDelay(attempt int) time.Duration {
	delay := g.config.RetryDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	if g.config.Backoff == BackoffExponential {
		for i := 1; i < attempt; i++ {
			delay *= 2
		}
	}

	return delay
}
