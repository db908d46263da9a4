package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/gradecraft/assessment-service/internal/models"
	"github.com/gradecraft/assessment-service/internal/repository"
	"github.com/gradecraft/assessment-service/internal/service"
)

type AssessmentWorker interface {
	Start(ctx context.Context) error
	Stop() error
	GetStats() WorkerStats
}

type WorkerStats struct {
	ActiveWorkers  int `json:"active_workers"`
	TotalProcessed int `json:"total_processed"`
	FailedJobs     int `json:"failed_jobs"`
	QueueLength    int `json:"queue_length"`
}

type WorkerConfig struct {
	QueueName   string
	ConsumerTag string
	JobTimeout  time.Duration
}

type assessmentWorker struct {
	workerPool        *WorkerPool
	broker            repository.RabbitMQRepository
	assessmentRepo    repository.AssessmentRepository
	assessmentService service.AssessmentService
	objects           service.SubmissionStore
	logger            zerolog.Logger
	config            WorkerConfig
	cancelConsume     context.CancelFunc
	stats             WorkerStats
	statsMutex        sync.RWMutex
	startTime         time.Time
}

func NewAssessmentWorker(
	workerPool *WorkerPool,
	broker repository.RabbitMQRepository,
	assessmentRepo repository.AssessmentRepository,
	assessmentService service.AssessmentService,
	objects service.SubmissionStore,
	logger zerolog.Logger,
	config WorkerConfig,
) AssessmentWorker {
	if config.JobTimeout <= 0 {
		config.JobTimeout = 2 * time.Minute
	}
	return &assessmentWorker{
		workerPool:        workerPool,
		broker:            broker,
		assessmentRepo:    assessmentRepo,
		assessmentService: assessmentService,
		objects:           objects,
		logger:            logger,
		config:            config,
		startTime:         time.Now(),
	}
}

func (w *assessmentWorker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting assessment worker...")

	ctx, w.cancelConsume = context.WithCancel(ctx)

	if err := w.workerPool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	msgs, err := w.broker.Consume(ctx, w.config.QueueName, w.config.ConsumerTag)
	if err != nil {
		return fmt.Errorf("failed to start consuming messages: %w", err)
	}

	go w.processMessages(ctx, msgs)

	w.logger.Info().Str("queue", w.config.QueueName).Msg("Assessment worker started")
	return nil
}

// Stop cancels the consumer before draining the pool so no delivery can
// be submitted to a pool that is shutting down.
func (w *assessmentWorker) Stop() error {
	if w.cancelConsume != nil {
		w.cancelConsume()
	}

	if err := w.workerPool.Stop(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to stop worker pool")
	}

	w.statsMutex.RLock()
	defer w.statsMutex.RUnlock()

	w.logger.Info().
		Int("total_processed", w.stats.TotalProcessed).
		Int("failed_jobs", w.stats.FailedJobs).
		Dur("uptime", time.Since(w.startTime)).
		Msg("Assessment worker stopped")

	return nil
}

func (w *assessmentWorker) processMessages(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopping message processing")
			return
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Warn().Msg("Message channel closed")
				return
			}

			err := w.workerPool.Submit(func() {
				if err := w.processMessage(ctx, msg); err != nil {
					w.logger.Error().Err(err).Msg("Failed to process message")

					w.statsMutex.Lock()
					w.stats.FailedJobs++
					w.statsMutex.Unlock()

					if isPermanentError(err) {
						if ackErr := msg.Ack(false); ackErr != nil {
							w.logger.Error().Err(ackErr).Msg("Failed to ack message")
						}
						return
					}

					if nackErr := msg.Nack(false, true); nackErr != nil {
						w.logger.Error().Err(nackErr).Msg("Failed to nack message")
					}
					return
				}

				if err := msg.Ack(false); err != nil {
					w.logger.Error().Err(err).Msg("Failed to ack message")
				}

				w.statsMutex.Lock()
				w.stats.TotalProcessed++
				w.statsMutex.Unlock()
			})
			if err != nil {
				w.logger.Error().Err(err).Msg("Failed to submit message to worker pool")
				if nackErr := msg.Nack(false, true); nackErr != nil {
					w.logger.Error().Err(nackErr).Msg("Failed to nack message")
				}
			}
		}
	}
}

func (w *assessmentWorker) processMessage(ctx context.Context, msg amqp.Delivery) error {
	var event models.SubmissionReceivedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return permanent(fmt.Errorf("failed to unmarshal event: %w", err))
	}

	if strings.TrimSpace(event.RecordID) == "" {
		return permanent(errors.New("empty record_id"))
	}
	if strings.TrimSpace(event.ObjectKey) == "" {
		return permanent(errors.New("empty object_key"))
	}

	w.logger.Info().
		Str("record_id", event.RecordID).
		Str("assignment_id", event.AssignmentID).
		Msg("Processing submission")

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	record, err := w.assessmentRepo.GetByID(jobCtx, event.RecordID)
	if err != nil {
		return fmt.Errorf("failed to load assessment record: %w", err)
	}
	if record == nil {
		return permanent(fmt.Errorf("assessment record %s not found", event.RecordID))
	}
	if record.Status.Terminal() {
		w.logger.Warn().
			Str("record_id", record.ID).
			Str("status", record.Status.String()).
			Msg("Record already finished, skipping redelivery")
		return nil
	}

	raw, err := w.objects.GetSubmission(jobCtx, event.ObjectKey)
	if err != nil {
		return fmt.Errorf("failed to fetch raw submission: %w", err)
	}

	return w.assessmentService.ProcessSubmission(jobCtx, record, raw, event.ReferenceIDs)
}

func (w *assessmentWorker) GetStats() WorkerStats {
	w.statsMutex.RLock()
	stats := w.stats
	w.statsMutex.RUnlock()

	stats.ActiveWorkers = w.workerPool.GetActiveWorkers()
	stats.QueueLength = w.workerPool.GetQueueLength()

	return stats
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return permanentError{err: err}
}

func isPermanentError(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
