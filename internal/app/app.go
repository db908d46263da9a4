package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/gradecraft/assessment-service/internal/config"
	"github.com/gradecraft/assessment-service/internal/delivery/httpd"
	"github.com/gradecraft/assessment-service/internal/grader"
	"github.com/gradecraft/assessment-service/internal/normalizer"
	"github.com/gradecraft/assessment-service/internal/originality"
	"github.com/gradecraft/assessment-service/internal/refstore"
	"github.com/gradecraft/assessment-service/internal/repository"
	"github.com/gradecraft/assessment-service/internal/service"
	"github.com/gradecraft/assessment-service/internal/worker"
)

type App struct {
	server           *http.Server
	logger           zerolog.Logger
	config           *config.Config
	db               *sql.DB
	assessmentWorker worker.AssessmentWorker
	rabbitMQRepo     repository.RabbitMQRepository
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	rabbitMQRepo, err := repository.NewRabbitMQRepository(cfg.RabbitMQ.URL, log)
	if err != nil {
		return nil, err
	}

	if err := rabbitMQRepo.SetupQueue(
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.QueueName,
		cfg.RabbitMQ.SubmissionRoutingKey,
	); err != nil {
		return nil, err
	}

	objects, err := refstore.NewMinIOStore(refstore.MinIOConfig{
		Endpoint:         cfg.MinIO.Endpoint,
		AccessKey:        cfg.MinIO.AccessKey,
		SecretKey:        cfg.MinIO.SecretKey,
		ReferenceBucket:  cfg.MinIO.ReferenceBucket,
		SubmissionBucket: cfg.MinIO.SubmissionBucket,
		Region:           cfg.MinIO.Region,
		UseSSL:           cfg.MinIO.UseSSL,
		ConnectTimeout:   cfg.MinIO.ConnectTimeout,
	}, log)
	if err != nil {
		return nil, err
	}

	assessmentRepo := repository.NewAssessmentRepository(db, log)
	referenceRepo := repository.NewReferenceRepository(db, log)

	scorer, err := originality.NewScorer(objects, log, originality.ScorerConfig{
		SimilarityMetric:    cfg.Originality.SimilarityMetric,
		SimilarityAggregate: cfg.Originality.SimilarityAggregate,
		TopK:                cfg.Originality.TopK,
		MatchThreshold:      cfg.Originality.MatchThreshold,
		PerplexityWeight:    cfg.Originality.PerplexityWeight,
		BurstinessWeight:    cfg.Originality.BurstinessWeight,
		PerplexityNorm:      cfg.Originality.PerplexityNorm,
		BurstinessNorm:      cfg.Originality.BurstinessNorm,
	})
	if err != nil {
		return nil, err
	}

	var grd grader.Grader
	switch cfg.Grader.Mode {
	case "static":
		grd = grader.NewStaticGrader(cfg.Grader.StaticRatio, log)
	default:
		grd = grader.NewLLMGrader(grader.Config{
			BaseURL:     cfg.Grader.BaseURL,
			APIKey:      cfg.Grader.APIKey,
			Model:       cfg.Grader.Model,
			Temperature: cfg.Grader.Temperature,
			Timeout:     cfg.Grader.Timeout,
			MaxRetries:  cfg.Grader.MaxRetries,
			Backoff:     cfg.Grader.Backoff,
			RetryDelay:  cfg.Grader.RetryDelay,
		}, log)
	}

	assessmentService := service.NewAssessmentService(
		assessmentRepo,
		referenceRepo,
		objects,
		rabbitMQRepo,
		normalizer.New(log),
		scorer,
		grd,
		log,
		service.ServiceConfig{
			Exchange:             cfg.RabbitMQ.Exchange,
			SubmissionRoutingKey: cfg.RabbitMQ.SubmissionRoutingKey,
			CompletedRoutingKey:  cfg.RabbitMQ.CompletedRoutingKey,
			FailedRoutingKey:     cfg.RabbitMQ.FailedRoutingKey,
			PipelineTimeout:      cfg.Pipeline.Timeout,
		},
	)

	workerPool := worker.NewWorkerPool(cfg.Pipeline.MaxWorkers, log)

	assessmentWorker := worker.NewAssessmentWorker(
		workerPool,
		rabbitMQRepo,
		assessmentRepo,
		assessmentService,
		objects,
		log,
		worker.WorkerConfig{
			QueueName:   cfg.RabbitMQ.QueueName,
			ConsumerTag: cfg.RabbitMQ.ConsumerTag,
			JobTimeout:  cfg.Pipeline.JobTimeout,
		},
	)

	handler := httpd.NewHandler(
		assessmentService,
		assessmentWorker,
		log,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:           server,
		logger:           log,
		config:           cfg,
		db:               db,
		assessmentWorker: assessmentWorker,
		rabbitMQRepo:     rabbitMQRepo,
	}, nil
}

func (a *App) Run() error {
	ctx := context.Background()
	if err := a.assessmentWorker.Start(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to start assessment worker")
		return err
	}

	a.logger.Info().Msgf("Starting assessment service on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down assessment service...")

	if err := a.assessmentWorker.Stop(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to stop assessment worker")
	}

	if a.rabbitMQRepo != nil {
		if err := a.rabbitMQRepo.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
		return err
	}

	a.logger.Info().Msg("Assessment service stopped")
	return nil
}
