package refstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinIOStore serves reference documents and raw submissions out of object
// storage. Reference IDs map directly to object keys in the reference
// bucket.
type MinIOStore struct {
	client           *minio.Client
	referenceBucket  string
	submissionBucket string
	region           string
	logger           zerolog.Logger

	ensureMu      sync.Mutex
	bucketEnsured bool
}

type MinIOConfig struct {
	Endpoint         string
	AccessKey        string
	SecretKey        string
	ReferenceBucket  string
	SubmissionBucket string
	Region           string
	UseSSL           bool
	ConnectTimeout   time.Duration
}

func NewMinIOStore(cfg MinIOConfig, logger zerolog.Logger) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &MinIOStore{
		client:           client,
		referenceBucket:  cfg.ReferenceBucket,
		submissionBucket: cfg.SubmissionBucket,
		region:           cfg.Region,
		logger:           logger,
	}

	// Best-effort bootstrap: the service keeps running if MinIO is not
	// ready at startup and retries on demand.
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := store.ensureBuckets(ctx); err != nil {
		logger.Error().Err(err).
			Str("endpoint", cfg.Endpoint).
			Msg("MinIO not ready during startup; will retry on demand")
	}

	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("reference_bucket", cfg.ReferenceBucket).
		Str("submission_bucket", cfg.SubmissionBucket).
		Bool("ssl", cfg.UseSSL).
		Msg("Connected to MinIO")

	return store, nil
}

func (s *MinIOStore) ensureBuckets(ctx context.Context) error {
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()
	if s.bucketEnsured {
		return nil
	}

	for _, bucket := range []string{s.referenceBucket, s.submissionBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("bucket check failed: %w", err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
			s.logger.Info().Str("bucket", bucket).Msg("Created new bucket")
		}
	}

	s.bucketEnsured = true
	return nil
}

// GetText fetches a reference document by identifier and returns its text.
func (s *MinIOStore) GetText(ctx context.Context, id string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.referenceBucket, id, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrReferenceUnavailable, id, err)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrReferenceUnavailable, id, err)
	}

	s.logger.Debug().
		Str("reference_id", id).
		Int("size", len(content)).
		Msg("Fetched reference document")

	return string(content), nil
}

// PutSubmission stores raw submission bytes; the returned key is recorded
// on the assessment record so async workers can fetch the payload back.
func (s *MinIOStore) PutSubmission(ctx context.Context, key string, raw []byte) error {
	if err := s.ensureBuckets(ctx); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, s.submissionBucket, key, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("failed to store submission: %w", err)
	}

	s.logger.Debug().
		Str("object_key", key).
		Int("size", len(raw)).
		Msg("Stored raw submission")

	return nil
}

// GetSubmission fetches previously stored raw submission bytes.
func (s *MinIOStore) GetSubmission(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.submissionBucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get submission object: %w", err)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read submission object: %w", err)
	}

	return content, nil
}

// Ping checks object-store reachability for health reporting.
func (s *MinIOStore) Ping(ctx context.Context) error {
	_, err := s.client.ListBuckets(ctx)
	return err
}
