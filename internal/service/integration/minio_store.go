package integration

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

type MinIOArtifactStore struct {
	client *minio.Client
	bucket string
	region string
	logger zerolog.Logger

	ensureMu      sync.Mutex
	bucketEnsured bool
}

func NewMinIOArtifactStore(cfg config.MinIOConfig, logger zerolog.Logger) (*MinIOArtifactStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &MinIOArtifactStore{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: logger,
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Startup keeps going when MinIO is not ready yet; the bucket is ensured again on demand.
	if err := store.ensureBucket(ctx); err != nil {
		logger.Error().Err(err).
			Str("endpoint", cfg.Endpoint).
			Str("bucket", cfg.Bucket).
			Msg("MinIO not ready during startup")
	} else {
		logger.Info().
			Str("endpoint", cfg.Endpoint).
			Str("bucket", cfg.Bucket).
			Bool("ssl", cfg.UseSSL).
			Msg("Connected to MinIO")
	}

	return store, nil
}

func (s *MinIOArtifactStore) ensureBucket(ctx context.Context) error {
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()
	if s.bucketEnsured {
		return nil
	}

	backoff := 500 * time.Millisecond
	for {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err == nil && !exists {
			err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
			if err == nil {
				s.logger.Info().Str("bucket", s.bucket).Msg("Created new bucket")
			}
		}
		if err == nil {
			s.bucketEnsured = true
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("minio not ready: %w", err)
		case <-time.After(backoff):
		}
	}
}

func (s *MinIOArtifactStore) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("%d/%02d/%s", now.Year(), now.Month(), objectKey(name))

	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}

	s.logger.Debug().
		Str("bucket", s.bucket).
		Str("key", key).
		Str("etag", info.ETag).
		Int64("size", info.Size).
		Msg("Artifact uploaded to MinIO")

	return key, nil
}

func (s *MinIOArtifactStore) Open(ctx context.Context, handle string) (io.ReadCloser, int64, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, 0, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, handle, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get artifact: %w", err)
	}

	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, 0, ErrArtifactNotFound
		}
		return nil, 0, fmt.Errorf("failed to stat artifact: %w", err)
	}

	return obj, stat.Size, nil
}
