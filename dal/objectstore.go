package dal

import (
	"context"
	"fmt"
	"io"

	"jobdispatch-backend/models"
	"jobdispatch-backend/utils/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStoreInterface is the blob storage used for completion reports
type ObjectStoreInterface interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	RemoveObject(ctx context.Context, key string) error
}

type MinioStore struct {
	client *minio.Client
	bucket string
	logger logger.Logger
}

// NewMinioStore creates the client and makes sure the report bucket exists
func NewMinioStore(ctx context.Context, cfg *models.Config, log logger.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.AWSRegion}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		log.Infof("Created report bucket %s", cfg.MinioBucket)
	}

	log.Infof("MinIO client initialized (endpoint=%s, bucket=%s)", cfg.MinioEndpoint, cfg.MinioBucket)
	return &MinioStore{client: client, bucket: cfg.MinioBucket, logger: log}, nil
}

func (s *MinioStore) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.logger.Errorf("Failed to upload %s: %v", key, err)
	}
	return err
}

func (s *MinioStore) RemoveObject(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
