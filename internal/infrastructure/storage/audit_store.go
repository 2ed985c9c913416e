// Package storage provides object storage adapters.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	infraconfig "github.com/prepflow/backend/internal/infrastructure/config"
)

// S3AuditStore archives submission audit documents in an S3-compatible
// bucket (AWS S3, MinIO, RustFS, ...). Documents are immutable once
// written; the object key encodes tenant, request, and submission time.
type S3AuditStore struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// NewS3AuditStore creates a new S3AuditStore from configuration.
func NewS3AuditStore(cfg *infraconfig.StorageConfig, logger *zap.Logger) (*S3AuditStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("storage credentials are required")
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3AuditStore{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// PutSubmissionRecord writes one audit document and returns its location.
func (s *S3AuditStore) PutSubmissionRecord(ctx context.Context, tenantID, requestID uuid.UUID, doc []byte) (string, error) {
	key := fmt.Sprintf("submissions/%s/%s/%s.json",
		tenantID, requestID, time.Now().UTC().Format("20060102T150405Z"))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(doc),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive submission record: %w", err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	s.logger.Debug("submission record archived", zap.String("location", location))
	return location, nil
}

// NoopAuditStore discards audit documents. Used when object storage is not
// configured; submission still succeeds, without an archived record.
type NoopAuditStore struct{}

// PutSubmissionRecord implements the audit contract without persisting.
func (NoopAuditStore) PutSubmissionRecord(ctx context.Context, tenantID, requestID uuid.UUID, doc []byte) (string, error) {
	return "", nil
}
