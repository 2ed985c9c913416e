package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/prepflow/backend/internal/infrastructure/config"
)

func TestNewS3AuditStore_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3AuditStore(nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			AccessKey: "test-key",
			SecretKey: "test-secret",
		}
		_, err := NewS3AuditStore(cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing credentials returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
		}
		_, err := NewS3AuditStore(cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "credentials are required")
	})

	t.Run("valid config creates store", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:       "audit-bucket",
			AccessKey:    "test-key",
			SecretKey:    "test-secret",
			Endpoint:     "http://localhost:9000",
			UsePathStyle: true,
		}
		store, err := NewS3AuditStore(cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NotNil(t, store)
		assert.Equal(t, "audit-bucket", store.bucket)
	})

	t.Run("nil logger falls back to nop", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "audit-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
			Endpoint:  "localhost:9000",
		}
		store, err := NewS3AuditStore(cfg, nil)
		require.NoError(t, err)
		require.NotNil(t, store.logger)
	})

	t.Run("adds https prefix when SSL enabled", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "audit-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
			Endpoint:  "localhost:9000",
			UseSSL:    true,
		}
		store, err := NewS3AuditStore(cfg, nil)
		require.NoError(t, err)
		require.NotNil(t, store)
	})
}

func TestNoopAuditStore(t *testing.T) {
	location, err := NoopAuditStore{}.PutSubmissionRecord(
		context.Background(), uuid.New(), uuid.New(), []byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, location)
}
