// Package snapshot persists the serialized model state to a file, an S3
// bucket or a Redis key.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/config"
)

// ErrNotFound is returned by Load when no snapshot has been written yet.
var ErrNotFound = errors.New("snapshot: not found")

// Store reads and writes one opaque snapshot blob.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	// Location identifies the blob in logs and run history.
	Location() string
}

const (
	BackendFile  = "file"
	BackendS3    = "s3"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// NewStore builds the backend selected by cfg.Snapshot.Backend. The "none"
// backend returns a nil Store and disables persistence.
func NewStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sc := cfg.Snapshot
	switch sc.Backend {
	case BackendFile, "":
		return NewFileStore(sc.Path, logger), nil
	case BackendS3:
		store, err := NewS3Store(ctx, S3Options{
			Bucket:   sc.Bucket,
			Key:      sc.Key,
			Region:   sc.Region,
			Endpoint: sc.Endpoint,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendRedis:
		store, err := NewRedisStore(ctx, &cfg.Redis, sc.RedisKey, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend: %s", sc.Backend)
	}
}
