package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/infrastructure/config"
)

// RedisStore keeps the snapshot under a single key without expiry.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore connects using cfg and pings the server.
func NewRedisStore(ctx context.Context, cfg *config.RedisConfig, key string, logger *zap.Logger) (*RedisStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.URL,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	if logger != nil {
		logger.Info("redis snapshot store initialized",
			zap.String("addr", cfg.URL),
			zap.Int("db", cfg.DB),
			zap.String("key", key))
	}
	return NewRedisStoreWithClient(client, key, logger), nil
}

func NewRedisStoreWithClient(client *redis.Client, key string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = "insider:model:snapshot"
	}
	return &RedisStore{client: client, key: key, logger: logger}
}

func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		s.logger.Error("redis snapshot get failed", zap.String("key", s.key), zap.Error(err))
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		s.logger.Error("redis snapshot set failed", zap.String("key", s.key), zap.Error(err))
		return fmt.Errorf("redis set failed: %w", err)
	}
	s.logger.Info("snapshot stored", zap.String("key", s.key), zap.Int("bytes", len(data)))
	return nil
}

func (s *RedisStore) Location() string {
	return fmt.Sprintf("redis://%s/%s", s.client.Options().Addr, s.key)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
