package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"capture-relay/internal/config"
)

// RedisClient owns the optional redis connection. Client is nil when REDIS_ADDR is unset.
type RedisClient struct {
	Client *redis.Client
	logger *zap.Logger
}

func NewRedisClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) *RedisClient {
	rc := &RedisClient{logger: logger.Named("redis")}
	if cfg.RedisAddr == "" {
		return rc
	}

	rc.Client = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// An unreachable redis only degrades the mirror; captures still flow.
			if err := rc.Client.Ping(ctx).Err(); err != nil {
				rc.logger.Warn("redis not reachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
				return nil
			}
			rc.logger.Info("redis connection established", zap.String("addr", cfg.RedisAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := rc.Client.Close(); err != nil {
				rc.logger.Error("failed to close redis connection", zap.Error(err))
				return err
			}
			return nil
		},
	})
	return rc
}

// RedisStore pushes records onto a list capped at maxEntries, newest first.
type RedisStore struct {
	rdb        redis.Cmdable
	key        string
	maxEntries int64
}

func NewRedisStore(rdb redis.Cmdable, key string, maxEntries int64) *RedisStore {
	return &RedisStore{rdb: rdb, key: key, maxEntries: maxEntries}
}

func (s *RedisStore) Save(ctx context.Context, rec *Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	if s.maxEntries > 0 {
		pipe.LTrim(ctx, s.key, 0, s.maxEntries-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("push record to redis: %w", err)
	}
	return "redis:" + s.key, nil
}
