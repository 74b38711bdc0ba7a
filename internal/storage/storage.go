package storage

import (
	"context"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"capture-relay/internal/config"
)

type Store interface {
	// Save returns where the record ended up.
	Save(ctx context.Context, rec *Record) (string, error)
}

// Multi saves to every store and joins the locations that succeeded.
type Multi []Store

func (m Multi) Save(ctx context.Context, rec *Record) (string, error) {
	var (
		locations []string
		errs      error
	)
	for _, s := range m {
		loc, err := s.Save(ctx, rec)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if loc != "" {
			locations = append(locations, loc)
		}
	}
	return strings.Join(locations, ", "), errs
}

// New assembles the configured sinks. Redis is used only when a client was built.
func New(cfg config.Config, rdb *RedisClient, logger *zap.Logger) Store {
	logger = logger.Named("storage")

	var stores Multi
	if cfg.PersistRequests {
		stores = append(stores, NewFileStore(cfg.DataDir))
		logger.Info("persisting requests to disk", zap.String("dir", cfg.DataDir))
	}
	if rdb != nil && rdb.Client != nil {
		stores = append(stores, NewRedisStore(rdb.Client, cfg.RedisListKey, cfg.RedisMaxEntries))
		logger.Info("mirroring requests to redis", zap.String("key", cfg.RedisListKey))
	}
	return stores
}
