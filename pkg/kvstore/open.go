package kvstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/history-engine/pkg/config"
)

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg *config.StoreConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendRedis:
		return NewRedisStore(ctx, &cfg.Redis)
	case config.BackendBadger:
		return NewBadgerStore(cfg.BadgerPath, logger)
	case config.BackendPostgres:
		return NewPostgresStore(ctx, &cfg.Postgres, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
