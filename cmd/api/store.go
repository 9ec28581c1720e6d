package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/follower-tracker/internal/adapter/file"
	"github.com/user/follower-tracker/internal/adapter/memory"
	"github.com/user/follower-tracker/internal/adapter/postgres"
	redis_adapter "github.com/user/follower-tracker/internal/adapter/redis"
	"github.com/user/follower-tracker/internal/repository"
	"github.com/user/follower-tracker/internal/usecase"
	"github.com/user/follower-tracker/pkg/config"
)

// storeBundle is the selected backend plus what it brings along.
type storeBundle struct {
	repo    repository.SnapshotRepository
	backend string
	lock    usecase.RefreshLock // Only set for redis
	close   func()
}

// newStore selects the snapshot backend once at startup. Missing credentials select the
// null store; an unreachable backend is kept and its failures absorbed at runtime.
func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) storeBundle {
	retention := repository.Retention{History: cfg.HistoryCap, Events: cfg.EventsCap}
	none := storeBundle{repo: memory.NullStore{}, backend: config.BackendNone, close: func() {}}

	switch cfg.StoreBackend {
	case config.BackendFile:
		logger.Info("using file store", zap.String("path", cfg.DBPath))
		return storeBundle{repo: file.NewStore(cfg.DBPath, retention), backend: cfg.StoreBackend, close: func() {}}

	case config.BackendMemory:
		logger.Warn("using in-memory store, history is lost on restart")
		return storeBundle{repo: memory.NewStore(retention), backend: cfg.StoreBackend, close: func() {}}

	case config.BackendPostgres:
		if cfg.PostgresURL == "" {
			logger.Warn("POSTGRES_URL not set, running without persistence")
			return none
		}
		if err := postgres.Migrate(cfg.PostgresURL); err != nil {
			logger.Warn("postgres migration failed, store errors will be absorbed", zap.Error(err))
		}
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Warn("invalid postgres configuration, running without persistence", zap.Error(err))
			return none
		}
		logger.Info("PostgreSQL connection pool established")
		return storeBundle{
			repo:    postgres.NewSnapshotRepo(pool, retention),
			backend: cfg.StoreBackend,
			close:   pool.Close,
		}

	case config.BackendRedis:
		if cfg.RedisAddr == "" {
			logger.Warn("REDIS_ADDR not set, running without persistence")
			return none
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, store errors will be absorbed", zap.Error(err))
		} else {
			logger.Info("Redis connection established")
		}
		return storeBundle{
			repo:    redis_adapter.NewSnapshotRepo(rdb, cfg.RedisPrefix, retention),
			backend: cfg.StoreBackend,
			lock:    redis_adapter.NewRefreshLock(rdb, cfg.RedisPrefix, lockTTL(cfg.FetchTimeout), logger),
			close:   func() { _ = rdb.Close() },
		}
	}

	logger.Warn("no snapshot store configured, running without persistence")
	return none
}

// lockTTL outlives one bounded refresh so a crashed holder cannot block others for long.
func lockTTL(fetchTimeout time.Duration) time.Duration {
	if fetchTimeout <= 0 {
		return time.Minute
	}
	return 2 * fetchTimeout
}
