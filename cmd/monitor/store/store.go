// Package store provides storage backend initialization for the monitor.
//
// This package acts as a factory for creating storage.Store implementations
// based on the daemon configuration. It supports two storage backends:
//
//   - Memory: In-memory storage (default) - suitable for single-instance
//     deployments and development. Observation history is lost on restart.
//
//   - Redis: Redis-backed storage - survives restarts and can be shared
//     by a read replica serving the HTTP API.
//
// The factory performs fail-fast initialization, validating storage
// connectivity during startup and exiting immediately if the backend is
// unavailable. This ensures the monitor never runs with a broken storage
// configuration.
package store

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hargaemas/gold-monitor/cmd/monitor/config"
	"github.com/hargaemas/gold-monitor/pkg/storage"
)

// New creates and initializes a storage backend based on the provided
// configuration. Calls os.Exit(1) on initialization failure; never
// returns nil.
func New(cfg *config.Config, logger *slog.Logger) storage.Store {
	switch cfg.Storage.Backend {
	case "redis":
		logger.Info("initializing redis storage",
			"addr", cfg.Storage.RedisAddr,
			"db", cfg.Storage.RedisDB,
			"ttl", cfg.Storage.RedisTTL,
		)
		redisStore, err := storage.NewRedisStore(cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB, cfg.Storage.RedisTTL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisStore.Ping(ctx); err != nil {
			logger.Error("redis health check failed", "error", err)
			os.Exit(1)
		}
		logger.Info("redis storage initialized successfully")

		return redisStore
	case "memory":
		logger.Info("initializing in-memory storage")
		return storage.NewMemoryStore()

	default:
		logger.Error("invalid storage backend", "backend", cfg.Storage.Backend)
		os.Exit(1)
	}

	return nil
}
