package main

import (
	"context"
	"fmt"
	"log/slog"

	"tictactoe_relay/internal/config"
	"tictactoe_relay/internal/db"
	"tictactoe_relay/internal/repository"

	"github.com/redis/go-redis/v9"
)

// storage - выбранный реестр и то, что ему нужно для обслуживания
type storage struct {
	registry repository.SessionRegistry
	// nil для redis: там истечение встроенное
	purger repository.Purger
	ping   func(ctx context.Context) error
}

func openRegistry(ctx context.Context, cfg *config.Config, log *slog.Logger) (*storage, error) {
	switch cfg.RegistryBackend {
	case config.BackendRedis:
		rdb, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return &storage{
			registry: repository.NewRedisSessionRepository(rdb, cfg.RedisKeyPrefix, cfg.SessionTTL),
			ping:     func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}, nil

	case config.BackendPostgres:
		if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
			return nil, err
		}
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repo := repository.NewPostgresSessionRepository(pool, cfg.SessionTTL)
		return &storage{registry: repo, purger: repo, ping: pool.Ping}, nil

	default:
		repo := repository.NewMemorySessionRepository(cfg.SessionTTL)
		return &storage{registry: repo, purger: repo}, nil
	}
}

func newRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
