package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/mapty/internal/config"
	"github.com/redis/go-redis/v9"
)

// Open returns the slot selected by cfg.Backend. For postgres, pending
// migrations are applied first.
func Open(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (Slot, error) {
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}

	switch cfg.Backend {
	case "sqlite":
		log.Info("using sqlite storage", "path", cfg.SQLite.Path, "key", key)
		return OpenSQLite(cfg.SQLite.Path, key)
	case "postgres":
		dsn := cfg.Postgres.DSN()
		if err := RunMigrations(dsn, cfg.Postgres.Migrations); err != nil {
			return nil, err
		}
		log.Info("migrations applied")
		log.Info("using postgres storage", "host", cfg.Postgres.Host, "db", cfg.Postgres.Name, "key", key)
		return OpenPostgres(ctx, dsn, key)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("pinging redis: %w", err)
		}
		log.Info("using redis storage", "addr", cfg.Redis.Addr, "key", key)
		return NewRedis(client, key), nil
	case "badger":
		log.Info("using badger storage", "dir", cfg.Badger.Dir, "key", key)
		return OpenBadger(cfg.Badger.Dir, key)
	case "memory":
		log.Warn("using in-memory storage; workouts will not survive a restart")
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}
