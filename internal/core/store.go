package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/OrderImport/internal/config"
	"github.com/JonMunkholm/OrderImport/internal/orders"
)

// OpenStore connects the order store selected by cfg.Store.Driver. The
// returned close function releases the pool or database file.
func OpenStore(ctx context.Context, cfg *config.Config) (orders.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		slog.Warn("using in-memory order store; orders are lost on exit")
		return orders.NewMemoryStore(), func() {}, nil

	case config.DriverBolt:
		store, err := orders.OpenBoltStore(cfg.Store.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("opened bolt order store", "path", store.Path())
		return store, func() { store.Close() }, nil

	case config.DriverPostgres:
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store := orders.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	return pool, nil
}
