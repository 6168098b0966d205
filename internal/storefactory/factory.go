// Package storefactory builds the catalog.Store named by the configuration.
package storefactory

import (
	"context"
	"fmt"

	"catalog-sales/internal/catalog"
	"catalog-sales/internal/config"
	"catalog-sales/internal/db"
	"catalog-sales/internal/logger"
	"catalog-sales/internal/pgstore"
	"catalog-sales/internal/redisstore"
	"catalog-sales/internal/rtdb"
)

// Store is what every backend provides: reads, appends and seeding.
type Store interface {
	catalog.Store
	catalog.Seeder
}

// Open connects to the backend selected by cfg.Backend. The returned close
// function is always non-nil.
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendFirebase:
		s, err := rtdb.Connect(ctx, cfg.Firebase, cfg.ProductsPath, cfg.SalesPath)
		if err != nil {
			return nil, noop, err
		}
		logger.Infof("store: firebase realtime database at %s", cfg.Firebase.DatabaseURL)
		return s, noop, nil

	case config.BackendRedis:
		s, err := redisstore.Connect(ctx, cfg.Redis, cfg.ProductsPath, cfg.SalesPath)
		if err != nil {
			return nil, noop, err
		}
		logger.Infof("store: redis at %s (prefix %q)", cfg.Redis.Addr, cfg.Redis.Prefix)
		return s, s.Close, nil

	case config.BackendPostgres:
		sqlDB, err := db.Init(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, noop, err
		}
		s := pgstore.NewStore(sqlDB, cfg.Postgres.Schema, cfg.ProductsPath)
		if err := s.EnsureSchema(ctx, cfg.Postgres.Schema); err != nil {
			sqlDB.Close()
			return nil, noop, err
		}
		logger.Infof("store: postgres schema %q", cfg.Postgres.Schema)
		return s, s.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
