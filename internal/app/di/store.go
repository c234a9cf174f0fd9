// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"fmt"
	"io"

	"xetra_etl/internal/feature/report/adapters"
	"xetra_etl/internal/platform/config"
	"xetra_etl/internal/platform/db"
	"xetra_etl/internal/platform/objectstore"
)

// NewObjectStore opens the store described by cfg. SQL stores are migrated
// before they are returned; the closer releases their connection pool.
func NewObjectStore(ctx context.Context, cfg config.StoreConfig, dbPassword string) (adapters.ObjectStore, io.Closer, error) {
	switch cfg.Driver {
	case "", "fs":
		return objectstore.NewFSStore(cfg.Path), nopCloser{}, nil
	case db.DriverSQLite, db.DriverPostgres:
		gdb, err := db.Open(db.Config{
			Driver:         cfg.Driver,
			Path:           cfg.Path,
			DSN:            cfg.DSN,
			Password:       dbPassword,
			ConnectTimeout: cfg.ConnectTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("database handle: %w", err)
		}
		s := objectstore.NewGormStore(gdb, cfg.Table)
		if err := s.Migrate(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		return s, sqlDB, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
