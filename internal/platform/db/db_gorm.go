// Package db opens gorm connections for the SQL-backed object store.
package db

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	defaultConnectTimeout = 60 * time.Second
	defaultRetryInterval  = 3 * time.Second
)

// Config describes one SQL database.
type Config struct {
	Driver string
	// Path is the SQLite database file (or ":memory:").
	Path string
	// DSN is the PostgreSQL connection string (URL or key=value form).
	DSN string
	// Password overrides the DSN password when set (DB_PASSWORD).
	Password       string
	ConnectTimeout time.Duration
}

// Dialector returns the gorm dialector for cfg. PostgreSQL connections are
// parsed and opened through pgx so DSN errors surface before the first dial.
func Dialector(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		return sqlite.Open(cfg.Path), nil
	case DriverPostgres:
		connCfg, err := pgx.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("parse postgres dsn: %w", err)
		}
		if cfg.Password != "" {
			connCfg.Password = cfg.Password
		}
		return postgres.New(postgres.Config{Conn: stdlib.OpenDB(*connCfg)}), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Open connects to the database described by cfg, retrying until
// cfg.ConnectTimeout (60s by default) elapses.
func Open(cfg Config) (*gorm.DB, error) {
	d, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	gdb, err := ConnectWithRetry(timeout, defaultRetryInterval, func() (*gorm.DB, error) {
		return gorm.Open(d, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	})
	if err != nil {
		return nil, err
	}

	if cfg.Driver == DriverSQLite {
		// SQLite allows a single writer; serialise access through one connection.
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return gdb, nil
}

// ConnectWithRetry calls open until it succeeds or timeout elapses, sleeping
// interval between attempts.
func ConnectWithRetry(timeout, interval time.Duration, open func() (*gorm.DB, error)) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for attempt := 1; ; attempt++ {
		gdb, err := open()
		if err == nil {
			return gdb, nil
		}
		if time.Now().Add(interval).After(deadline) {
			return nil, fmt.Errorf("db connect failed after %d attempts: %w", attempt, err)
		}
		slog.Warn("db connect failed, retrying", "attempt", attempt, "error", err)
		time.Sleep(interval)
	}
}
