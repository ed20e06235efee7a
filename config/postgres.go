package config

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver for sql.DB and sqlx
)

const (
	postgresDriver = "postgres"

	defaultMaxConnections    = 50
	defaultMinConnections    = 2
	defaultMaxConnLifetime   = time.Hour
	defaultMaxConnIdleTime   = 5 * time.Minute
	defaultHealthCheckPeriod = time.Minute
	defaultConnectTimeout    = 5 * time.Second
)

// ErrConnectingFailed is returned if a connection pool cannot be created from a DSN.
var ErrConnectingFailed = errors.New("creating the database connection failed")

// PostgresPGXPoolConfig parses dsn and applies the pool defaults.
func PostgresPGXPoolConfig(dsn string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	cfg.MaxConns = defaultMaxConnections
	cfg.MinConns = defaultMinConnections
	cfg.MaxConnLifetime = defaultMaxConnLifetime
	cfg.MaxConnIdleTime = defaultMaxConnIdleTime
	cfg.HealthCheckPeriod = defaultHealthCheckPeriod
	cfg.ConnConfig.ConnectTimeout = defaultConnectTimeout

	return cfg, nil
}

// PostgresPGXPool creates a pool. Connections are opened lazily, use PingWithBackoff to wait for the server.
func PostgresPGXPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := PostgresPGXPoolConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	return pool, nil
}

// PostgresSQLDB opens a sql.DB on the lib/pq driver with the same pool limits as the pgx pool.
func PostgresSQLDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open(postgresDriver, dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	applyPoolLimits(db)

	return db, nil
}

// PostgresSQLX opens a sqlx.DB on the lib/pq driver.
func PostgresSQLX(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(postgresDriver, dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	applyPoolLimits(db.DB)

	return db, nil
}

func applyPoolLimits(db *sql.DB) {
	db.SetMaxOpenConns(defaultMaxConnections)
	db.SetMaxIdleConns(defaultMinConnections)
	db.SetConnMaxLifetime(defaultMaxConnLifetime)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)
}
