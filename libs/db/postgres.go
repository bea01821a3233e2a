package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// A nightly batch process is a single sequential writer, so the pool is
// kept small compared to a serving workload.
const (
	defaultMaxOpenConns = 4
	defaultMaxIdleConns = 2
	defaultConnLifetime = 30 * time.Minute
	defaultPingTimeout  = 5 * time.Second
)

// NewPostgresDB creates a pgx/stdlib backed *sql.DB pool and validates the
// connection with a ping.
func NewPostgresDB(ctx context.Context, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("db: empty DSN")
	}

	pool, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	pool.SetMaxOpenConns(defaultMaxOpenConns)
	pool.SetMaxIdleConns(defaultMaxIdleConns)
	pool.SetConnMaxLifetime(defaultConnLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
