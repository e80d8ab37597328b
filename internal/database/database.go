package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
	pingTimeout     = 5 * time.Second
)

var ErrNotConnected = errors.New("database not connected")

type DB struct {
	Pool *pgxpool.Pool
}

// PoolStats is the subset of pool counters exported as gauges.
type PoolStats struct {
	Total    int32
	Idle     int32
	Acquired int32
	Max      int32
}

// New opens the pool and waits for the server to answer a ping. A database
// that is still starting (typical under docker compose) gets a few retries
// with doubling backoff before the error is returned.
func New(ctx context.Context, databaseURL string, maxConns int32, minConns int32) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	backoff := connectBackoff
	for attempt := 1; ; attempt++ {
		err = ping(ctx, pool)
		if err == nil {
			break
		}
		if attempt == connectAttempts || ctx.Err() != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database after %d attempts: %w", attempt, err)
		}
		slog.Warn("database not ready, retrying",
			"attempt", attempt,
			"host", cfg.ConnConfig.Host,
			"backoff", backoff,
			"error", err,
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", ctx.Err())
		}
		backoff *= 2
	}

	slog.Info("database connected",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"max_conns", maxConns,
		"min_conns", minConns,
	)
	return &DB{Pool: pool}, nil
}

func ping(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return pool.Ping(pingCtx)
}

func (db *DB) Close() {
	if db != nil && db.Pool != nil {
		db.Pool.Close()
	}
}

func (db *DB) Health(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return ErrNotConnected
	}
	return ping(ctx, db.Pool)
}

func (db *DB) Stats() PoolStats {
	if db == nil || db.Pool == nil {
		return PoolStats{}
	}
	s := db.Pool.Stat()
	return PoolStats{
		Total:    s.TotalConns(),
		Idle:     s.IdleConns(),
		Acquired: s.AcquiredConns(),
		Max:      s.MaxConns(),
	}
}
