package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"

	"github.com/planwatch/planwatch_api/internal/config"
)

const (
	connectAttempts = 5
	connectBaseWait = 500 * time.Millisecond
	pingTimeout     = 5 * time.Second
)

// Connect opens the PostgreSQL pool and verifies it with a ping. Boot often
// races the database container, so failed pings are retried with capped
// exponential backoff before giving up.
func Connect(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg == nil {
		return nil, errors.New("nil database config")
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=planwatch_api",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password), cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := sqlx.Open("postgres", dsn)
		if err != nil {
			lastErr = err
			waitBeforeRetry(attempt)
			continue
		}

		// Sized for the HTTP surface plus the bounded extraction pool;
		// pipeline transactions are short-lived.
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			log.Info().Str("host", cfg.Host).Str("database", cfg.Name).Msg("Database connected")
			return db, nil
		}

		lastErr = err
		_ = db.Close()
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", connectAttempts).
			Msg("Database ping failed, retrying")
		waitBeforeRetry(attempt)
	}

	return nil, fmt.Errorf("database unreachable after %d attempts: %w", connectAttempts, lastErr)
}

// waitBeforeRetry sleeps connectBaseWait * 2^(attempt-1), capped at 5s.
func waitBeforeRetry(attempt int) {
	d := connectBaseWait << (attempt - 1)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	time.Sleep(d)
}
