// Package db stores call records and API keys in Postgres via pgx.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const logPrefix = "db:pool"

// Pool sizing. Every request may insert a call record, so a few connections
// are kept warm.
const (
	maxConns = 20
	minConns = 2
)

// NewPool creates a pgx connection pool and checks it with a ping.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	slog.Info(fmt.Sprintf("%s - Connecting to database", logPrefix))

	config, err := poolConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", logPrefix, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Database connection established (%s/%s)", logPrefix,
		config.ConnConfig.Host, config.ConnConfig.Database))
	return pool, nil
}

func poolConfig(databaseURL string) (*pgxpool.Config, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("%s - database URL is empty", logPrefix)
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database URL: %w", logPrefix, err)
	}
	config.MaxConns = maxConns
	config.MinConns = minConns
	config.ConnConfig.RuntimeParams["application_name"] = "webf"
	return config, nil
}

// RunMigrations applies SQL migration files in order. Every file is
// idempotent, so re-running is safe.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrationFiles []string) error {
	slog.Info(fmt.Sprintf("%s - Running %d migrations", logPrefix, len(migrationFiles)))

	for i, sql := range migrationFiles {
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("%s - migration %d failed: %w", logPrefix, i+1, err)
		}
	}

	slog.Info(fmt.Sprintf("%s - Migrations complete", logPrefix))
	return nil
}

// SchemaStatus reports which of the managed tables exist.
type SchemaStatus struct {
	CallLog bool
	APIKeys bool
}

// Applied reports whether the whole schema is present.
func (s SchemaStatus) Applied() bool { return s.CallLog && s.APIKeys }

// MigrationStatus checks for the tables the migrations create.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool) (SchemaStatus, error) {
	const statusLogPrefix = "db:MigrationStatus"

	var st SchemaStatus
	for table, dst := range map[string]*bool{"call_log": &st.CallLog, "api_keys": &st.APIKeys} {
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1)`,
			table).Scan(dst)
		if err != nil {
			return st, fmt.Errorf("%s - failed to check table %s: %w", statusLogPrefix, table, err)
		}
	}
	return st, nil
}

// MigrationDown drops the managed tables. Call records and API keys are lost.
func MigrationDown(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Warn(fmt.Sprintf("%s - Dropping call_log and api_keys", logPrefix))
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS api_keys, call_log`); err != nil {
		return fmt.Errorf("%s - drop failed: %w", logPrefix, err)
	}
	return nil
}
