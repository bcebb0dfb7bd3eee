package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearCallLog deletes call records that started before cutoff and returns
// how many were removed. A zero cutoff empties the table and resets its
// sequence.
func ClearCallLog(ctx context.Context, pool *pgxpool.Pool, cutoff time.Time) (int64, error) {
	if cutoff.IsZero() {
		slog.Info(fmt.Sprintf("%s - Clearing call log", clearLogPrefix))
		var n int64
		if err := pool.QueryRow(ctx, `SELECT count(*) FROM call_log`).Scan(&n); err != nil {
			return 0, fmt.Errorf("%s - count failed: %w", clearLogPrefix, err)
		}
		if _, err := pool.Exec(ctx, `TRUNCATE TABLE call_log RESTART IDENTITY`); err != nil {
			return 0, fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
		}
		return n, nil
	}

	slog.Info(fmt.Sprintf("%s - Clearing call log before %s", clearLogPrefix, cutoff.UTC().Format(time.RFC3339)))
	tag, err := pool.Exec(ctx, `DELETE FROM call_log WHERE stime < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s - delete failed: %w", clearLogPrefix, err)
	}
	return tag.RowsAffected(), nil
}
