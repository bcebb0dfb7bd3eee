package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/webf/pkg/calllog"
	"github.com/morezero/webf/pkg/mson"
)

const repoLogPrefix = "db:repository"

// Repository stores call records and API keys. It satisfies calllog.Store
// and auth.KeyStore.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// =========================================================================
// CALL LOG
// =========================================================================

// InsertCallLog stores one call record. Params are kept as extended JSON so
// typed values survive.
func (r *Repository) InsertCallLog(ctx context.Context, rec *calllog.Record) error {
	var fn *string
	if rec.Function != "" {
		fn = &rec.Function
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO call_log (reqid, caller_name, caller_ip, caller_port, user_name, func, params, stime, etime, millis, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11)`,
		rec.RequestID, rec.Caller.Name, rec.Caller.IP, rec.Caller.Port, rec.UserOrAnonymous(),
		fn, string(mson.Marshal(rec.Params, mson.Mongo)), rec.Start.UTC(), rec.End.UTC(), rec.Millis(), rec.Status)
	if err != nil {
		return fmt.Errorf("%s - insert call log: %w", repoLogPrefix, err)
	}
	return nil
}

// RecentCalls returns up to limit records, newest first. An empty function
// matches every call.
func (r *Repository) RecentCalls(ctx context.Context, function string, limit int) ([]CallRow, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, reqid, caller_name, caller_ip, caller_port, user_name, func, params::text,
		        stime, etime, millis, status
		 FROM call_log
		 WHERE ($1 = '' OR func = $1)
		 ORDER BY stime DESC, id DESC
		 LIMIT $2`, function, limit)
	if err != nil {
		return nil, fmt.Errorf("%s - query call log: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []CallRow
	for rows.Next() {
		var (
			c      CallRow
			params string
		)
		if err := rows.Scan(&c.ID, &c.RequestID, &c.CallerName, &c.CallerIP, &c.CallerPort, &c.User,
			&c.Function, &params, &c.Start, &c.End, &c.Millis, &c.Status); err != nil {
			return nil, fmt.Errorf("%s - scan call log: %w", repoLogPrefix, err)
		}
		c.Params = []byte(params)
		out = append(out, c)
	}
	return out, rows.Err()
}

// =========================================================================
// API KEYS
// =========================================================================

// HashAPIKey is the digest stored for key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// LookupAPIKey returns the user owning key, if the key exists and is not
// revoked.
func (r *Repository) LookupAPIKey(ctx context.Context, key string) (string, bool, error) {
	var user string
	err := r.pool.QueryRow(ctx,
		`SELECT user_name FROM api_keys WHERE key_hash = $1 AND revoked IS NULL`,
		HashAPIKey(key)).Scan(&user)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s - lookup api key: %w", repoLogPrefix, err)
	}
	return user, true, nil
}

// CreateAPIKey stores key for user. Storing an existing key reassigns it and
// clears any revocation.
func (r *Repository) CreateAPIKey(ctx context.Context, user, key string) (*APIKey, error) {
	slog.Info(fmt.Sprintf("%s - CreateAPIKey user=%s", repoLogPrefix, user))

	var k APIKey
	err := r.pool.QueryRow(ctx,
		`INSERT INTO api_keys (key_hash, user_name)
		 VALUES ($1, $2)
		 ON CONFLICT (key_hash) DO UPDATE SET user_name = $2, revoked = NULL
		 RETURNING key_hash, user_name, created, revoked`,
		HashAPIKey(key), user).Scan(&k.Hash, &k.User, &k.Created, &k.Revoked)
	if err != nil {
		return nil, fmt.Errorf("%s - create api key: %w", repoLogPrefix, err)
	}
	return &k, nil
}

// RevokeAPIKey marks key revoked and reports whether it existed.
func (r *Repository) RevokeAPIKey(ctx context.Context, key string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET revoked = now() WHERE key_hash = $1 AND revoked IS NULL`,
		HashAPIKey(key))
	if err != nil {
		return false, fmt.Errorf("%s - revoke api key: %w", repoLogPrefix, err)
	}
	return tag.RowsAffected() > 0, nil
}
