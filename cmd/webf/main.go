// Package main is the entrypoint for the webf function server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/webf/internal/config"
	"github.com/morezero/webf/internal/server"
	"github.com/morezero/webf/pkg/client"
	"github.com/morezero/webf/pkg/db"
	"github.com/morezero/webf/pkg/mson"
)

const usage = `Usage: webf [command]
       webf serve                          Start the function server.
       webf migrate up                     Run database migrations.
       webf migrate down                   Drop the call_log and api_keys tables.
       webf migrate status                 Show migration status.
       webf ensure-db [name]               Create database if missing (default name: webf_test).
       webf clear [-before AGE|DATE]       Delete call records; all of them without -before.
       webf calls [-func NAME] [-limit N]  Show recent call records.
       webf apikey add USER [KEY]          Store an API key for USER; a key is generated when omitted.
       webf apikey revoke KEY              Revoke an API key.
       webf call [-url URL] [-method M] [-format F] FUNCTION [ARGS]
                                           Call a function and print each returned document.

Commands:
  serve       (default) Start the function server.
  migrate     up, down or status of the call_log and api_keys schema.
  clear       AGE is a duration such as 720h; DATE is 2006-01-02 or RFC 3339.
  call        ARGS is an extended JSON object. F is json, ejson or bson.

Environment: WEBF_ADDR, WEBF_PORT, DATABASE_URL (db commands), MIGRATION_PATH, COMMS_URL,
REQUIRE_API_KEY, DEMO_FUNCTIONS, LOG_LEVEL. See README.
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n%s", err, usage)
			os.Exit(2)
		}
		log.Fatalf("webf: %v", err)
	}
}

func run(args []string, out io.Writer) error {
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "serve", "":
		return server.Run()
	case "migrate":
		if len(args) < 2 {
			return fmt.Errorf("migrate: require subcommand (up, down, status): %w", errUsage)
		}
		switch args[1] {
		case "up":
			return withPool(runMigrateUp)
		case "down":
			return withPool(db.MigrationDown)
		case "status":
			return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
				return runMigrateStatus(ctx, pool, out)
			})
		default:
			return fmt.Errorf("migrate: unknown subcommand %q: %w", args[1], errUsage)
		}
	case "ensure-db":
		name := "webf_test"
		if len(args) > 1 && args[1] != "" {
			name = args[1]
		}
		return runEnsureDB(name, out)
	case "clear":
		return runClear(args[1:], out)
	case "calls":
		return runCalls(args[1:], out)
	case "apikey":
		return runAPIKey(args[1:], out)
	case "call":
		return runCall(args[1:], out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

// withPool loads the DB config, connects, and hands the pool to fn.
func withPool(fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, pool)
}

func runMigrateUp(ctx context.Context, pool *pgxpool.Pool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	files, _, err := db.LoadMigrations(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, files); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus(ctx context.Context, pool *pgxpool.Pool, out io.Writer) error {
	st, err := db.MigrationStatus(ctx, pool)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "call_log: %s\napi_keys: %s\n", present(st.CallLog), present(st.APIKeys))
	if !st.Applied() {
		fmt.Fprintln(out, "Schema incomplete; run: webf migrate up")
	}
	return nil
}

func present(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}

func runEnsureDB(name string, out io.Writer) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	// Query parameters such as sslmode stay on u.RawQuery.
	u.Path = "/" + name
	created, err := db.EnsureDatabase(context.Background(), u.String())
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(out, "Database %q created.\n", name)
	} else {
		fmt.Fprintf(out, "Database %q already exists.\n", name)
	}
	return nil
}

func runClear(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	before := fs.String("before", "", "delete records older than AGE or DATE")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("clear: %v: %w", err, errUsage)
	}
	cutoff, err := parseCutoff(*before, time.Now())
	if err != nil {
		return fmt.Errorf("clear: %v: %w", err, errUsage)
	}

	return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
		n, err := db.ClearCallLog(ctx, pool, cutoff)
		if err != nil {
			return fmt.Errorf("clear call log: %w", err)
		}
		fmt.Fprintf(out, "Deleted %d call records.\n", n)
		return nil
	})
}

// parseCutoff turns -before into an absolute time. Empty means no cutoff.
func parseCutoff(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return time.Time{}, fmt.Errorf("age %q must be positive", s)
		}
		return now.Add(-d), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is neither a duration nor a date", s)
}

func runCalls(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("calls", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	function := fs.String("func", "", "only calls of this function")
	limit := fs.Int("limit", 20, "maximum records shown")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("calls: %v: %w", err, errUsage)
	}

	return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
		rows, err := db.NewRepository(pool).RecentCalls(ctx, *function, *limit)
		if err != nil {
			return err
		}
		for _, r := range rows {
			fn := "-"
			if r.Function != nil {
				fn = *r.Function
			}
			fmt.Fprintf(out, "%s %s %s:%d %s %s %d %dms %s\n",
				r.Start.UTC().Format(time.RFC3339), r.RequestID, r.CallerIP, r.CallerPort,
				r.User, fn, r.Status, r.Millis, r.Params)
		}
		return nil
	})
}

func runAPIKey(args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("apikey: require subcommand (add, revoke): %w", errUsage)
	}
	switch args[0] {
	case "add":
		if len(args) < 2 || args[1] == "" {
			return fmt.Errorf("apikey add: require USER: %w", errUsage)
		}
		user := args[1]
		key := ""
		if len(args) > 2 {
			key = args[2]
		}
		if key == "" {
			key = newAPIKey()
		}
		return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
			if _, err := db.NewRepository(pool).CreateAPIKey(ctx, user, key); err != nil {
				return err
			}
			fmt.Fprintf(out, "API key for %s: %s\n", user, key)
			return nil
		})
	case "revoke":
		if len(args) < 2 || args[1] == "" {
			return fmt.Errorf("apikey revoke: require KEY: %w", errUsage)
		}
		return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
			ok, err := db.NewRepository(pool).RevokeAPIKey(ctx, args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("apikey revoke: no active key matches")
			}
			fmt.Fprintln(out, "API key revoked.")
			return nil
		})
	default:
		return fmt.Errorf("apikey: unknown subcommand %q: %w", args[0], errUsage)
	}
}

// newAPIKey returns 64 hex characters of randomness.
func newAPIKey() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

var callFormats = map[string]client.Format{
	"json":  client.JSONBoundary,
	"ejson": client.EJSONBoundary,
	"bson":  client.BSON,
}

func runCall(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	baseURL := fs.String("url", "", "server URL; default from WEBF_ADDR and WEBF_PORT")
	method := fs.String("method", http.MethodGet, "HTTP method")
	format := fs.String("format", "ejson", "wire format: json, ejson or bson")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("call: %v: %w", err, errUsage)
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return fmt.Errorf("call: require FUNCTION and optional ARGS: %w", errUsage)
	}
	f, ok := callFormats[*format]
	if !ok {
		return fmt.Errorf("call: unknown format %q: %w", *format, errUsage)
	}

	var callArgs mson.Document
	if fs.NArg() == 2 {
		var err error
		if callArgs, err = mson.Parse(fs.Arg(1), mson.Mongo); err != nil {
			return fmt.Errorf("call: ARGS: %w", err)
		}
	}

	if *baseURL == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		scheme := "http"
		if cfg.TLSEnabled() {
			scheme = "https"
		}
		*baseURL = scheme + "://" + cfg.ListenAddr()
	}

	// Pure JSON replies are printed back as pure JSON.
	mode := mson.Mongo
	if f == client.JSONBoundary {
		mode = mson.Pure
	}

	c := client.New(*baseURL, client.WithFormat(f))
	res, err := c.Call(context.Background(), strings.ToUpper(*method), fs.Arg(0), callArgs, nil)
	if err != nil {
		return err
	}
	for _, doc := range res.Docs {
		if err := mson.Write(out, doc, mode); err != nil {
			return err
		}
	}
	if res.Status >= http.StatusBadRequest {
		return fmt.Errorf("call: %s returned %d", fs.Arg(0), res.Status)
	}
	return nil
}
