// Package server orchestrates all components: config, logging, optional COMMS
// and database, dispatcher and the HTTP(S) listener.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/webf/internal/config"
	"github.com/morezero/webf/internal/demo"
	"github.com/morezero/webf/pkg/auth"
	"github.com/morezero/webf/pkg/calllog"
	"github.com/morezero/webf/pkg/commsutil"
	"github.com/morezero/webf/pkg/db"
	"github.com/morezero/webf/pkg/dispatcher"
	"github.com/morezero/webf/pkg/policy"
)

const logPrefix = "server:server"

// Server is the webf orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	pool       *pgxpool.Pool
	disp       *dispatcher.Dispatcher
	tlsConfig  *tls.Config
	httpServer *http.Server
}

// Run loads config, serves until SIGINT or SIGTERM, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	slog.Info(fmt.Sprintf("%s - Starting webf %s", logPrefix, cfg.ServiceVersion))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.ListenAndServe(ctx)
}

// New builds the server from cfg. Close releases what it opened, also when
// New fails half way.
func New(ctx context.Context, cfg *config.Config) (_ *Server, err error) {
	s := &Server{cfg: cfg}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	// Step 1: Policy file overlays the environment.
	pol, err := policy.Load(cfg.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load policy: %w", logPrefix, err)
	}
	settings := pol.Apply(policy.Settings{
		CORSOrigin: cfg.CORSOrigin,
		AllowHelp:  cfg.AllowHelp,
		RateLimit:  cfg.RateLimit,
	})

	// Step 2: TLS material is checked before anything connects.
	if cfg.TLSEnabled() {
		if s.tlsConfig, err = LoadTLSConfig(cfg); err != nil {
			return nil, err
		}
	}

	sinks := []calllog.Sink{calllog.NewSlogSink(nil, slog.LevelInfo)}

	// Step 3: COMMS publishing of call records.
	if cfg.COMMSURL != "" {
		s.nc, err = commsutil.Connect(commsutil.ConnectParams{URL: cfg.COMMSURL, Name: cfg.COMMSName})
		if err != nil {
			return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
		}
		sinks = append(sinks, calllog.NewCommsSink(s.nc, &calllog.CommsSinkOpts{Subject: cfg.CallLogSubject}))
		slog.Info(fmt.Sprintf("%s - Publishing call records to %s", logPrefix, cfg.CallLogSubject))
	}

	// Step 4: Database for the call log and API keys.
	var authenticator auth.Authenticator
	if cfg.DatabaseURL != "" {
		if cfg.RunMigrations {
			if _, err = db.EnsureDatabase(ctx, cfg.DatabaseURL); err != nil {
				return nil, fmt.Errorf("%s - failed to ensure database: %w", logPrefix, err)
			}
		}
		if s.pool, err = db.NewPool(ctx, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		if cfg.RunMigrations {
			if err = migrate(ctx, s.pool, cfg.MigrationPath); err != nil {
				return nil, err
			}
		}
		repo := db.NewRepository(s.pool)
		sinks = append(sinks, calllog.NewStoreSink(repo))
		if cfg.RequireAPIKey {
			authenticator = auth.NewHeaderKeyAuthenticator(cfg.APIKeyHeader, repo)
			slog.Info(fmt.Sprintf("%s - API key required in %s", logPrefix, cfg.APIKeyHeader))
		}
	}

	// Step 5: Dispatcher.
	s.disp, err = dispatcher.New(dispatcher.Options{
		CORSOrigin:    settings.CORSOrigin,
		RateLimit:     settings.RateLimit,
		HeaderPolicy:  settings.HeaderPolicy,
		DisableHelp:   !settings.AllowHelp,
		Authenticator: authenticator,
		Sink:          calllog.Combine(sinks...),
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create dispatcher: %w", logPrefix, err)
	}

	if cfg.DemoFunctions {
		if err = demo.Register(s.disp, demo.Options{Version: cfg.ServiceVersion}); err != nil {
			return nil, err
		}
		slog.Info(fmt.Sprintf("%s - Demo functions registered", logPrefix))
	}

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           s.disp,
		TLSConfig:         s.tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool, dir string) error {
	files, origin, err := db.LoadMigrations(dir)
	if err != nil {
		return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Applying %d migrations from %s", logPrefix, len(files), origin))
	if err := db.RunMigrations(ctx, pool, files); err != nil {
		return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
	}
	return nil
}

// Dispatcher returns the dispatcher so callers can register functions before
// serving.
func (s *Server) Dispatcher() *dispatcher.Dispatcher {
	return s.disp
}

// Handler is the HTTP handler serving every request.
func (s *Server) Handler() http.Handler {
	return s.disp
}

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("%s - failed to listen on %s: %w", logPrefix, s.cfg.ListenAddr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully within the configured timeout. ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	scheme := "http"
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
		scheme = "https"
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info(fmt.Sprintf("%s - Listening on %s://%s", logPrefix, scheme, ln.Addr()))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s - HTTP server error: %w", logPrefix, err)
	case <-ctx.Done():
	}

	slog.Info(fmt.Sprintf("%s - Shutting down", logPrefix))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s - shutdown: %w", logPrefix, err)
	}
	<-errCh
	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// Close releases the COMMS connection and the database pool.
func (s *Server) Close() {
	if s.nc != nil {
		commsutil.Drain(s.nc)
		s.nc = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

// LoadTLSConfig builds the TLS config from either the key and chain file pair
// or the single combined PEM file.
func LoadTLSConfig(cfg *config.Config) (*tls.Config, error) {
	var (
		cert tls.Certificate
		err  error
	)
	if cfg.TLSKeyCertChainFile != "" {
		var pem []byte
		if pem, err = os.ReadFile(cfg.TLSKeyCertChainFile); err != nil {
			return nil, fmt.Errorf("%s - failed to read %s: %w", logPrefix, cfg.TLSKeyCertChainFile, err)
		}
		// X509KeyPair skips blocks of the other kind, so one PEM serves both.
		cert, err = tls.X509KeyPair(pem, pem)
	} else {
		cert, err = tls.LoadX509KeyPair(cfg.TLSCertChainFile, cfg.TLSKeyFile)
	}
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load TLS key pair: %w", logPrefix, err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
