// Package config provides server configuration loaded from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/morezero/webf/pkg/semver"
)

const logPrefix = "config:LoadConfig"

// Config holds webf server configuration.
type Config struct {
	// Listener
	Addr string `envconfig:"WEBF_ADDR" default:"localhost"`
	Port int    `envconfig:"WEBF_PORT" default:"7778"`

	// TLS: either a key file plus a certificate chain file, or one PEM file
	// holding the private key and the chain.
	TLSKeyFile          string `envconfig:"TLS_KEY_FILE"`
	TLSCertChainFile    string `envconfig:"TLS_CERT_CHAIN_FILE"`
	TLSKeyCertChainFile string `envconfig:"TLS_KEY_CERT_CHAIN_FILE"`

	// Dispatch policy
	CORSOrigin string  `envconfig:"CORS_ORIGIN"`
	RateLimit  float64 `envconfig:"RATE_LIMIT" default:"0"`
	AllowHelp  bool    `envconfig:"ALLOW_HELP" default:"true"`
	PolicyFile string  `envconfig:"POLICY_FILE"`

	// COMMS: publish call records to NATS at COMMSURL (empty = off).
	COMMSURL       string `envconfig:"COMMS_URL"`
	COMMSName      string `envconfig:"SERVICE_NAME" default:"webf"`
	CallLogSubject string `envconfig:"CALL_LOG_SUBJECT" default:"webf.calls"`

	// Database (empty = no call-log table, no API keys)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// Authentication
	RequireAPIKey bool   `envconfig:"REQUIRE_API_KEY" default:"false"`
	APIKeyHeader  string `envconfig:"API_KEY_HEADER" default:"X-API-Key"`

	ServiceVersion  string        `envconfig:"SERVICE_VERSION" default:"1.0.0"`
	DemoFunctions   bool          `envconfig:"DEMO_FUNCTIONS" default:"false"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	return &c, nil
}

// ListenAddr is the host:port the server binds.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Addr, strconv.Itoa(c.Port))
}

// TLSEnabled reports whether any TLS material is configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSKeyCertChainFile != "" || c.TLSKeyFile != "" || c.TLSCertChainFile != ""
}

// SlogLevel maps LogLevel onto a slog level; unknown names mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// ValidateForServe checks required config when running the server.
func (c *Config) ValidateForServe() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%s - WEBF_PORT %d out of range", logPrefix, c.Port)
	}
	if c.TLSKeyCertChainFile != "" && (c.TLSKeyFile != "" || c.TLSCertChainFile != "") {
		return fmt.Errorf("%s - TLS_KEY_CERT_CHAIN_FILE excludes TLS_KEY_FILE and TLS_CERT_CHAIN_FILE", logPrefix)
	}
	if (c.TLSKeyFile == "") != (c.TLSCertChainFile == "") {
		return fmt.Errorf("%s - TLS_KEY_FILE and TLS_CERT_CHAIN_FILE must be set together", logPrefix)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%s - RATE_LIMIT must not be negative", logPrefix)
	}
	if err := semver.ValidateVersion(c.ServiceVersion); err != nil {
		return fmt.Errorf("%s - SERVICE_VERSION: %w", logPrefix, err)
	}
	if c.RequireAPIKey && c.DatabaseURL == "" {
		return fmt.Errorf("%s - REQUIRE_API_KEY needs DATABASE_URL", logPrefix)
	}
	if c.RequireAPIKey && strings.TrimSpace(c.APIKeyHeader) == "" {
		return fmt.Errorf("%s - API_KEY_HEADER must not be empty", logPrefix)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%s - SHUTDOWN_TIMEOUT must be positive", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, clear, apikey).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}
