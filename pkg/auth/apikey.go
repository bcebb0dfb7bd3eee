package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/morezero/webf/pkg/handler"
)

const logPrefix = "auth:apikey"

// DefaultKeyHeader carries the API key when none is configured.
const DefaultKeyHeader = "X-API-Key"

// KeyStore maps API keys to user names.
type KeyStore interface {
	LookupAPIKey(ctx context.Context, key string) (user string, ok bool, err error)
}

// StaticKeyStore is an in-memory KeyStore of key to user.
type StaticKeyStore map[string]string

// LookupAPIKey returns the user for key.
func (s StaticKeyStore) LookupAPIKey(_ context.Context, key string) (string, bool, error) {
	user, ok := s[key]
	return user, ok, nil
}

// HeaderKeyAuthenticator admits callers presenting a known API key header.
type HeaderKeyAuthenticator struct {
	header string
	store  KeyStore
}

// NewHeaderKeyAuthenticator creates an authenticator reading header. An empty
// header uses DefaultKeyHeader.
func NewHeaderKeyAuthenticator(header string, store KeyStore) *HeaderKeyAuthenticator {
	if header == "" {
		header = DefaultKeyHeader
	}
	return &HeaderKeyAuthenticator{header: header, store: store}
}

// Authenticate looks up the presented key.
func (a *HeaderKeyAuthenticator) Authenticate(ctx context.Context, call *Call) (handler.AuthResult, error) {
	key := strings.TrimSpace(call.Headers.Get(a.header))
	if key == "" {
		return handler.AuthResult{OK: false, Detail: fmt.Sprintf("missing %s header", a.header)}, nil
	}

	user, ok, err := a.store.LookupAPIKey(ctx, key)
	if err != nil {
		return handler.AuthResult{}, fmt.Errorf("%s - key lookup failed: %w", logPrefix, err)
	}
	if !ok {
		slog.Debug(fmt.Sprintf("%s - unknown API key from %s for %s", logPrefix, call.Caller.IP, call.Function))
		return handler.AuthResult{OK: false, Detail: "unknown API key"}, nil
	}
	return handler.AuthResult{OK: true, User: user}, nil
}
