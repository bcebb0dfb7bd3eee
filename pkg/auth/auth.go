// Package auth provides the server-wide authentication hook and an API-key
// implementation backed by a pluggable key store.
package auth

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/morezero/webf/pkg/handler"
)

// Call is what a server-wide authenticator sees.
type Call struct {
	Function string
	Handler  handler.Handler
	// State is the value the function was registered with.
	State   interface{}
	Caller  handler.CallerInfo
	Headers http.Header
	Args    bson.D
}

// Authenticator decides whether a call may proceed. It is used for every
// function that does not implement handler.Authenticator and is called
// concurrently. A returned error is treated as an internal fault, not as a
// denial.
type Authenticator interface {
	Authenticate(ctx context.Context, call *Call) (handler.AuthResult, error)
}

// Func adapts a function to Authenticator.
type Func func(ctx context.Context, call *Call) (handler.AuthResult, error)

// Authenticate calls f.
func (f Func) Authenticate(ctx context.Context, call *Call) (handler.AuthResult, error) {
	return f(ctx, call)
}
