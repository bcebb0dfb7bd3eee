// Package handler defines the lifecycle protocol every function served by the
// dispatcher implements.
//
// A Handler is built fresh for every request by its Constructor. Beyond the
// mandatory Help and Start methods a handler may implement any of the optional
// capability interfaces (Streamer, Finisher, Authenticator, CallLogger); the
// dispatcher detects them once, right after construction.
package handler

import (
	"context"
	"io"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/morezero/webf/pkg/calllog"
)

// CallerInfo identifies the remote end of a request.
type CallerInfo = calllog.Caller

// Request is what Start receives.
type Request struct {
	Context context.Context
	Method  string
	// Function is the resolved function name.
	Function string
	Headers  http.Header
	// Args is the decoded args parameter. Positional path segments are under
	// the "_" key.
	Args bson.D
	// FArgs is the decoded free-form fargs parameter.
	FArgs bson.D
	// Body is the request body, for POST/PUT payloads.
	Body      io.Reader
	Caller    CallerInfo
	User      string
	RequestID string
}

// StartResult is returned by Start.
type StartResult struct {
	Status int
	// Headers are added to the response. "Transfer-Encoding: chunked" turns on
	// per-write chunk framing.
	Headers map[string]string
	// First is emitted before anything from the stream. Nil means none.
	First bson.D
	// More continues with Stream and End. When false the response ends after
	// First.
	More bool
}

// Handler is the mandatory part of the protocol.
type Handler interface {
	Help() *Help
	Start(req *Request) (StartResult, error)
}

// Constructor builds a Handler for one request. state is the opaque value
// given at registration.
type Constructor func(state interface{}) Handler

// Streamer produces the documents that follow Start's first document. The
// returned cursor is drained exactly once.
type Streamer interface {
	Stream() Cursor
}

// Finisher produces an optional trailing document after the stream.
type Finisher interface {
	End() bson.D
}

// AuthResult is the outcome of an authentication check.
type AuthResult struct {
	OK   bool
	User string
	// Detail is attached to the failure document as "data" when non-nil.
	Detail interface{}
}

// Authenticator lets a handler override the server-wide authenticator.
type Authenticator interface {
	Authenticate(req *Request) (AuthResult, error)
}

// CallLogger lets a handler override the server-wide call-log sink.
type CallLogger interface {
	LogCall(ctx context.Context, rec *calllog.Record) error
}

// Capabilities records which optional interfaces a handler implements.
type Capabilities struct {
	Streamer      Streamer
	Finisher      Finisher
	Authenticator Authenticator
	CallLogger    CallLogger
}

// Detect inspects h once. Nil fields mean the capability is absent.
func Detect(h Handler) Capabilities {
	var c Capabilities
	c.Streamer, _ = h.(Streamer)
	c.Finisher, _ = h.(Finisher)
	c.Authenticator, _ = h.(Authenticator)
	c.CallLogger, _ = h.(CallLogger)
	return c
}
