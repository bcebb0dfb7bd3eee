// Package dispatcher serves registered functions over HTTP.
//
// Every request runs through the same ordered gates: rate limit, header
// policy, path parsing, routing, handler construction, argument decoding,
// argument validation, authentication, invocation and call logging. A gate
// that fails swaps the function's handler for an error handler, so failures
// and successes leave through the same response writer.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/time/rate"

	"github.com/morezero/webf/pkg/auth"
	"github.com/morezero/webf/pkg/calllog"
	"github.com/morezero/webf/pkg/handler"
	"github.com/morezero/webf/pkg/mson"
	"github.com/morezero/webf/pkg/registry"
	"github.com/morezero/webf/pkg/response"
	"github.com/morezero/webf/pkg/validator"
)

const logPrefix = "dispatcher:dispatch"

// Options configures a Dispatcher.
type Options struct {
	// Registry holds the served functions. A new empty one is used when nil.
	Registry *registry.Registry
	// CORSOrigin sets Access-Control-Allow-Origin on every response.
	CORSOrigin string
	// RateLimit is the server-wide number of calls admitted per second.
	// Zero disables limiting.
	RateLimit float64
	// HeaderPolicy maps a header name to regular expressions; at least one
	// must match the header's value.
	HeaderPolicy map[string][]string
	// DisableHelp hides the built-in discovery function.
	DisableHelp bool
	// Authenticator is used for functions without their own.
	Authenticator auth.Authenticator
	// Sink receives call records for functions without their own logger.
	Sink calllog.Sink
	// ErrorHandler builds the handler that answers failed calls.
	ErrorHandler handler.ErrorHandlerFactory
}

// Dispatcher is an http.Handler serving the functions in its registry.
type Dispatcher struct {
	reg        *registry.Registry
	cors       string
	limiter    *rate.Limiter
	headers    []headerRule
	allowHelp  bool
	auth       auth.Authenticator
	sink       calllog.Sink
	errHandler handler.ErrorHandlerFactory
}

// New creates a Dispatcher and installs the discovery function.
func New(opts Options) (*Dispatcher, error) {
	rules, err := compileHeaderPolicy(opts.HeaderPolicy)
	if err != nil {
		return nil, err
	}

	reg := opts.Registry
	if reg == nil {
		reg = registry.NewRegistry()
	}
	if err := reg.RegisterBuiltin(registry.HelpFunction, newHelpHandler, reg); err != nil {
		return nil, fmt.Errorf("%s - failed to install help: %w", logPrefix, err)
	}

	errHandler := opts.ErrorHandler
	if errHandler == nil {
		errHandler = handler.NewErrorHandler
	}

	return &Dispatcher{
		reg:        reg,
		cors:       opts.CORSOrigin,
		limiter:    newRateGate(opts.RateLimit),
		headers:    rules,
		allowHelp:  !opts.DisableHelp,
		auth:       opts.Authenticator,
		sink:       opts.Sink,
		errHandler: errHandler,
	}, nil
}

// Registry returns the function registry.
func (d *Dispatcher) Registry() *registry.Registry {
	return d.reg
}

// Register adds a function; see registry.Registry.Register.
func (d *Dispatcher) Register(name string, ctor handler.Constructor, state interface{}) error {
	return d.reg.Register(name, ctor, state)
}

// Deregister removes a function; removing an unknown name is a no-op.
func (d *Dispatcher) Deregister(name string) {
	d.reg.Deregister(name)
}

var supportedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// call is the state of one request. It is owned by the goroutine serving the
// request.
type call struct {
	d     *Dispatcher
	w     http.ResponseWriter
	r     *http.Request
	reqID string
	start time.Time

	caller   handler.CallerInfo
	function string
	params   bson.D
	args     bson.D
	fargs    bson.D
	state    interface{}
	user     string

	h           handler.Handler
	status      int
	wroteHeader bool
	out         *response.Writer
	closed      bool
	faulted     bool
	logged      bool
}

// ServeHTTP runs the dispatch pipeline for one request.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !supportedMethods[r.Method] {
		http.Error(w, "Unsupported method ("+r.Method+")", http.StatusNotImplemented)
		return
	}

	c := &call{
		d:      d,
		w:      w,
		r:      r,
		reqID:  uuid.NewString(),
		start:  time.Now(),
		caller: callerInfo(r),
		params: bson.D{},
	}
	defer c.recoverFault()

	if d.limiter != nil && !d.limiter.Allow() {
		slog.Debug(fmt.Sprintf("%s - rate limited %s %s", logPrefix, r.Method, r.URL.Path))
		c.fail(http.StatusTooManyRequests, rateLimitedDoc())
		c.respond()
		return
	}

	if header, ok := checkHeaders(d.headers, r.Header); !ok {
		slog.Debug(fmt.Sprintf("%s - header %s rejected for %s", logPrefix, header, r.URL.Path))
		c.fail(http.StatusBadRequest, badHeaderDoc(header))
		c.respond()
		return
	}

	c.params = parseQuery(r.URL.RawQuery)
	target := resolveHelpAlias(functionPath(r.URL), d.allowHelp)

	c.prepare(target)
	c.respond()
	c.log()
}

// prepare resolves, constructs, decodes, validates and authenticates. Any
// failure leaves an error handler in c.h.
func (c *call) prepare(target []string) {
	route, err := c.d.reg.ResolveSegments(target)
	if err != nil {
		c.fail(http.StatusNotFound, noSuchFunctionDoc(strings.Join(target, "/")))
		return
	}
	c.function = route.Descriptor.Name
	c.state = route.Descriptor.State
	c.h = route.Descriptor.New()

	// Both parameters are decoded even if the first fails; the last failure
	// decides the response.
	failed := false
	c.args = bson.D{}
	if raw, ok := param(c.params, "args"); ok {
		if c.args, err = mson.Parse(raw, mson.Mongo); err != nil {
			c.args = nil
			c.fail(http.StatusBadRequest, malformedArgsDoc())
			failed = true
		}
	}
	if c.args != nil && route.Positional != nil {
		positional := make(bson.A, len(route.Positional))
		for i, seg := range route.Positional {
			positional[i] = seg
		}
		c.args = mson.Set(c.args, validator.PositionalKey, positional)
	}

	c.fargs = bson.D{}
	if raw, ok := param(c.params, "fargs"); ok {
		if c.fargs, err = mson.Parse(raw, mson.Mongo); err != nil {
			c.fargs = nil
			c.fail(http.StatusBadRequest, malformedFArgsDoc())
			failed = true
		}
	}
	if failed {
		return
	}

	if errs := validator.Check(c.h.Help(), c.args); len(errs) > 0 {
		c.fail(http.StatusBadRequest, errs...)
		return
	}

	c.authenticate()
}

func (c *call) authenticate() {
	var (
		res handler.AuthResult
		err error
	)
	if a := handler.Detect(c.h).Authenticator; a != nil {
		res, err = a.Authenticate(c.request())
	} else if c.d.auth != nil {
		res, err = c.d.auth.Authenticate(c.r.Context(), &auth.Call{
			Function: c.function,
			Handler:  c.h,
			State:    c.state,
			Caller:   c.caller,
			Headers:  c.r.Header,
			Args:     c.args,
		})
	} else {
		return
	}
	if err != nil {
		c.fault(fmt.Errorf("authenticate: %w", err))
		return
	}

	c.user = res.User
	if !res.OK {
		c.fail(http.StatusUnauthorized, authFailedDoc(res.User, res.Detail))
	}
}

// fail substitutes the error handler.
func (c *call) fail(status int, errs ...bson.D) {
	c.h = c.d.errHandler(status, errs)
}

func (c *call) request() *handler.Request {
	return &handler.Request{
		Context:   c.r.Context(),
		Method:    c.r.Method,
		Function:  c.function,
		Headers:   c.r.Header,
		Args:      c.args,
		FArgs:     c.fargs,
		Body:      c.r.Body,
		Caller:    c.caller,
		User:      c.user,
		RequestID: c.reqID,
	}
}

// log delivers the call record to the handler's own logger, or the sink.
func (c *call) log() {
	c.logged = true
	rec := &calllog.Record{
		RequestID: c.reqID,
		Caller:    c.caller,
		User:      c.user,
		Function:  c.function,
		Params:    c.params,
		Start:     c.start,
		End:       time.Now(),
		Status:    c.status,
	}

	// A client hangup must not drop the record.
	ctx := context.WithoutCancel(c.r.Context())
	var err error
	if l := handler.Detect(c.h).CallLogger; l != nil {
		err = l.LogCall(ctx, rec)
	} else if c.d.sink != nil {
		err = c.d.sink.Log(ctx, rec)
	}
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - call log for %s failed: %v", logPrefix, c.function, err))
	}
}

func callerInfo(r *http.Request) handler.CallerInfo {
	host, portStr, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return handler.CallerInfo{Name: r.RemoteAddr, IP: r.RemoteAddr}
	}
	port, _ := strconv.Atoi(portStr)
	return handler.CallerInfo{Name: host, IP: host, Port: port}
}
