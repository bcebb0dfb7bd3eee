// Package demo holds sample functions that exercise the full handler
// protocol: a validated snack stream, a chunked clock and a body echo.
package demo

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/morezero/webf/pkg/handler"
	"github.com/morezero/webf/pkg/mson"
)

const logPrefix = "demo:demo"

// Function names registered by Register.
const (
	SnacksFunction = "snacks"
	ClockFunction  = "clock"
	EchoFunction   = "echo"
)

// maxEchoBody bounds the request body the echo function reads.
const maxEchoBody = 1 << 20

// Registrar is satisfied by *dispatcher.Dispatcher and *registry.Registry.
type Registrar interface {
	Register(name string, ctor handler.Constructor, state interface{}) error
}

// Options tunes the demo functions. Zero values use defaults.
type Options struct {
	// Version is advertised in every help document.
	Version string
	// Now is the clock used by the clock function.
	Now func() time.Time
}

// Register installs the demo functions.
func Register(r Registrar, opts Options) error {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	fns := []struct {
		name  string
		ctor  handler.Constructor
		state interface{}
	}{
		{SnacksFunction, NewSnacks, opts.Version},
		{ClockFunction, NewClock, opts},
		{EchoFunction, NewEcho, opts.Version},
	}
	for _, fn := range fns {
		if err := r.Register(fn.name, fn.ctor, fn.state); err != nil {
			return fmt.Errorf("%s - failed to register %s: %w", logPrefix, fn.name, err)
		}
		slog.Debug(fmt.Sprintf("%s - Registered %s", logPrefix, fn.name))
	}
	return nil
}

var snackDate = time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)

// Snacks streams maxCount snack documents.
type Snacks struct {
	version  string
	maxCount int64
}

// NewSnacks is the Snacks constructor; state is the advertised version.
func NewSnacks(state interface{}) handler.Handler {
	v, _ := state.(string)
	return &Snacks{version: v}
}

func (s *Snacks) Help() *handler.Help {
	return &handler.Help{
		Type:    "simple",
		Desc:    "Streams a number of snack documents.",
		Version: s.version,
		Args: []handler.ArgSpec{
			{Name: "maxCount", Type: "int", Required: true, Desc: "max number of snacks"},
		},
	}
}

func (s *Snacks) Start(req *handler.Request) (handler.StartResult, error) {
	// Present and an integer: validation ran before Start.
	v, _ := mson.Get(req.Args, "maxCount")
	s.maxCount, _ = mson.AsInt64(v)
	return handler.StartResult{
		Status:  http.StatusOK,
		Headers: map[string]string{"X-Header-1": "v1"},
		More:    true,
	}, nil
}

func (s *Snacks) Stream() handler.Cursor {
	var n int64
	return handler.NewFuncCursor(func() (bson.D, bool, error) {
		if n >= s.maxCount {
			return nil, false, nil
		}
		doc := snackDoc(n)
		n++
		return doc, true, nil
	})
}

func snackDoc(num int64) bson.D {
	amt, _ := primitive.ParseDecimal128("23.7")
	return bson.D{
		{Key: "name", Value: "buzz"},
		{Key: "addr", Value: bson.D{
			{Key: "city", Value: "NY"},
			{Key: "state", Value: "NY"},
			{Key: "zip", Value: "07078"},
			{Key: "loc", Value: bson.D{{Key: "n", Value: "139"}, {Key: "s", Value: "W82 St."}}},
		}},
		{Key: "num", Value: num},
		{Key: "CR", Value: "hello\nand\n\tgoodbye\nforever"},
		{Key: "quotes", Value: bson.A{`"yow"`, "hawai'i"}},
		{Key: "whatevs", Value: bson.D{{Key: "fpets", Value: bson.A{"dog", "cat", int32(3), snackDate}}}},
		{Key: "someDouble", Value: 11.11},
		{Key: "date", Value: snackDate},
		{Key: "amt", Value: amt},
	}
}

// Clock sends a timestamped first document followed by two more, each as its
// own HTTP chunk.
type Clock struct {
	opts Options
}

// NewClock is the Clock constructor; state is the Options given to Register.
func NewClock(state interface{}) handler.Handler {
	opts, _ := state.(Options)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Clock{opts: opts}
}

func (c *Clock) Help() *handler.Help {
	return &handler.Help{Type: "simple", Desc: "Streams timestamps in chunks.", Version: c.opts.Version}
}

func (c *Clock) Start(_ *handler.Request) (handler.StartResult, error) {
	return handler.StartResult{
		Status:  http.StatusOK,
		Headers: map[string]string{"Transfer-Encoding": "chunked"},
		First:   bson.D{{Key: "x", Value: int32(0)}, {Key: "name", Value: "buzz"}, {Key: "hdate", Value: c.opts.Now().UTC()}},
		More:    true,
	}, nil
}

func (c *Clock) Stream() handler.Cursor {
	amt, _ := primitive.ParseDecimal128("77.2")
	x := int32(1)
	return handler.NewFuncCursor(func() (bson.D, bool, error) {
		if x > 2 {
			return nil, false, nil
		}
		doc := bson.D{
			{Key: "x", Value: x},
			{Key: "name", Value: "buzz"},
			{Key: "hdate", Value: c.opts.Now().UTC()},
			{Key: "amt", Value: amt},
		}
		x++
		return doc, true, nil
	})
}

// Echo returns the call's method, args and, for POST, PUT and PATCH, the
// extended-JSON body it was sent.
type Echo struct {
	version string
}

// NewEcho is the Echo constructor; state is the advertised version.
func NewEcho(state interface{}) handler.Handler {
	v, _ := state.(string)
	return &Echo{version: v}
}

func (e *Echo) Help() *handler.Help {
	return &handler.Help{
		Type:             "simple",
		Desc:             "Echoes its arguments and request body.",
		Version:          e.version,
		AllowUnknownArgs: true,
	}
}

func (e *Echo) Start(req *handler.Request) (handler.StartResult, error) {
	doc := bson.D{
		{Key: "method", Value: req.Method},
		{Key: "args", Value: req.Args},
	}
	if hasBody(req.Method) && req.Body != nil {
		data, err := io.ReadAll(io.LimitReader(req.Body, maxEchoBody))
		if err != nil {
			return handler.StartResult{}, fmt.Errorf("%s - failed to read body: %w", logPrefix, err)
		}
		if len(data) > 0 {
			body, err := mson.Parse(string(data), mson.Mongo)
			if err != nil {
				return handler.StartResult{
					Status: http.StatusBadRequest,
					First:  bson.D{{Key: "errcode", Value: int32(4)}, {Key: "msg", Value: "malformed JSON body"}},
				}, nil
			}
			doc = append(doc, bson.E{Key: "body", Value: body})
		}
	}
	return handler.StartResult{Status: http.StatusOK, First: doc}, nil
}

func hasBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}
