// Package client calls functions served by a webf dispatcher and decodes the
// returned document stream in any of the wire formats.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/morezero/webf/pkg/mson"
)

const logPrefix = "client:client"

// Format names the Accept header a call is made with.
type Format string

const (
	JSON          Format = "application/json"
	JSONBoundary  Format = "application/json; boundary=LF"
	EJSON         Format = "application/ejson"
	EJSONBoundary Format = "application/ejson; boundary=LF"
	BSON          Format = "application/bson"
)

// Client invokes functions on one server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	format     Format
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithFormat sets the default wire format. EJSON is used otherwise.
func WithFormat(f Format) Option {
	return func(c *Client) { c.format = f }
}

// New creates a Client for baseURL, e.g. "http://localhost:7778".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "webf-client/1",
		format:     EJSON,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CallOptions are per-call settings. The zero value is valid.
type CallOptions struct {
	// Format overrides the client's default format.
	Format Format
	FArgs  bson.D
	// Positional segments are appended to the function path.
	Positional []string
	Headers    http.Header
	// Body is sent as the request body, for POST and PUT.
	Body        io.Reader
	ContentType string
}

// Result is a fully read call response.
type Result struct {
	Status int
	Header http.Header
	Docs   []bson.D
}

// Call invokes function and reads every returned document.
func (c *Client) Call(ctx context.Context, method, function string, args bson.D, opts *CallOptions) (*Result, error) {
	s, err := c.Stream(ctx, method, function, args, opts)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	res := &Result{Status: s.Status, Header: s.Header}
	for s.Next() {
		res.Docs = append(res.Docs, s.Doc())
	}
	if err := s.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// Stream invokes function and returns a Stream over the response documents.
// The caller must Close it.
func (c *Client) Stream(ctx context.Context, method, function string, args bson.D, opts *CallOptions) (*Stream, error) {
	if opts == nil {
		opts = &CallOptions{}
	}
	format := opts.Format
	if format == "" {
		format = c.format
	}

	target := c.callURL(function, args, opts)
	req, err := http.NewRequestWithContext(ctx, method, target, opts.Body)
	if err != nil {
		return nil, fmt.Errorf("%s - build request: %w", logPrefix, err)
	}
	for k, vs := range opts.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", string(format))
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if opts.ContentType != "" {
		req.Header.Set("Content-Type", opts.ContentType)
	}

	slog.Debug(fmt.Sprintf("%s - %s %s", logPrefix, method, target))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s - %s %s: %w", logPrefix, method, function, err)
	}

	dec, err := newDecoder(resp.Header.Get("Content-Type"), resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	return &Stream{Status: resp.StatusCode, Header: resp.Header, body: resp.Body, dec: dec}, nil
}

// callURL builds /function[/positional...]?args=...&fargs=... . Parameters
// are percent-encoded with %20 for spaces because the server does not treat
// "+" as a space.
func (c *Client) callURL(function string, args bson.D, opts *CallOptions) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteByte('/')
	b.WriteString(strings.TrimPrefix(function, "/"))
	for _, seg := range opts.Positional {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}

	sep := byte('?')
	for _, p := range []struct {
		name string
		doc  bson.D
	}{{"args", args}, {"fargs", opts.FArgs}} {
		if p.doc == nil {
			continue
		}
		b.WriteByte(sep)
		b.WriteString(p.name)
		b.WriteByte('=')
		b.WriteString(escapeParam(string(mson.Marshal(p.doc, mson.Mongo))))
		sep = '&'
	}
	return b.String()
}

func escapeParam(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Stream iterates the documents of one response.
type Stream struct {
	Status int
	Header http.Header
	body   io.ReadCloser
	dec    decoder
	doc    bson.D
	err    error
}

// Next reads the next document.
func (s *Stream) Next() bool {
	if s.err != nil {
		return false
	}
	doc, err := s.dec.next()
	if err != nil {
		if err != io.EOF {
			s.err = err
		}
		return false
	}
	s.doc = doc
	return true
}

// Doc returns the current document.
func (s *Stream) Doc() bson.D { return s.doc }

// Err returns the first decoding or transport error.
func (s *Stream) Err() error { return s.err }

// Close releases the connection.
func (s *Stream) Close() error { return s.body.Close() }
