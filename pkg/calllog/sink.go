package calllog

import (
	"context"
	"errors"
)

// Sink receives a Record after every call. Implementations are called
// concurrently from all request goroutines.
type Sink interface {
	Log(ctx context.Context, rec *Record) error
}

// NoOpSink discards records.
type NoOpSink struct{}

// Log is a no-op.
func (s *NoOpSink) Log(_ context.Context, _ *Record) error {
	return nil
}

// CallbackSink hands each record to a function. Any state the function needs
// is captured by the closure.
type CallbackSink struct {
	callback func(ctx context.Context, rec *Record) error
}

// NewCallbackSink creates a new CallbackSink.
func NewCallbackSink(cb func(ctx context.Context, rec *Record) error) *CallbackSink {
	return &CallbackSink{callback: cb}
}

// Log calls the callback.
func (s *CallbackSink) Log(ctx context.Context, rec *Record) error {
	return s.callback(ctx, rec)
}

// MultiSink fans a record out to several sinks. Every sink is called even when
// an earlier one fails; the failures are joined.
type MultiSink []Sink

// Log calls every sink in order.
func (m MultiSink) Log(ctx context.Context, rec *Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Log(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Combine returns a single Sink for the non-nil sinks given, or nil when
// there are none.
func Combine(sinks ...Sink) Sink {
	var out MultiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}
