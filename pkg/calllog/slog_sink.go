package calllog

import (
	"context"
	"fmt"
	"log/slog"
)

const slogSinkLogPrefix = "calllog:slog_sink"

// SlogSink writes one structured log line per call.
type SlogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogSink creates a SlogSink. A nil logger uses slog.Default().
func NewSlogSink(logger *slog.Logger, level slog.Level) *SlogSink {
	return &SlogSink{logger: logger, level: level}
}

// Log emits the record.
func (s *SlogSink) Log(ctx context.Context, rec *Record) error {
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(ctx, s.level, fmt.Sprintf("%s - %s %s -> %d", slogSinkLogPrefix, rec.Function, rec.UserOrAnonymous(), rec.Status),
		slog.String("reqid", rec.RequestID),
		slog.String("ip", rec.Caller.IP),
		slog.Int("port", rec.Caller.Port),
		slog.Int64("millis", rec.Millis()),
	)
	return nil
}
