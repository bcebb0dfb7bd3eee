package calllog

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/webf/pkg/commsutil"
)

const commsSinkLogPrefix = "calllog:comms_sink"

// CommsSinkOpts configures CommsSink. Nil or zero values use defaults.
type CommsSinkOpts struct {
	// Subject overrides the global call-log subject (CALL_LOG_SUBJECT).
	Subject string
}

// CommsSink publishes call records as extended JSON to COMMS subjects.
type CommsSink struct {
	nc      *comms.Conn
	subject string
}

// NewCommsSink creates a new CommsSink. Pass nil for opts to use defaults.
func NewCommsSink(nc *comms.Conn, opts *CommsSinkOpts) *CommsSink {
	subject := commsutil.DefaultCallLogSubject
	if opts != nil && opts.Subject != "" {
		subject = opts.Subject
	}
	return &CommsSink{nc: nc, subject: subject}
}

// Log publishes the record to the per-function subject and to the global
// subject.
func (s *CommsSink) Log(_ context.Context, rec *Record) error {
	data := commsutil.EncodeDocument(rec.Document())

	if rec.Function != "" {
		granular := commsutil.BuildCallSubject(s.subject, rec.Function)
		if err := s.nc.Publish(granular, data); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsSinkLogPrefix, granular, err))
			return err
		}
	}

	if err := s.nc.Publish(s.subject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsSinkLogPrefix, s.subject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published call record %s for %s", commsSinkLogPrefix, rec.RequestID, rec.Function))
	return nil
}
