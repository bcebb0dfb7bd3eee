package dispatcher

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/morezero/webf/pkg/handler"
	"github.com/morezero/webf/pkg/response"
)

// ErrAborted ends a stream early without an operator report.
var ErrAborted = errors.New("stream aborted")

// respond runs the current handler and streams its documents. The status
// line and headers are fixed before the first body byte.
func (c *call) respond() {
	if c.wroteHeader {
		return
	}

	res, err := c.h.Start(c.request())
	if err != nil {
		c.fault(fmt.Errorf("start: %w", err))
		return
	}
	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}

	c.status = status
	c.wroteHeader = true
	out := response.Begin(c.w, response.Head{
		Status:     status,
		Format:     response.Negotiate(c.r.Header.Get("Accept")),
		Extra:      res.Headers,
		CORSOrigin: c.d.cors,
		RequestID:  c.reqID,
	})
	c.out = out

	if err := c.stream(out, res); err != nil {
		// The client went away; nothing more can be sent.
		slog.Debug(fmt.Sprintf("%s - write to %s aborted after %d docs: %v", logPrefix, c.caller.IP, out.Count(), err))
	}
}

func (c *call) stream(out *response.Writer, res handler.StartResult) error {
	if err := out.Prologue(); err != nil {
		return err
	}
	if res.First != nil {
		if err := out.Emit(res.First); err != nil {
			return err
		}
	}

	if res.More {
		caps := handler.Detect(c.h)
		if caps.Streamer != nil {
			cur := caps.Streamer.Stream()
			for cur.Next() {
				if err := out.Emit(cur.Doc()); err != nil {
					return err
				}
			}
			if err := cur.Err(); errors.Is(err, ErrAborted) {
				slog.Debug(fmt.Sprintf("%s - stream for %s ended early after %d docs", logPrefix, c.function, out.Count()))
			} else if err != nil {
				// Headers are out, so the framing is closed normally and the
				// failure only goes to the operator.
				slog.Error(fmt.Sprintf("%s - stream for %s failed after %d docs: %v", logPrefix, c.function, out.Count(), err), "reqid", c.reqID)
			}
		}
		if caps.Finisher != nil {
			if doc := caps.Finisher.End(); doc != nil {
				if err := out.Emit(doc); err != nil {
					return err
				}
			}
		}
	}

	c.closed = true
	return out.Epilogue()
}

// fault reports an unexpected failure to the operator and, if nothing has
// been written yet, answers with a 500 error document.
func (c *call) fault(cause error) {
	slog.Error(fmt.Sprintf("%s - internal error in %q: %v", logPrefix, c.function, cause),
		"reqid", c.reqID, "stack", string(debug.Stack()))

	if c.wroteHeader {
		// The status is already out; close the framing so the client still
		// gets a well-formed body.
		if c.out != nil && !c.closed {
			c.closed = true
			if err := c.out.Epilogue(); err != nil {
				slog.Debug(fmt.Sprintf("%s - closing body for %s failed: %v", logPrefix, c.function, err))
			}
		}
		return
	}
	if c.faulted {
		return
	}
	c.faulted = true
	c.fail(http.StatusInternalServerError, internalErrorDoc(c.function))
	c.respond()
}

// recoverFault turns a panic anywhere in the pipeline into a fault. The call
// is still logged unless the panic came from logging itself.
func (c *call) recoverFault() {
	rec := recover()
	if rec == nil {
		return
	}
	if rec == http.ErrAbortHandler {
		panic(rec)
	}

	err, ok := rec.(error)
	if !ok {
		err = fmt.Errorf("%v", rec)
	}
	c.fault(fmt.Errorf("panic: %w", err))

	if !c.logged {
		if c.status == 0 {
			c.status = http.StatusInternalServerError
		}
		c.log()
	}
}
