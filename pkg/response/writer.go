package response

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/morezero/webf/pkg/mson"
)

const logPrefix = "response:writer"

// Writer emits one response's documents. Each of Prologue, Emit and Epilogue
// issues exactly one Write on the underlying stream, so a chunking stream
// turns every call into one HTTP chunk.
type Writer struct {
	w       io.Writer
	format  Format
	framing Framing
	count   int
	buf     []byte
}

// NewWriter creates a Writer for f on w.
func NewWriter(w io.Writer, f Format) *Writer {
	return &Writer{w: w, format: f, framing: f.Framing()}
}

// Count returns the number of documents emitted so far.
func (w *Writer) Count() int { return w.count }

// Prologue opens the framing.
func (w *Writer) Prologue() error {
	if w.framing == FramingArray {
		return w.write([]byte{'['})
	}
	return nil
}

// Emit writes one document.
func (w *Writer) Emit(doc bson.D) error {
	w.buf = w.buf[:0]
	switch {
	case w.format.IsBSON():
		raw, err := bson.Marshal(doc)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - document not BSON encodable: %v", logPrefix, err))
			raw, err = bson.Marshal(bson.D{
				{Key: "errcode", Value: 6},
				{Key: "msg", Value: "unencodable document"},
				{Key: "data", Value: err.Error()},
			})
			if err != nil {
				return err
			}
		}
		w.buf = append(w.buf, raw...)
	case w.framing == FramingArray:
		if w.count > 0 {
			w.buf = append(w.buf, ',')
		}
		w.buf = mson.AppendDocument(w.buf, doc, w.format.Mode)
	default:
		w.buf = mson.AppendDocument(w.buf, doc, w.format.Mode)
		w.buf = append(w.buf, '\n')
	}
	w.count++
	return w.write(w.buf)
}

// Epilogue closes the framing.
func (w *Writer) Epilogue() error {
	if w.framing == FramingArray {
		return w.write([]byte("]\n"))
	}
	return nil
}

func (w *Writer) write(p []byte) error {
	_, err := w.w.Write(p)
	return err
}

// flushWriter pushes every write to the client immediately, which makes the
// HTTP server send each one as its own chunk.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if err != nil {
		return n, err
	}
	fw.f.Flush()
	return n, nil
}

// Head holds everything written before the first body byte.
type Head struct {
	Status int
	Format Format
	// Extra are handler-supplied headers.
	Extra map[string]string
	// CORSOrigin sets Access-Control-Allow-Origin when non-empty.
	CORSOrigin string
	RequestID  string
}

// IsChunked reports whether the extra headers ask for chunked framing.
func (h Head) IsChunked() bool {
	for k, v := range h.Extra {
		if strings.EqualFold(k, "Transfer-Encoding") && strings.EqualFold(strings.TrimSpace(v), "chunked") {
			return true
		}
	}
	return false
}

// Begin writes the status line and headers and returns a Writer for the body.
// When the handler asked for chunked transfer encoding every Writer call is
// flushed as one chunk; the zero-length terminating chunk is sent by the
// server when the handler returns.
func Begin(rw http.ResponseWriter, head Head) *Writer {
	hdr := rw.Header()
	hdr.Set("Content-Type", head.Format.ContentType())
	for k, v := range head.Extra {
		hdr.Set(k, v)
	}
	if head.CORSOrigin != "" {
		hdr.Set("Access-Control-Allow-Origin", head.CORSOrigin)
	}
	if head.RequestID != "" {
		hdr.Set("X-Request-Id", head.RequestID)
	}
	rw.WriteHeader(head.Status)

	var out io.Writer = rw
	if head.IsChunked() {
		if f, ok := rw.(http.Flusher); ok {
			out = flushWriter{w: rw, f: f}
		}
	}
	return NewWriter(out, head.Format)
}
