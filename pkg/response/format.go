// Package response negotiates the wire format of a call's document stream and
// writes the stream with the matching framing.
package response

import (
	"strings"

	"github.com/morezero/webf/pkg/mson"
)

// Media types.
const (
	MediaJSON  = "application/json"
	MediaEJSON = "application/ejson"
	MediaBSON  = "application/bson"
)

// Framing is how documents are delimited on the wire.
type Framing int

const (
	// FramingArray wraps documents in a JSON array: "[", comma separated
	// documents, "]" and a newline.
	FramingArray Framing = iota
	// FramingNone writes documents back to back with no outer framing: one
	// per line for boundary-delimited JSON, raw concatenated BSON otherwise.
	FramingNone
)

// Format is a negotiated wire format.
type Format struct {
	Media string
	// Mode applies to JSON and EJSON only.
	Mode mson.Mode
	// Boundary selects newline-delimited JSON.
	Boundary bool
}

// Negotiate picks the format from an Accept header. Only the first
// semicolon-delimited token names the media type; "boundary=LF" or
// "boundary=CR" among the remaining tokens selects newline-delimited JSON.
// Anything unrecognised falls back to plain JSON.
func Negotiate(accept string) Format {
	tokens := strings.Split(accept, ";")
	for i := range tokens {
		tokens[i] = strings.TrimSpace(tokens[i])
	}

	var f Format
	switch strings.ToLower(tokens[0]) {
	case MediaBSON:
		return Format{Media: MediaBSON}
	case MediaEJSON:
		f = Format{Media: MediaEJSON, Mode: mson.Mongo}
	case MediaJSON:
		f = Format{Media: MediaJSON, Mode: mson.Pure}
	default:
		return Format{Media: MediaJSON, Mode: mson.Pure}
	}

	for _, tok := range tokens[1:] {
		key, value, ok := strings.Cut(tok, "=")
		if !ok || strings.TrimSpace(key) != "boundary" {
			continue
		}
		switch strings.TrimSpace(value) {
		case "LF", "CR":
			f.Boundary = true
		}
	}
	return f
}

// IsBSON reports whether documents are BSON encoded.
func (f Format) IsBSON() bool { return f.Media == MediaBSON }

// Framing returns the outer framing for f.
func (f Format) Framing() Framing {
	if f.IsBSON() || f.Boundary {
		return FramingNone
	}
	return FramingArray
}

// ContentType is the Content-Type header value for f.
func (f Format) ContentType() string {
	if f.Boundary && !f.IsBSON() {
		return f.Media + "; boundary=LF"
	}
	return f.Media
}
