package response

import (
	"testing"

	"github.com/morezero/webf/pkg/mson"
)

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name        string
		accept      string
		wantMedia   string
		wantMode    mson.Mode
		wantFraming Framing
		wantCT      string
	}{
		{"empty", "", MediaJSON, mson.Pure, FramingArray, "application/json"},
		{"json", "application/json", MediaJSON, mson.Pure, FramingArray, "application/json"},
		{"ejson", "application/ejson", MediaEJSON, mson.Mongo, FramingArray, "application/ejson"},
		{"bson", "application/bson", MediaBSON, mson.Pure, FramingNone, "application/bson"},
		{"json boundary LF", "application/json; boundary=LF", MediaJSON, mson.Pure, FramingNone, "application/json; boundary=LF"},
		{"ejson boundary CR", "application/ejson;boundary=CR", MediaEJSON, mson.Mongo, FramingNone, "application/ejson; boundary=LF"},
		{"unsupported boundary", "application/json; boundary=XX", MediaJSON, mson.Pure, FramingArray, "application/json"},
		{"bson ignores boundary", "application/bson; boundary=LF", MediaBSON, mson.Pure, FramingNone, "application/bson"},
		{"unknown type", "text/html", MediaJSON, mson.Pure, FramingArray, "application/json"},
		{"unknown type with boundary", "text/html; boundary=LF", MediaJSON, mson.Pure, FramingArray, "application/json"},
		{"comma list takes no negotiation", "application/ejson,application/json", MediaJSON, mson.Pure, FramingArray, "application/json"},
		{"first token only", "application/ejson; q=0.5; boundary=LF", MediaEJSON, mson.Mongo, FramingNone, "application/ejson; boundary=LF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Negotiate(tt.accept)
			if f.Media != tt.wantMedia {
				t.Errorf("response:format_test - Media = %q, want %q", f.Media, tt.wantMedia)
			}
			if f.Mode != tt.wantMode {
				t.Errorf("response:format_test - Mode = %v, want %v", f.Mode, tt.wantMode)
			}
			if f.Framing() != tt.wantFraming {
				t.Errorf("response:format_test - Framing = %v, want %v", f.Framing(), tt.wantFraming)
			}
			if f.ContentType() != tt.wantCT {
				t.Errorf("response:format_test - ContentType = %q, want %q", f.ContentType(), tt.wantCT)
			}
		})
	}
}
