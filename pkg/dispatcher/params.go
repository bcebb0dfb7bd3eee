package dispatcher

import (
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/morezero/webf/pkg/mson"
)

// parseQuery splits a raw query string into parameters, in order of first
// appearance. Pairs without "=" are ignored, a repeated name keeps its last
// value, and values are percent-decoded without turning "+" into a space.
func parseQuery(raw string) bson.D {
	params := bson.D{}
	if raw == "" {
		return params
	}
	for _, pair := range strings.Split(raw, "&") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}
		params = mson.Set(params, name, value)
	}
	return params
}

func param(params bson.D, name string) (string, bool) {
	v, ok := mson.Get(params, name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// functionPath splits the escaped request path on "/" and decodes each
// segment, so an encoded "%2F" stays inside its segment. A segment that does
// not decode is kept as sent.
func functionPath(u *url.URL) []string {
	segs := strings.Split(strings.TrimPrefix(u.EscapedPath(), "/"), "/")
	for i, seg := range segs {
		if decoded, err := url.PathUnescape(seg); err == nil {
			segs[i] = decoded
		}
	}
	return segs
}
