package commsutil

import (
	"strings"
)

// DefaultCallLogSubject is the global subject every call record is published to.
const DefaultCallLogSubject = "webf.calls"

var subjectToken = strings.NewReplacer(
	"/", ".",
	" ", "_",
	"\t", "_",
	"*", "_",
	">", "_",
)

// BuildCallSubject builds the per-function call-log subject. Path separators in
// the function name become subject token separators and wildcard characters are
// neutralised.
func BuildCallSubject(base, function string) string {
	fn := strings.Trim(subjectToken.Replace(function), ".")
	if fn == "" {
		return base
	}
	return base + "." + fn
}
