package registry

import (
	"fmt"
	"strings"
)

// Route is a resolved request path.
type Route struct {
	Descriptor Descriptor
	// Positional holds the path segments after the function name, or nil
	// when there are none.
	Positional []string
}

// Resolve finds the longest registered name that prefixes path. A match must
// end at a "/" or at the end of the path, so "ab" never matches "abc". The
// leading "/" is ignored. Segments after the name are split on "/".
func (r *Registry) Resolve(path string) (Route, error) {
	return r.ResolveSegments(strings.Split(strings.TrimPrefix(path, "/"), "/"))
}

// ResolveSegments is Resolve for a path that is already split on "/" and
// decoded, so a segment may itself contain "/". Function names match whole
// leading segments.
func (r *Registry) ResolveSegments(segs []string) (Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.sorted {
		nameSegs := strings.Split(name, "/")
		if !hasSegmentPrefix(segs, nameSegs) {
			continue
		}
		route := Route{Descriptor: r.funcs[name]}
		rest := segs[len(nameSegs):]
		if len(rest) > 0 && !(len(rest) == 1 && rest[0] == "") {
			route.Positional = append([]string(nil), rest...)
		}
		return route, nil
	}

	path := strings.Join(segs, "/")
	return Route{}, &RegistryError{
		Code:    CodeFunctionNotFound,
		Message: fmt.Sprintf("no function matches %q", path),
		Details: path,
	}
}

func hasSegmentPrefix(segs, prefix []string) bool {
	if len(prefix) > len(segs) {
		return false
	}
	for i, p := range prefix {
		if segs[i] != p {
			return false
		}
	}
	return true
}
