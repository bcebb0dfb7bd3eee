// Package registry maps function names to handler constructors and resolves
// request paths to registered functions.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/morezero/webf/pkg/handler"
)

const logPrefix = "registry:registry"

// HelpFunction is the reserved name of the built-in discovery function.
const HelpFunction = "__help"

// Descriptor binds a function name to its constructor and opaque state.
type Descriptor struct {
	Name        string
	Constructor handler.Constructor
	State       interface{}
	builtin     bool
}

// Builtin reports whether the descriptor was installed by the server itself.
func (d Descriptor) Builtin() bool { return d.builtin }

// New builds a fresh handler instance for one request.
func (d Descriptor) New() handler.Handler {
	return d.Constructor(d.State)
}

// Registry is the function table. It is safe for concurrent use; lookups and
// routing take a read lock, Register and Deregister a write lock.
type Registry struct {
	mu     sync.RWMutex
	funcs  map[string]Descriptor
	sorted []string // longest first, then lexicographic
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Descriptor)}
}

// IsReserved reports whether name is reserved for built-in functions.
func IsReserved(name string) bool {
	return name == HelpFunction
}

// Register adds or replaces a function.
func (r *Registry) Register(name string, ctor handler.Constructor, state interface{}) error {
	if name == "" {
		return NewRegistryError(CodeInvalidName, "function name cannot be empty")
	}
	if ctor == nil {
		return NewRegistryError(CodeInvalidName, fmt.Sprintf("function %q has no constructor", name))
	}
	if IsReserved(name) {
		return NewRegistryError(CodeReservedName, fmt.Sprintf("function name %q is reserved", name))
	}
	r.put(Descriptor{Name: name, Constructor: ctor, State: state})
	slog.Debug(fmt.Sprintf("%s - Registered function %s", logPrefix, name))
	return nil
}

// RegisterBuiltin installs a server-provided function under a reserved name.
func (r *Registry) RegisterBuiltin(name string, ctor handler.Constructor, state interface{}) error {
	if !IsReserved(name) {
		return NewRegistryError(CodeInvalidName, fmt.Sprintf("%q is not a reserved name", name))
	}
	r.put(Descriptor{Name: name, Constructor: ctor, State: state, builtin: true})
	return nil
}

// Deregister removes a function. Removing an unknown name is a no-op.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[name]; !ok {
		return
	}
	delete(r.funcs, name)
	r.resort()
	slog.Debug(fmt.Sprintf("%s - Deregistered function %s", logPrefix, name))
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.funcs[name]
	return d, ok
}

// Names returns the names of all non-builtin functions, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name, d := range r.funcs {
		if !d.builtin {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered functions, builtins included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.funcs)
}

func (r *Registry) put(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, existed := r.funcs[d.Name]
	r.funcs[d.Name] = d
	if !existed {
		r.resort()
	}
}

// resort rebuilds the match order. Caller holds the write lock.
func (r *Registry) resort() {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	r.sorted = names
}
