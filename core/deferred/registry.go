package deferred

import (
	"sort"
	"sync"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

// Registry maps function names to implementations.
//
// Worker processes re-execute the same binary, so anything registered from
// an init function is visible on both sides of the process boundary.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register makes fn available under name. It panics if name is empty, fn is
// nil, or name is already registered.
func (r *Registry) Register(name string, fn Func) {
	if name == "" {
		panic("deferred: Register with empty name")
	}
	if fn == nil {
		panic("deferred: Register " + name + " with nil func")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.funcs[name]; dup {
		panic("deferred: Register called twice for " + name)
	}
	r.funcs[name] = fn
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the task's function and returns its raw result, which may be
// a *Future. Panics are converted to *errors.PanicError.
func (r *Registry) Invoke(t Task) (result any, err error) {
	fn, ok := r.Lookup(t.Func)
	if !ok {
		return nil, errors.NewUnknownFunctionError(t.Func)
	}
	err = errors.SafeExecute(t.Func, func() error {
		v, ferr := fn(Args(t.Args))
		result = v
		return ferr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Call runs the task and blocks until any returned Future resolves.
func (r *Registry) Call(t Task) (any, error) {
	return Resolve(r.Invoke(t))
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register adds fn to the default registry.
func Register(name string, fn Func) { defaultRegistry.Register(name, fn) }

// Lookup searches the default registry.
func Lookup(name string) (Func, bool) { return defaultRegistry.Lookup(name) }

// Call runs t against the default registry.
func Call(t Task) (any, error) { return defaultRegistry.Call(t) }
