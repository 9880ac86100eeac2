// Package deferred defines the unit of work dispatched by the backends.
//
// A Task names a registered function and carries plain-data arguments. It
// never holds a closure, so any backend can move it to another goroutine,
// coroutine or OS process and resolve the same function there by name.
package deferred

import (
	"fmt"
	"strings"
)

// Func is the signature of every dispatchable computation. It must be a
// pure function of its arguments.
type Func func(args Args) (any, error)

// Callback receives a task result in the caller's goroutine, together with
// the context value given at enqueue time.
type Callback func(result any, context any)

// Task is an immutable function reference plus its argument list.
type Task struct {
	Func string
	Args []any
}

// New creates a Task for the registered function fn. The argument slice is
// copied.
func New(fn string, args ...any) Task {
	cp := make([]any, len(args))
	copy(cp, args)
	return Task{Func: fn, Args: cp}
}

// Arguments returns the task arguments with typed accessors.
func (t Task) Arguments() Args {
	return Args(t.Args)
}

func (t Task) String() string {
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = fmt.Sprintf("%v", a)
	}
	return t.Func + "(" + strings.Join(parts, ", ") + ")"
}
