package deferred

import "github.com/YuminosukeSato/goml/pkg/errors"

// Future is the pending result of an I/O-bound computation started with Go.
//
// A task function may return a *Future instead of a value. The Coroutine
// backend suspends the task's coroutine until the future completes; every
// other backend simply blocks on Wait.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// Go runs fn on its own goroutine and returns a Future for its result.
func Go(fn func() (any, error)) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.err = errors.SafeExecute("deferred.Go", func() error {
			v, err := fn()
			f.value = v
			return err
		})
	}()
	return f
}

// Resolved returns an already completed Future.
func Resolved(value any, err error) *Future {
	f := &Future{done: make(chan struct{}), value: value, err: err}
	close(f.done)
	return f
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the result is available.
func (f *Future) Wait() (any, error) {
	<-f.done
	return f.value, f.err
}

// Resolve waits on v while it is a *Future, so a future yielding another
// future is followed to its final value. A nil *Future resolves to nil.
func Resolve(v any, err error) (any, error) {
	for err == nil {
		f, ok := v.(*Future)
		if !ok {
			break
		}
		if f == nil {
			v = nil
			break
		}
		v, err = f.Wait()
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
