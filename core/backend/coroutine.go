package backend

import (
	"runtime"

	"github.com/b97tsk/async"

	"github.com/YuminosukeSato/goml/core/deferred"
	"github.com/YuminosukeSato/goml/pkg/errors"
	"github.com/YuminosukeSato/goml/pkg/log"
)

// Coroutine runs every task of a batch as a cooperative coroutine on a
// single-threaded executor driven by the goroutine that calls Process.
//
// This is concurrency, not parallelism: at most one task computes at any
// moment, and the OS thread is locked for the whole batch. Tasks overlap
// only when they are I/O-bound and return a *deferred.Future; the task's
// coroutine then suspends until the future completes while other coroutines
// run. CPU-bound tasks gain nothing here; use Pool or Process for those.
type Coroutine struct {
	base
	last int
}

// NewCoroutine returns a Coroutine backend.
func NewCoroutine(opts ...Option) *Coroutine {
	return &Coroutine{base: newBase(NameCoroutine, newOptions(opts))}
}

// Workers returns the number of coroutines multiplexed by the last batch,
// or 1 before the first batch. They all share one OS thread.
func (c *Coroutine) Workers() int {
	if c.last == 0 {
		return 1
	}
	return c.last
}

// Process runs the batch to completion on the calling goroutine.
func (c *Coroutine) Process() (results []any, err error) {
	entries, start := c.begin()
	defer func() { c.finish(start, len(entries), err) }()
	if len(entries) == 0 {
		return []any{}, nil
	}
	c.last = len(entries)

	em := newEmitter(entries)
	var errs error
	failed := 0
	done := func(i int, v any, err error) {
		if err != nil {
			failed++
			errs = errors.CombineErrors(errs, errors.NewTaskError(i, entries[i].task.Func, err))
			em.fail()
			return
		}
		em.complete(i, v)
	}

	s := newScheduler()
	tasks := make([]async.Task, len(entries))
	for i := range entries {
		tasks[i] = c.coroutine(s, i, entries[i].task, done)
	}
	if err := s.run(tasks); err != nil {
		return nil, err
	}
	if errs != nil {
		return nil, failedBatch(c.name, len(entries), failed, errs)
	}
	return em.results, nil
}

// coroutine wraps one task. A task that returns a *deferred.Future yields
// until the future's outcome is delivered into the executor.
func (c *Coroutine) coroutine(s *scheduler, i int, t deferred.Task, done func(int, any, error)) async.Task {
	return func(co *async.Coroutine) async.Result {
		raw, err := c.registry.Invoke(t)
		f, pending := raw.(*deferred.Future)
		if pending && f == nil {
			raw, pending = nil, false
		}
		if err != nil || !pending {
			done(i, raw, err)
			return co.End()
		}
		c.logger.Debug("coroutine suspended", log.TaskIndexKey, i, log.TaskFuncKey, t.Func)
		st := s.await(f)
		return co.Await(st).Then(func(co *async.Coroutine) async.Result {
			o := st.Get()
			done(i, o.value, o.err)
			return co.End()
		})
	}
}

// scheduler drives an async.Executor from the calling goroutine. The
// executor's autorun only signals wake; Run is always invoked by run, so
// every coroutine body executes on the locked thread.
type scheduler struct {
	exec      async.Executor
	wake      chan struct{}
	remaining int // coroutines not yet ended
	inflight  int // futures whose outcome has not been delivered
}

func newScheduler() *scheduler {
	s := &scheduler{wake: make(chan struct{}, 1)}
	s.exec.Autorun(s.signal)
	return s
}

func (s *scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// await resolves f on its own goroutine and delivers the outcome as a
// state update inside the executor. remaining and inflight are only touched
// from coroutine bodies, which all run on the scheduling goroutine.
func (s *scheduler) await(f *deferred.Future) *async.State[outcome] {
	st := async.NewState(outcome{})
	s.inflight++
	go func() {
		v, err := deferred.Resolve(f, nil)
		s.exec.Spawn(async.Do(func() {
			s.inflight--
			st.Set(outcome{value: v, err: err})
		}))
	}()
	return st
}

// run spawns every task and returns once all of them ended. If the
// executor goes idle while coroutines remain and no future can resume
// them, it fails with UnfinishedCoroutinesError.
func (s *scheduler) run(tasks []async.Task) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.remaining = len(tasks)
	for _, t := range tasks {
		s.exec.Spawn(t.Then(async.Do(func() { s.remaining-- })))
	}

	for {
		s.exec.Run()
		if s.remaining == 0 {
			return nil
		}
		if s.inflight == 0 {
			select {
			case <-s.wake:
				continue
			default:
			}
			return errors.NewUnfinishedCoroutinesError(s.remaining, len(tasks))
		}
		<-s.wake
	}
}
