package backend

import (
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/YuminosukeSato/goml/pkg/errors"
	"github.com/YuminosukeSato/goml/pkg/log"
)

// Pool dispatches tasks to a fixed-size goroutine pool. Each submitted task
// gets a handle, a one-shot channel its worker sends the outcome on; Process
// awaits the handles in enqueue order so results are reassembled by index
// rather than by completion.
type Pool struct {
	base
	pool *ants.Pool
	size int
}

type outcome struct {
	value any
	err   error
}

// handle is the receiving end of one task's outcome.
type handle <-chan outcome

const poolIdleExpiry = 10 * time.Second

// NewPool starts a goroutine pool of WithWorkers size, the number of
// available CPUs by default. Call Close to release it.
func NewPool(opts ...Option) (*Pool, error) {
	o := newOptions(opts)
	size := o.workers
	if size <= 0 {
		size = availableCPUs()
	}
	p := &Pool{base: newBase(NamePool, o), size: size}

	var err error
	p.pool, err = ants.NewPool(size,
		ants.WithExpiryDuration(poolIdleExpiry),
		ants.WithLogger(log.Printf(p.logger)),
		ants.WithPanicHandler(func(v any) {
			p.logger.Error("worker panicked outside a task", "panic", v)
		}))
	if err != nil {
		return nil, errors.Wrap(err, "backend: start goroutine pool")
	}
	p.logger.Debug("pool started", log.WorkersKey, size)
	return p, nil
}

// Workers returns the pool size.
func (p *Pool) Workers() int { return p.size }

// Process submits every task and waits for all of them. Task failures are
// collected, not short-circuited, and reported together.
func (p *Pool) Process() (results []any, err error) {
	entries, start := p.begin()
	defer func() { p.finish(start, len(entries), err) }()
	if len(entries) == 0 {
		return []any{}, nil
	}

	handles := make([]handle, len(entries))
	for i := range entries {
		handles[i] = p.submit(entries[i])
	}

	em := newEmitter(entries)
	var errs error
	failed := 0
	for i, h := range handles {
		o := <-h
		if o.err != nil {
			failed++
			errs = errors.CombineErrors(errs, errors.NewTaskError(i, entries[i].task.Func, o.err))
			em.fail()
			continue
		}
		em.complete(i, o.value)
	}
	if errs != nil {
		return nil, failedBatch(p.name, len(entries), failed, errs)
	}
	return em.results, nil
}

func (p *Pool) submit(e entry) handle {
	ch := make(chan outcome, 1)
	reg, task := p.registry, e.task
	err := p.pool.Submit(func() {
		v, err := reg.Call(task)
		ch <- outcome{value: v, err: err}
	})
	if err != nil {
		ch <- outcome{err: errors.Wrap(err, "submit to goroutine pool")}
	}
	return ch
}

// Close releases the pool, waiting briefly for running tasks.
func (p *Pool) Close() error {
	if err := p.pool.ReleaseTimeout(5 * time.Second); err != nil {
		return errors.Wrap(err, "backend: release goroutine pool")
	}
	return nil
}
