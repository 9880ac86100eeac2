// Package backend runs batches of deferred tasks on interchangeable
// execution substrates.
//
// A caller enqueues tasks, then calls Process once to drain the queue. The
// returned slice is indexed by enqueue order regardless of which backend ran
// the batch or in which order the tasks completed. A batch is all or
// nothing: if any task fails, Process returns a single error and no results.
//
// Four backends are provided:
//
//   - Serial runs every task in order on the calling goroutine.
//   - Pool submits every task to a fixed-size goroutine pool.
//   - Coroutine interleaves tasks as cooperative coroutines on one OS thread.
//   - Process re-executes the current binary as a pool of worker processes
//     that write results into a shared-memory table.
//
// Programs that use Process must call Init at the top of main (and test
// binaries at the top of TestMain) so that worker processes run their share
// of the batch instead of the program.
package backend

import (
	"strings"
	"time"

	"github.com/YuminosukeSato/goml/core/deferred"
	"github.com/YuminosukeSato/goml/core/serializer"
	"github.com/YuminosukeSato/goml/pkg/config"
	"github.com/YuminosukeSato/goml/pkg/errors"
	"github.com/YuminosukeSato/goml/pkg/log"
)

// Backend is an execution strategy over a queue of tasks. A Backend is owned
// by a single goroutine; it is not safe for concurrent use.
type Backend interface {
	// Enqueue appends task to the queue and returns its index. It never
	// blocks and never runs the task.
	Enqueue(task deferred.Task, opts ...EnqueueOption) int

	// Process runs every queued task and returns the results in enqueue
	// order, clearing the queue. An empty queue yields an empty slice.
	Process() ([]any, error)

	// Flush discards the queue without running anything.
	Flush()

	// Workers reports the concurrency degree.
	Workers() int

	String() string
}

// Names returned by Backend.String.
const (
	NameSerial    = "Serial"
	NamePool      = "Pool"
	NameCoroutine = "Coroutine"
	NameProcess   = "ProcessPool"
)

func init() {
	serializer.Register([]deferred.Task{})
}

// EnqueueOption configures a single enqueued task.
type EnqueueOption func(*entry)

// WithCallback registers cb to receive the task's result together with
// context. Callbacks run on the goroutine that called Process, in enqueue
// order, as soon as the task and every task before it have completed.
// Results after the first failed task are never passed to callbacks.
func WithCallback(cb deferred.Callback, context any) EnqueueOption {
	return func(e *entry) {
		e.callback = cb
		e.context = context
	}
}

type entry struct {
	task     deferred.Task
	callback deferred.Callback
	context  any
}

func (e *entry) fire(result any) {
	if e.callback != nil {
		e.callback(result, e.context)
	}
}

// queue hands out indices explicitly: an index is the position in the
// current batch, reset by drain and flush.
type queue struct {
	entries []entry
}

func (q *queue) push(t deferred.Task, opts []EnqueueOption) int {
	e := entry{task: t}
	for _, opt := range opts {
		opt(&e)
	}
	q.entries = append(q.entries, e)
	return len(q.entries) - 1
}

func (q *queue) drain() []entry {
	es := q.entries
	q.entries = nil
	return es
}

func (q *queue) len() int { return len(q.entries) }

// emitter fires callbacks for the contiguous completed prefix of a batch.
type emitter struct {
	entries []entry
	results []any
	done    []bool
	failed  bool
	next    int
}

func newEmitter(entries []entry) *emitter {
	return &emitter{
		entries: entries,
		results: make([]any, len(entries)),
		done:    make([]bool, len(entries)),
	}
}

func (em *emitter) complete(i int, v any) {
	em.results[i] = v
	em.done[i] = true
	for !em.failed && em.next < len(em.done) && em.done[em.next] {
		em.entries[em.next].fire(em.results[em.next])
		em.next++
	}
}

// fail stops callbacks at the current prefix. The failed index never
// completes, so nothing after it fires either.
func (em *emitter) fail() { em.failed = true }

// Option configures a backend at construction.
type Option func(*options)

type options struct {
	workers    int
	registry   *deferred.Registry
	serializer serializer.Serializer
	logger     log.Logger
	metrics    *Metrics
	slotSize   int
}

// DefaultSlotSize is the payload width of a shared result slot.
const DefaultSlotSize = 512

func newOptions(opts []Option) options {
	o := options{
		registry:   deferred.Default(),
		serializer: serializer.Default(),
		slotSize:   DefaultSlotSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithWorkers sets the concurrency degree. Zero or less picks the number of
// available CPUs. Ignored by Serial and Coroutine.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRegistry resolves task names against r instead of the default
// registry. Process ignores it: worker processes always use the default
// registry, populated by init functions.
func WithRegistry(r *deferred.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithSerializer sets the codec used across the process boundary.
func WithSerializer(s serializer.Serializer) Option {
	return func(o *options) {
		if s != nil {
			o.serializer = s
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records task and batch metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithSlotSize sets the shared result slot width in bytes for Process.
func WithSlotSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.slotSize = n
		}
	}
}

// base carries the queue and the parts every backend shares.
type base struct {
	name     string
	q        queue
	registry *deferred.Registry
	logger   log.Logger
	metrics  *Metrics
}

func newBase(name string, o options) base {
	logger := o.logger
	if logger == nil {
		logger = log.GetLoggerWithName("backend")
	}
	return base{
		name:     name,
		registry: o.registry,
		logger:   logger.With(log.BackendKey, name),
		metrics:  o.metrics,
	}
}

func (b *base) Enqueue(task deferred.Task, opts ...EnqueueOption) int {
	return b.q.push(task, opts)
}

func (b *base) Flush() {
	n := b.q.len()
	b.q.drain()
	b.logger.Debug("queue flushed", log.OperationKey, log.OperationFlush, log.QueueLenKey, n)
}

func (b *base) String() string { return b.name }

// begin drains the queue and logs the batch start.
func (b *base) begin() ([]entry, time.Time) {
	entries := b.q.drain()
	b.logger.Debug("processing batch", log.OperationKey, log.OperationProcess, log.QueueLenKey, len(entries))
	return entries, time.Now()
}

// finish logs and records the outcome of a batch.
func (b *base) finish(start time.Time, n int, err error) {
	elapsed := time.Since(start)
	b.metrics.observe(b.name, n, elapsed, err)
	if err != nil {
		b.logger.Error("batch failed", log.QueueLenKey, n, log.DurationMsKey, elapsed.Milliseconds(), log.ErrAttrKey, err)
		return
	}
	b.logger.Debug("batch finished", log.QueueLenKey, n, log.DurationMsKey, elapsed.Milliseconds())
}

// Close releases resources held by b, if it holds any.
func Close(b Backend) error {
	if c, ok := b.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// New constructs a backend by kind: "serial", "pool", "coroutine" or
// "process".
func New(kind string, opts ...Option) (Backend, error) {
	switch strings.ToLower(kind) {
	case config.KindSerial:
		return NewSerial(opts...), nil
	case config.KindPool:
		return NewPool(opts...)
	case config.KindCoroutine:
		return NewCoroutine(opts...), nil
	case config.KindProcess:
		return NewProcess(opts...)
	default:
		return nil, errors.NewValidationError("kind", "unknown backend", kind)
	}
}

// failedBatch wraps the task errors of a batch in which failed of total
// execution units did not finish.
func failedBatch(name string, total, failed int, errs error) error {
	return errors.NewPoolIncompleteError(name, total, failed, errs)
}
