package backend

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/YuminosukeSato/goml/core/deferred"
	"github.com/YuminosukeSato/goml/core/serializer"
	"github.com/YuminosukeSato/goml/core/shm"
	"github.com/YuminosukeSato/goml/pkg/errors"
	"github.com/YuminosukeSato/goml/pkg/log"
)

// Process runs each batch on a fresh pool of worker processes.
//
// Go cannot fork a running runtime, so a worker is the current executable
// started again with GOML_BACKEND_WORKER=1; Init diverts it into RunWorker
// before the program's own main logic. The queue travels to every worker on
// stdin, encoded with the configured serializer. Results come back through
// a shared-memory table inherited as file descriptor 3, and worker ids are
// claimed from a second table on descriptor 4.
//
// Worker w computes the queue indices i with i % F == w. Tasks are assumed
// to cost about the same; a batch with a few expensive tasks will leave
// some workers idle while others finish.
type Process struct {
	base
	workers  int
	codec    serializer.Serializer
	slotSize int
	exe      string
}

// Environment passed to worker processes.
const (
	workerEnv   = "GOML_BACKEND_WORKER"
	codecEnv    = "GOML_BACKEND_CODEC"
	poolSizeEnv = "GOML_BACKEND_POOL_SIZE"
)

// file descriptors of the inherited tables in a worker
const (
	resultsFD = 3
	claimsFD  = 4
)

// stderrTail bounds how much worker output is kept for error reports.
const stderrTail = 4 << 10

// NewProcess prepares a process pool of WithWorkers size, the number of
// available CPUs by default. No process starts until Process is called.
func NewProcess(opts ...Option) (*Process, error) {
	if !shm.Supported {
		return nil, errors.ErrUnsupportedPlatform
	}
	o := newOptions(opts)
	cpus := detectCPUs()
	workers := o.workers
	if workers <= 0 {
		workers = cpus.available
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, errors.Wrap(err, "backend: locate executable for worker processes")
	}
	if _, err := serializer.Lookup(o.serializer.String()); err != nil {
		return nil, errors.Wrapf(err, "backend: codec %s cannot be rebuilt in a worker", o.serializer)
	}
	p := &Process{
		base:     newBase(NameProcess, o),
		workers:  workers,
		codec:    o.serializer,
		slotSize: o.slotSize,
		exe:      exe,
	}
	p.logger.Debug("process pool sized", log.WorkersKey, workers,
		log.CPUsAvailableKey, cpus.available, log.CPUsLogicalKey, cpus.logical, log.CPUsPhysicalKey, cpus.physical)
	if cpus.oversubscribed(workers) {
		p.logger.Warn(fmt.Sprintf("%d worker processes oversubscribe %d logical CPUs", workers, cpus.logical),
			log.WorkersKey, workers, log.CPUsLogicalKey, cpus.logical)
	}
	return p, nil
}

// Workers returns the number of worker processes per batch.
func (p *Process) Workers() int { return p.workers }

// Process encodes the queue, starts the workers, waits for every one of
// them and reads the results back in index order. If any worker exits
// unsuccessfully or any slot is left unfilled, the batch fails with a
// PoolIncompleteError and no results.
func (p *Process) Process() (results []any, err error) {
	entries, start := p.begin()
	defer func() { p.finish(start, len(entries), err) }()
	n := len(entries)
	if n == 0 {
		return []any{}, nil
	}
	if IsWorkerProcess() {
		return nil, errors.New("backend: a worker process cannot start its own process pool")
	}

	tasks := make([]deferred.Task, n)
	for i := range entries {
		tasks[i] = entries[i].task
	}
	payload, err := p.codec.Serialize(tasks)
	if err != nil {
		return nil, err
	}

	resultsTable, err := shm.NewTable(2*n, p.slotSize)
	if err != nil {
		return nil, err
	}
	defer resultsTable.Close()
	claims, err := shm.NewTable(p.workers, 0)
	if err != nil {
		return nil, err
	}
	defer claims.Close()

	if p.workers > n {
		errors.Warn(errors.NewIdleWorkersWarning(p.name, p.workers, n))
	}
	p.logger.Debug("starting worker processes", log.WorkersKey, p.workers, log.SlotsKey, resultsTable.Capacity(), log.CodecKey, p.codec.String())

	failures := p.runWorkers(payload, resultsTable, claims)

	// every slot of the batch must be Ready, whatever the exit codes said
	var slotErrs error
	for i := 0; i < n; i++ {
		slot, err := resultsTable.Get(i)
		if err != nil {
			slotErrs = errors.CombineErrors(slotErrs, err)
			continue
		}
		switch slot.State {
		case shm.Ready:
		case shm.Empty:
			slotErrs = errors.CombineErrors(slotErrs, errors.NewTaskError(i, tasks[i].Func, errors.New("no result written")))
		case shm.EncodeFailed:
			slotErrs = errors.CombineErrors(slotErrs, errors.NewTaskError(i, tasks[i].Func,
				errors.NewSerializationError("serialize", p.codec.String(), errors.New(string(slot.Data)))))
		default:
			slotErrs = errors.CombineErrors(slotErrs, errors.NewTaskError(i, tasks[i].Func, errors.New(string(slot.Data))))
		}
	}
	if len(failures) > 0 || slotErrs != nil {
		return nil, failedBatch(p.name, p.workers, len(failures), errors.CombineErrors(append(failures, slotErrs)...))
	}

	// decode the whole batch before any callback fires
	values := make([]any, n)
	for i := range values {
		slot, _ := resultsTable.Get(i)
		v, err := p.codec.Unserialize(slot.Data)
		if err != nil {
			return nil, errors.NewTaskError(i, tasks[i].Func, err)
		}
		values[i] = v
	}
	em := newEmitter(entries)
	for i, v := range values {
		em.complete(i, v)
	}
	return em.results, nil
}

// runWorkers starts F workers, waits for all of them and returns one error
// per worker that did not exit cleanly.
func (p *Process) runWorkers(payload []byte, results, claims *shm.Table) []error {
	var (
		mu       sync.Mutex
		failures []error
		wg       sync.WaitGroup
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, err)
	}

	for w := 0; w < p.workers; w++ {
		stderr := &tailBuffer{limit: stderrTail}
		cmd := exec.Command(p.exe)
		cmd.Args = []string{os.Args[0]}
		cmd.Stdin = bytes.NewReader(payload)
		cmd.Stdout = stderr
		cmd.Stderr = stderr
		cmd.ExtraFiles = []*os.File{results.File(), claims.File()}
		cmd.Env = append(os.Environ(),
			workerEnv+"=1",
			codecEnv+"="+p.codec.String(),
			poolSizeEnv+"="+strconv.Itoa(p.workers),
		)

		if err := cmd.Start(); err != nil {
			fail(errors.Wrapf(err, "start worker process %d", w))
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			pid := cmd.Process.Pid
			if err := cmd.Wait(); err != nil {
				code := -1
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					code = exitErr.ExitCode()
				}
				p.logger.Error("worker process failed",
					log.ProcessIDKey, pid, log.ExitCodeKey, code, "stderr", stderr.String())
				fail(errors.Wrapf(err, "worker process %d", pid))
				return
			}
			p.logger.Debug("worker process exited", log.ProcessIDKey, pid)
		}()
	}
	wg.Wait()
	return failures
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (t *tailBuffer) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, b...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(b), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

