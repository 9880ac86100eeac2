package backend

import (
	"io"
	"os"
	"strconv"

	"github.com/YuminosukeSato/goml/core/deferred"
	"github.com/YuminosukeSato/goml/core/parallel"
	"github.com/YuminosukeSato/goml/core/serializer"
	"github.com/YuminosukeSato/goml/core/shm"
	"github.com/YuminosukeSato/goml/pkg/errors"
	"github.com/YuminosukeSato/goml/pkg/log"
)

// IsWorkerProcess reports whether this process was started by a Process
// backend to run part of a batch.
func IsWorkerProcess() bool {
	return os.Getenv(workerEnv) == "1"
}

// Init turns the current process into a pool worker when it was started as
// one: it runs the worker and exits. Otherwise it returns immediately.
//
//	func main() {
//	    backend.Init()
//	    ...
//	}
func Init() {
	if IsWorkerProcess() {
		os.Exit(RunWorker())
	}
}

// RunWorker executes this worker's share of the batch described by the
// environment, stdin and the inherited tables, and returns the exit status.
func RunWorker() int {
	logger := log.GetLoggerWithName("backend.worker").With(
		log.OperationKey, log.OperationWorker,
		log.ProcessIDKey, os.Getpid())

	codec, err := serializer.Lookup(os.Getenv(codecEnv))
	if err != nil {
		logger.Error("unknown codec", log.ErrAttrKey, err)
		return 1
	}
	poolSize, err := strconv.Atoi(os.Getenv(poolSizeEnv))
	if err != nil || poolSize < 1 {
		logger.Error("invalid pool size", poolSizeEnv, os.Getenv(poolSizeEnv))
		return 1
	}

	results, err := shm.Attach(os.NewFile(resultsFD, "results"))
	if err != nil {
		logger.Error("attach result table", log.ErrAttrKey, err)
		return 1
	}
	defer results.Close()
	claims, err := shm.Attach(os.NewFile(claimsFD, "claims"))
	if err != nil {
		logger.Error("attach claim table", log.ErrAttrKey, err)
		return 1
	}
	defer claims.Close()

	w := &worker{
		registry: deferred.Default(),
		codec:    codec,
		results:  results,
		claims:   claims,
		poolSize: poolSize,
		pid:      os.Getpid(),
		logger:   logger,
	}
	if err := w.run(os.Stdin); err != nil {
		logger.Error("worker failed", log.ErrAttrKey, err)
		return 1
	}
	return 0
}

type worker struct {
	registry *deferred.Registry
	codec    serializer.Serializer
	results  *shm.Table
	claims   *shm.Table
	poolSize int
	pid      int
	logger   log.Logger
}

// run claims a worker id, then computes and stores every owned index. It
// stops at the first failure, after marking the failed slot.
func (w *worker) run(in io.Reader) error {
	payload, err := io.ReadAll(in)
	if err != nil {
		return errors.Wrap(err, "read task payload")
	}
	var tasks []deferred.Task
	if err := serializer.UnserializeInto(w.codec, payload, &tasks); err != nil {
		return err
	}

	id, err := w.claims.Claim(w.pid)
	if err != nil {
		return err
	}
	if id >= w.poolSize {
		return errors.Newf("claimed id %d outside pool of %d", id, w.poolSize)
	}
	if w.results.Capacity() < len(tasks) {
		return errors.Newf("result table holds %d slots for %d tasks", w.results.Capacity(), len(tasks))
	}
	logger := w.logger.With(log.WorkerIDKey, id)
	logger.Debug("worker claimed id", log.QueueLenKey, len(tasks))

	return parallel.Strided(len(tasks), w.poolSize, id, func(i int) error {
		t := tasks[i]
		v, err := w.registry.Call(t)
		if err != nil {
			_ = w.results.Fail(i, shm.TaskFailed, err.Error())
			return errors.NewTaskError(i, t.Func, err)
		}
		b, err := w.codec.Serialize(v)
		if err == nil {
			err = w.results.Put(i, b)
		}
		if err != nil {
			_ = w.results.Fail(i, shm.EncodeFailed, err.Error())
			return errors.NewTaskError(i, t.Func, errors.NewSerializationError("serialize", w.codec.String(), err))
		}
		logger.Debug("task stored", log.TaskIndexKey, i, log.TaskFuncKey, t.Func)
		return nil
	})
}
