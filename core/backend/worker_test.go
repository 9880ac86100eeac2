//go:build unix

package backend

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/YuminosukeSato/goml/core/deferred"
	"github.com/YuminosukeSato/goml/core/serializer"
	"github.com/YuminosukeSato/goml/core/shm"
	"github.com/YuminosukeSato/goml/pkg/errors"
	"github.com/YuminosukeSato/goml/pkg/log"
)

// attach maps t a second time through a duplicated descriptor, the way a
// worker process sees it.
func attach(t *testing.T, table *shm.Table) *shm.Table {
	t.Helper()
	fd, err := unix.Dup(int(table.File().Fd()))
	require.NoError(t, err)
	other, err := shm.Attach(os.NewFile(uintptr(fd), "dup"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.Close() })
	return other
}

func newTestWorker(t *testing.T, pid, poolSize int, results, claims *shm.Table) *worker {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return &worker{
		registry: deferred.Default(),
		codec:    serializer.Native{},
		results:  attach(t, results),
		claims:   attach(t, claims),
		poolSize: poolSize,
		pid:      pid,
		logger:   logger,
	}
}

func encodeTasks(t *testing.T, tasks []deferred.Task) []byte {
	t.Helper()
	b, err := serializer.Native{}.Serialize(tasks)
	require.NoError(t, err)
	return b
}

func TestWorkersSplitQueueByStride(t *testing.T) {
	const n, workers = 11, 3
	tasks := make([]deferred.Task, n)
	for i := range tasks {
		tasks[i] = deferred.New("test.double", i)
	}
	payload := encodeTasks(t, tasks)

	results, err := shm.NewTable(2*n, 64)
	require.NoError(t, err)
	defer results.Close()
	claims, err := shm.NewTable(workers, 0)
	require.NoError(t, err)
	defer claims.Close()

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for w := 0; w < workers; w++ {
		wk := newTestWorker(t, 100+w, workers, results, claims)
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			errs[w] = wk.run(bytes.NewReader(payload))
		}(w)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	for i := 0; i < n; i++ {
		slot, err := results.Get(i)
		require.NoError(t, err)
		require.Equal(t, shm.Ready, slot.State, "slot %d", i)
		v, err := serializer.Native{}.Unserialize(slot.Data)
		require.NoError(t, err)
		assert.Equal(t, 2*i, v)
	}
	for i := n; i < results.Capacity(); i++ {
		slot, err := results.Get(i)
		require.NoError(t, err)
		assert.Equal(t, shm.Empty, slot.State, "slot %d beyond the batch", i)
	}

	pids := map[int]bool{}
	for id := 0; id < workers; id++ {
		pid, err := claims.Claimant(id)
		require.NoError(t, err)
		pids[pid] = true
	}
	assert.Len(t, pids, workers, "each worker claims a distinct id")
}

func TestWorkerMarksFailedSlot(t *testing.T) {
	tasks := []deferred.Task{
		deferred.New("test.explode", 0, 0),
		deferred.New("test.double", 1),
	}
	results, err := shm.NewTable(4, 64)
	require.NoError(t, err)
	defer results.Close()
	claims, err := shm.NewTable(1, 0)
	require.NoError(t, err)
	defer claims.Close()

	err = newTestWorker(t, 42, 1, results, claims).run(bytes.NewReader(encodeTasks(t, tasks)))
	var te *errors.TaskError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, 0, te.Index)

	slot, err := results.Get(0)
	require.NoError(t, err)
	assert.Equal(t, shm.TaskFailed, slot.State)
	assert.Contains(t, string(slot.Data), "exploded")

	slot, err = results.Get(1)
	require.NoError(t, err)
	assert.Equal(t, shm.Empty, slot.State, "the worker stops at its first failure")
}

func TestWorkerRejectsUndersizedTable(t *testing.T) {
	tasks := make([]deferred.Task, 5)
	for i := range tasks {
		tasks[i] = deferred.New("test.double", i)
	}
	results, err := shm.NewTable(2, 64)
	require.NoError(t, err)
	defer results.Close()
	claims, err := shm.NewTable(1, 0)
	require.NoError(t, err)
	defer claims.Close()

	err = newTestWorker(t, 7, 1, results, claims).run(bytes.NewReader(encodeTasks(t, tasks)))
	assert.Error(t, err)
}
