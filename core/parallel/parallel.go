// Package parallel partitions index ranges across workers.
//
// Parallelize splits [0, items) into contiguous chunks, one goroutine per
// chunk. Strided assigns indices round-robin (i mod workers), which is how
// the process pool distributes queue indices across worker processes.
package parallel

import (
	"runtime"
	"sync"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

// Parallelize divides the specified total number (items) according to the number of CPU cores,
// and executes the specified function (fn) in parallel for each range (start, end)
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeN(items, runtime.NumCPU(), fn)
}

// ParallelizeN is Parallelize with an explicit worker count.
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	if workers > items {
		workers = items // No need for more workers than items
	}

	// ceiling division
	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold performs parallelization only when the number of items exceeds the threshold
// If below threshold, normal sequential processing is performed
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// Strided calls fn for every index in [0, items) owned by worker, that is
// every i with i % workers == worker, in ascending order. It stops at the
// first error and returns it. workers must be positive and worker in
// [0, workers).
//
// Ownership is by position only; no attempt is made to balance tasks of
// unequal cost.
func Strided(items, workers, worker int, fn func(i int) error) error {
	if workers < 1 {
		return errors.NewValidationError("workers", "must be positive", workers)
	}
	if worker < 0 || worker >= workers {
		return errors.NewValidationError("worker", "out of range", worker)
	}
	for i := worker; i < items; i += workers {
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}
