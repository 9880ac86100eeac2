// Package goml is the task-dispatch layer of a machine learning toolkit.
//
// Model-selection code such as cross-validation describes its work as a
// queue of named, serializable tasks and hands the queue to a backend. The
// backend decides where the tasks run; the caller always gets the results
// back in submission order.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/goml/core/backend"
//	    "github.com/YuminosukeSato/goml/core/deferred"
//	)
//
//	func init() {
//	    deferred.Register("square", func(args deferred.Args) (any, error) {
//	        x, err := args.Float(0)
//	        return x * x, err
//	    })
//	}
//
//	func main() {
//	    backend.Init() // required for the process pool
//
//	    b, err := backend.New("process", backend.WithWorkers(4))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    for i := 0; i < 8; i++ {
//	        b.Enqueue(deferred.New("square", float64(i)))
//	    }
//	    results, err := b.Process()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(results)
//	}
//
// # Packages
//
//   - core/deferred: tasks, the function registry, futures
//   - core/serializer: native (gob), binary (msgpack), json and zstd-compressed codecs
//   - core/backend: Serial, Pool, Coroutine and Process backends
//   - core/shm: the shared-memory result table used by worker processes
//   - core/parallel: chunked and strided parallel loops
//   - pkg/config: backend selection from files and GOML_* environment variables
//   - pkg/errors, pkg/log: typed errors and structured logging
//   - linear, metrics, validation: a linear model, regression scores and
//     k-fold cross-validation dispatched through any backend
package goml
