package backend

import "github.com/YuminosukeSato/goml/pkg/errors"

// Serial executes each task in enqueue order on the calling goroutine. It
// has no concurrency and no isolation, which makes it the reference the
// other backends are checked against.
type Serial struct {
	base
}

// NewSerial returns a Serial backend.
func NewSerial(opts ...Option) *Serial {
	return &Serial{base: newBase(NameSerial, newOptions(opts))}
}

// Workers always returns 1.
func (s *Serial) Workers() int { return 1 }

// Process runs the queue in order and stops at the first failing task.
func (s *Serial) Process() (results []any, err error) {
	entries, start := s.begin()
	defer func() { s.finish(start, len(entries), err) }()

	results = make([]any, len(entries))
	for i := range entries {
		e := &entries[i]
		v, err := s.registry.Call(e.task)
		if err != nil {
			return nil, errors.NewTaskError(i, e.task.Func, err)
		}
		results[i] = v
		e.fire(v)
	}
	return results, nil
}
