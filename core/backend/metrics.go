package backend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

// Metrics records per-backend task counts and batch latency.
type Metrics struct {
	tasks *prometheus.CounterVec
	batch *prometheus.HistogramVec
}

// NewMetrics registers the backend collectors with reg. Registering twice
// against the same registry reuses the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	tasks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goml",
		Subsystem: "backend",
		Name:      "tasks_total",
		Help:      "Tasks processed, by backend and batch outcome.",
	}, []string{"backend", "status"})
	batch := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "goml",
		Subsystem: "backend",
		Name:      "batch_duration_seconds",
		Help:      "Wall time of Process calls.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
	}, []string{"backend"})

	var err error
	if tasks, err = register(reg, tasks); err != nil {
		return nil, err
	}
	if batch, err = register(reg, batch); err != nil {
		return nil, err
	}
	return &Metrics{tasks: tasks, batch: batch}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "register backend metrics")
	}
	return c, nil
}

func (m *Metrics) observe(backend string, n int, d time.Duration, err error) {
	if m == nil || n == 0 {
		return
	}
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.tasks.WithLabelValues(backend, status).Add(float64(n))
	m.batch.WithLabelValues(backend).Observe(d.Seconds())
}
