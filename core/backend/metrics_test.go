package backend

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/goml/core/deferred"
)

func TestMetricsCountTasksByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	b := NewSerial(WithMetrics(m))
	for i := 0; i < 3; i++ {
		b.Enqueue(deferred.New("test.double", i))
	}
	_, err = b.Process()
	require.NoError(t, err)

	b.Enqueue(deferred.New("test.explode", 0, 0))
	b.Enqueue(deferred.New("test.double", 1))
	_, err = b.Process()
	require.Error(t, err)

	// empty batches are not recorded
	_, err = b.Process()
	require.NoError(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.tasks.WithLabelValues(NameSerial, "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasks.WithLabelValues(NameSerial, "failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.batch), "one latency series per backend")
}

func TestNewMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	require.NoError(t, err)
	second, err := NewMetrics(reg)
	require.NoError(t, err)

	pool, err := NewPool(WithWorkers(2), WithMetrics(second))
	require.NoError(t, err)
	defer pool.Close()
	pool.Enqueue(deferred.New("test.double", 1))
	_, err = pool.Process()
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(first.tasks.WithLabelValues(NamePool, "ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.observe(NameSerial, 1, 0, nil) })
}
