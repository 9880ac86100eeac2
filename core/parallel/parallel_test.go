package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

func TestParallelizeCoversEveryIndexOnce(t *testing.T) {
	tests := []struct {
		name    string
		items   int
		workers int
	}{
		{"empty", 0, 4},
		{"fewer items than workers", 3, 8},
		{"even split", 16, 4},
		{"uneven split", 17, 4},
		{"single worker", 9, 1},
		{"zero workers clamps to one", 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make([]int32, tt.items)
			ParallelizeN(tt.items, tt.workers, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&seen[i], 1)
				}
			})
			for i, c := range seen {
				if c != 1 {
					t.Errorf("index %d visited %d times", i, c)
				}
			}
		})
	}
}

func TestParallelizeWithThresholdRunsInline(t *testing.T) {
	var calls int
	var mu sync.Mutex
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, 1, calls)
}

func stridedIndices(t *testing.T, items, workers, worker int) []int {
	t.Helper()
	var out []int
	require.NoError(t, Strided(items, workers, worker, func(i int) error {
		out = append(out, i)
		return nil
	}))
	return out
}

func TestStridedPartition(t *testing.T) {
	const items, workers = 10, 4

	assert.Equal(t, []int{0, 4, 8}, stridedIndices(t, items, workers, 0))
	assert.Equal(t, []int{1, 5, 9}, stridedIndices(t, items, workers, 1))
	assert.Equal(t, []int{2, 6}, stridedIndices(t, items, workers, 2))
	assert.Equal(t, []int{3, 7}, stridedIndices(t, items, workers, 3))

	// the union of all workers is exactly [0, items)
	owned := make(map[int]int)
	for w := 0; w < workers; w++ {
		for _, i := range stridedIndices(t, items, workers, w) {
			owned[i]++
			assert.Equal(t, w, i%workers)
		}
	}
	assert.Len(t, owned, items)
	for i, n := range owned {
		assert.Equalf(t, 1, n, "index %d owned %d times", i, n)
	}
}

func TestStridedIdleWorker(t *testing.T) {
	assert.Empty(t, stridedIndices(t, 2, 4, 3))
}

func TestStridedRejectsInvalidWorker(t *testing.T) {
	tests := []struct {
		name            string
		workers, worker int
	}{
		{"no workers", 0, 0},
		{"negative worker", 4, -1},
		{"worker past pool", 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			err := Strided(5, tt.workers, tt.worker, func(int) error {
				called = true
				return nil
			})
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
			assert.False(t, called)
		})
	}
}

func TestStridedStopsAtFirstError(t *testing.T) {
	boom := assert.AnError
	var visited []int
	err := Strided(10, 2, 0, func(i int) error {
		visited = append(visited, i)
		if i == 4 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{0, 2, 4}, visited)
}
