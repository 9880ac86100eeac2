package validation

import (
	"math/rand/v2"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/goml/core/backend"
	"github.com/YuminosukeSato/goml/core/serializer"
	"github.com/YuminosukeSato/goml/core/shm"
	"github.com/YuminosukeSato/goml/pkg/errors"
)

func TestMain(m *testing.M) {
	backend.Init()
	os.Exit(m.Run())
}

func dataset(n int) ([][]float64, []float64) {
	rng := rand.New(rand.NewPCG(7, 7))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		a, b := rng.Float64()*10, rng.Float64()*5
		X[i] = []float64{a, b}
		y[i] = 2 + 3*a - b + (rng.Float64()-0.5)*0.2
	}
	return X, y
}

func TestFoldsPartitionSamples(t *testing.T) {
	folds, err := KFold{K: 3}.Folds(10)
	require.NoError(t, err)
	require.Len(t, folds, 3)

	assert.Equal(t, []int{0, 1, 2, 3}, folds[0].Test)
	assert.Equal(t, []int{4, 5, 6}, folds[1].Test)
	assert.Equal(t, []int{7, 8, 9}, folds[2].Test)

	seen := map[int]int{}
	for _, f := range folds {
		assert.Len(t, f.Train, 10-len(f.Test))
		for _, i := range f.Test {
			seen[i]++
		}
	}
	assert.Len(t, seen, 10)
	for i, c := range seen {
		assert.Equal(t, 1, c, "sample %d tested once", i)
	}
}

func TestFoldsRejectsBadInput(t *testing.T) {
	var ve *errors.ValidationError
	_, err := KFold{K: 1}.Folds(10)
	assert.True(t, errors.As(err, &ve))
	_, err = KFold{K: 5}.Folds(3)
	assert.True(t, errors.As(err, &ve))

	_, err = KFold{K: 2}.Test(backend.NewSerial(), [][]float64{{1}, {2}}, []float64{1})
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestCrossValidationSameOnEveryBackend(t *testing.T) {
	X, y := dataset(60)
	kf := KFold{K: 4}

	want, err := kf.Test(backend.NewSerial(), X, y)
	require.NoError(t, err)
	require.Len(t, want.R2, 4)
	assert.Greater(t, want.Mean, 0.99)
	for _, mse := range want.MSE {
		assert.Less(t, mse, 0.05)
	}

	pool, err := backend.NewPool(backend.WithWorkers(2))
	require.NoError(t, err)
	defer backend.Close(pool)

	bs := []backend.Backend{pool, backend.NewCoroutine()}
	if shm.Supported {
		for _, codec := range []serializer.Serializer{serializer.Native{}, serializer.Binary{}, serializer.JSON{}} {
			p, err := backend.NewProcess(backend.WithWorkers(2), backend.WithSerializer(codec), backend.WithSlotSize(128))
			require.NoError(t, err)
			bs = append(bs, p)
		}
	}
	for _, b := range bs {
		got, err := kf.Test(b, X, y)
		require.NoError(t, err, b.String())
		assert.InDeltaSlice(t, want.R2, got.R2, 1e-9, b.String())
		assert.InDeltaSlice(t, want.MSE, got.MSE, 1e-9, b.String())
	}
}

func TestCrossValidationFoldFailure(t *testing.T) {
	// a constant target leaves R² undefined on every fold
	X, _ := dataset(12)
	y := make([]float64, len(X))
	_, err := KFold{K: 3}.Test(backend.NewSerial(), X, y)
	var te *errors.TaskError
	assert.True(t, errors.As(err, &te), "got %v", err)
}
