package linear

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

// syntheticData は y = 1 + Σ 0.5(j+1)·x_j + noise のデータを生成する
func syntheticData(rows, cols int, noise float64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(42, 42))
	X := mat.NewDense(rows, cols, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		sum := 1.0
		for j := 0; j < cols; j++ {
			x := rng.Float64()*2 - 1
			X.Set(i, j, x)
			sum += x * float64(j+1) * 0.5
		}
		y.Set(i, 0, sum+(rng.Float64()-0.5)*noise)
	}
	return X, y
}

func TestLinearRegressionRecoversCoefficients(t *testing.T) {
	X, y := syntheticData(200, 3, 0)
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	assert.True(t, lr.IsFitted())
	assert.InDelta(t, 1.0, lr.Intercept, 1e-9)
	assert.InDeltaSlice(t, []float64{0.5, 1.0, 1.5}, lr.GetWeights(), 1e-9)

	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestLinearRegressionParallelDesignMatrix(t *testing.T) {
	X, y := syntheticData(300, 2, 0.1)
	seq := NewLinearRegression()
	par := NewLinearRegression(WithParallelThreshold(10))
	require.NoError(t, seq.Fit(X, y))
	require.NoError(t, par.Fit(X, y))

	assert.InDelta(t, seq.Intercept, par.Intercept, 1e-12)
	assert.InDeltaSlice(t, seq.GetWeights(), par.GetWeights(), 1e-12)
}

func TestLinearRegressionWithoutIntercept(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{3, 6, 9, 12})
	lr := NewLinearRegression(WithFitIntercept(false))
	require.NoError(t, lr.Fit(X, y))
	assert.Zero(t, lr.Intercept)
	assert.InDeltaSlice(t, []float64{3}, lr.GetWeights(), 1e-12)

	pred, err := lr.Predict(mat.NewDense(2, 1, []float64{5, 6}))
	require.NoError(t, err)
	assert.InDelta(t, 15.0, pred.At(0, 0), 1e-12)
	assert.InDelta(t, 18.0, pred.At(1, 0), 1e-12)
}

func TestLinearRegressionErrors(t *testing.T) {
	lr := NewLinearRegression()

	_, err := lr.Predict(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	_, err = lr.Score(mat.NewDense(1, 1, nil), mat.NewDense(1, 1, nil))
	assert.True(t, errors.As(err, &nf))

	err = lr.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(2, 1, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	err = lr.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(3, 2, nil))
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))

	err = lr.Fit(mat.NewDense(1, 2, []float64{1, 2}), mat.NewDense(1, 1, []float64{1}))
	assert.True(t, errors.As(err, &ve), "fewer samples than parameters")

	// identical columns
	X := mat.NewDense(4, 2, []float64{1, 1, 2, 2, 3, 3, 4, 4})
	y := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	err = lr.Fit(X, y)
	assert.True(t, errors.Is(err, errors.ErrSingularMatrix), "got %v", err)

	require.NoError(t, lr.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(3, 1, []float64{2, 4, 7})))
	_, err = lr.Predict(mat.NewDense(1, 2, nil))
	assert.True(t, errors.As(err, &de))
}

func BenchmarkLinearRegressionFit(b *testing.B) {
	sizes := []struct {
		name       string
		rows, cols int
	}{
		{"Small_500x10", 500, 10},
		{"Medium_2000x10", 2000, 10},
		{"Large_10000x20", 10000, 20},
	}
	for _, size := range sizes {
		b.Run(size.name, func(b *testing.B) {
			X, y := syntheticData(size.rows, size.cols, 0.1)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := NewLinearRegression().Fit(X, y); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func TestLinearRegressionRejectsNonFiniteInput(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, math.NaN(), 3})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})
	err := NewLinearRegression().Fit(X, y)
	var ne *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &ne), "got %v", err)
}
