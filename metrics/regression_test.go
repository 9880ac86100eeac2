package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func vec(v ...float64) *mat.VecDense { return mat.NewVecDense(len(v), v) }

func TestVectorScores(t *testing.T) {
	tests := []struct {
		name    string
		score   func(yTrue, yPred *mat.VecDense) (float64, error)
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{"MSE perfect", MSE, vec(1, 2, 3), vec(1, 2, 3), 0, false},
		{"MSE simple", MSE, vec(1, 2, 3, 4), vec(1.5, 2.5, 2.5, 3.5), 0.25, false},
		{"MSE larger errors", MSE, vec(10, 20, 30), vec(12, 18, 33), 17.0 / 3.0, false},
		{"MSE dimension mismatch", MSE, vec(1, 2, 3), vec(1, 2), 0, true},
		{"MSE empty", MSE, &mat.VecDense{}, &mat.VecDense{}, 0, true},
		{"RMSE", RMSE, vec(1, 2, 3, 4), vec(1.5, 2.5, 2.5, 3.5), 0.5, false},
		{"MAE", MAE, vec(10, 20, 30), vec(12, 18, 33), 7.0 / 3.0, false},
		{"MAE mismatch", MAE, vec(1), vec(1, 2), 0, true},
		{"R2 perfect", R2Score, vec(1, 2, 3, 4), vec(1, 2, 3, 4), 1, false},
		{"R2 mean predictor", R2Score, vec(1, 2, 3, 4), vec(2.5, 2.5, 2.5, 2.5), 0, false},
		{"R2 simple", R2Score, vec(3, -0.5, 2, 7), vec(2.5, 0, 2, 8), 0.9486081370449679, false},
		{"R2 constant truth", R2Score, vec(2, 2, 2), vec(1, 2, 3), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.score(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-10)
		})
	}
}

func TestMatrixScores(t *testing.T) {
	yTrue := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	yPred := mat.NewDense(4, 1, []float64{1.5, 2.5, 2.5, 3.5})

	mse, err := MSEMatrix(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, mse, 1e-12)

	r2, err := R2ScoreMatrix(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, r2, 1e-12)

	_, err = MSEMatrix(mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil))
	assert.Error(t, err, "not a column vector")
	_, err = R2ScoreMatrix(yTrue, mat.NewDense(3, 1, nil))
	assert.Error(t, err)

	// predictions may come back as a vector rather than a dense column
	r2, err = R2ScoreMatrix(yTrue, vec(1, 2, 3, 4))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r2, 1e-12)
}

func TestRMSEIsRootOfMSE(t *testing.T) {
	a, b := vec(0.5, -1, 4, 2.25), vec(1, 1, 1, 1)
	mse, err := MSE(a, b)
	require.NoError(t, err)
	rmse, err := RMSE(a, b)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(mse), rmse, 1e-12)
}
