package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goml/core/model"
	"github.com/YuminosukeSato/goml/core/parallel"
	"github.com/YuminosukeSato/goml/metrics"
	"github.com/YuminosukeSato/goml/pkg/errors"
)

// LinearRegression は最小二乗法による線形回帰モデル
type LinearRegression struct {
	model.BaseEstimator
	Weights   *mat.VecDense // 係数
	Intercept float64
	NFeatures int

	fitIntercept      bool
	parallelThreshold int
}

var _ model.Regressor = (*LinearRegression)(nil)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const defaultParallelThreshold = 1000

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{fitIntercept: true, parallelThreshold: defaultParallelThreshold}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習させる。
// 設計行列 [1, X] を QR 分解し、最小二乗解を求める。
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}
	if err := errors.CheckMatrix("LinearRegression.Fit", X, r, c, -1); err != nil {
		return err
	}

	offset := 0
	if lr.fitIntercept {
		offset = 1
	}
	if r < c+offset {
		return errors.NewValueError("LinearRegression.Fit", "fewer samples than parameters")
	}

	design := mat.NewDense(r, c+offset, nil)
	parallel.ParallelizeWithThreshold(r, lr.parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			if offset == 1 {
				design.Set(i, 0, 1.0)
			}
			for j := 0; j < c; j++ {
				design.Set(i, j+offset, X.At(i, j))
			}
		}
	})

	var qr mat.QR
	qr.Factorize(design)
	var coef mat.Dense
	if err := qr.SolveTo(&coef, false, y); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
		}
		return errors.NewModelError("LinearRegression.Fit", "least squares", err)
	}

	if err := errors.CheckFinite("LinearRegression.Fit", mat.Col(nil, 0, &coef), -1); err != nil {
		return err
	}

	lr.NFeatures = c
	lr.Intercept = 0
	if offset == 1 {
		lr.Intercept = coef.At(0, 0)
	}
	lr.Weights = mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		lr.Weights.SetVec(j, coef.At(j+offset, 0))
	}
	lr.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "Predict")
	}
	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.NFeatures, c, 1)
	}

	// y = X * w + b
	pred := mat.NewVecDense(r, nil)
	pred.MulVec(X, lr.Weights)
	for i := 0; i < r; i++ {
		pred.SetVec(i, pred.AtVec(i)+lr.Intercept)
	}
	return pred, nil
}

// GetWeights は学習された係数のコピーを返す
func (lr *LinearRegression) GetWeights() []float64 {
	if lr.Weights == nil {
		return nil
	}
	return mat.Col(nil, 0, lr.Weights)
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	if !lr.IsFitted() {
		return 0, errors.NewNotFittedError("LinearRegression", "Score")
	}
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}
