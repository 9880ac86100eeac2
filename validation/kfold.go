// Package validation scores models by k-fold cross-validation, running one
// task per fold on any backend.
package validation

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/goml/core/backend"
	"github.com/YuminosukeSato/goml/core/deferred"
	"github.com/YuminosukeSato/goml/linear"
	"github.com/YuminosukeSato/goml/metrics"
	"github.com/YuminosukeSato/goml/pkg/errors"
	"github.com/YuminosukeSato/goml/pkg/log"
)

// LinearFoldFunc is the registered name of the per-fold task. It takes
// training rows, training targets, held-out rows, held-out targets and the
// fold number, and returns [R², MSE] on the held-out part.
const LinearFoldFunc = "validation.linear_fold"

func init() {
	deferred.Register(LinearFoldFunc, linearFold)
}

// KFold splits n samples into K contiguous folds. The first n % K folds
// get one extra sample.
type KFold struct {
	K int
}

// Fold holds the sample indices of one split.
type Fold struct {
	Train []int
	Test  []int
}

// Report collects per-fold scores.
type Report struct {
	R2   []float64
	MSE  []float64
	Mean float64 // mean R²
}

// Folds returns the K train/test splits of n samples.
func (k KFold) Folds(n int) ([]Fold, error) {
	if k.K < 2 {
		return nil, errors.NewValidationError("K", "need at least 2 folds", k.K)
	}
	if n < k.K {
		return nil, errors.NewValidationError("samples", "fewer samples than folds", n)
	}

	folds := make([]Fold, k.K)
	start := 0
	for f := range folds {
		size := n / k.K
		if f < n%k.K {
			size++
		}
		end := start + size
		for i := 0; i < n; i++ {
			if i >= start && i < end {
				folds[f].Test = append(folds[f].Test, i)
			} else {
				folds[f].Train = append(folds[f].Train, i)
			}
		}
		start = end
	}
	return folds, nil
}

// Test fits a linear regression on each fold's training part and scores it
// on the held-out part, one task per fold on b. Rows and targets travel as
// plain slices so any backend and codec can carry them.
func (k KFold) Test(b backend.Backend, X [][]float64, y []float64) (*Report, error) {
	if len(X) != len(y) {
		return nil, errors.NewDimensionError("KFold.Test", len(X), len(y), 0)
	}
	folds, err := k.Folds(len(X))
	if err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("validation").With(
		log.OperationKey, log.OperationValidate,
		log.BackendKey, b.String(),
		log.FoldsKey, k.K)

	for f, fold := range folds {
		trainX, trainY := rows(X, y, fold.Train)
		testX, testY := rows(X, y, fold.Test)
		b.Enqueue(deferred.New(LinearFoldFunc, trainX, trainY, testX, testY, f),
			backend.WithCallback(func(result any, context any) {
				logger.Debug("fold scored", "fold", context, log.SamplesKey, len(testY))
			}, f))
	}

	results, err := b.Process()
	if err != nil {
		return nil, err
	}
	scores, err := backend.ResultsAs[[]float64](results)
	if err != nil {
		return nil, err
	}

	report := &Report{R2: make([]float64, len(scores)), MSE: make([]float64, len(scores))}
	for f, s := range scores {
		if len(s) != 2 {
			return nil, errors.NewValueError("KFold.Test", "fold result must hold R² and MSE")
		}
		report.R2[f], report.MSE[f] = s[0], s[1]
	}
	report.Mean = stat.Mean(report.R2, nil)
	logger.Info("cross-validation finished", log.ScoreKey, report.Mean, log.WorkersKey, b.Workers())
	return report, nil
}

func rows(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}

func linearFold(args deferred.Args) (any, error) {
	trainX, err := args.Matrix(0)
	if err != nil {
		return nil, err
	}
	trainY, err := args.Floats(1)
	if err != nil {
		return nil, err
	}
	testX, err := args.Matrix(2)
	if err != nil {
		return nil, err
	}
	testY, err := args.Floats(3)
	if err != nil {
		return nil, err
	}
	fold, err := args.Int(4)
	if err != nil {
		return nil, err
	}

	lr := linear.NewLinearRegression()
	if err := lr.Fit(trainX, mat.NewDense(len(trainY), 1, trainY)); err != nil {
		return nil, err
	}
	pred, err := lr.Predict(testX)
	if err != nil {
		return nil, err
	}
	truth := mat.NewDense(len(testY), 1, testY)
	r2, err := metrics.R2ScoreMatrix(truth, pred)
	if err != nil {
		return nil, err
	}
	mse, err := metrics.MSEMatrix(truth, pred)
	if err != nil {
		return nil, err
	}
	scores := []float64{r2, mse}
	if err := errors.CheckFinite(LinearFoldFunc, scores, fold); err != nil {
		return nil, err
	}
	return scores, nil
}
