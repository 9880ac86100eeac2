package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor は学習・予測・R²スコアを持つ回帰モデルです。
// validation パッケージの各フォールドはこのインターフェースを通じてモデルを扱います。
type Regressor interface {
	Fitter
	Predictor
	Score(X, y mat.Matrix) (float64, error)
}

// BaseEstimator は全てのモデルの基底となる構造体
type BaseEstimator struct {
	fitted bool
}

// IsFitted はモデルが学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool { return e.fitted }

// SetFitted はモデルを学習済み状態に設定する
func (e *BaseEstimator) SetFitted() { e.fitted = true }

// Reset はモデルを初期状態にリセットする
func (e *BaseEstimator) Reset() { e.fitted = false }
