// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// タスクディスパッチ層のエラー（プール未完了、シリアライズ失敗など）と
// 推定器が使う構造化エラーを cockroachdb/errors の上に定義します。
package errors

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("GoML-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが利用可能な場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// IdleWorkersWarning はワーカー数がタスク数を上回り、一部のワーカーに仕事が割り当てられない場合の警告です。
// ラウンドロビン分割ではタスクのコストが均等であることを前提としています。
type IdleWorkersWarning struct {
	Backend string
	Workers int
	Tasks   int
}

func (w *IdleWorkersWarning) Error() string {
	return fmt.Sprintf("%s: %d workers for %d tasks, %d workers will stay idle", w.Backend, w.Workers, w.Tasks, w.Workers-w.Tasks)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *IdleWorkersWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("backend", w.Backend).
		Int("workers", w.Workers).
		Int("tasks", w.Tasks).
		Str("type", "IdleWorkersWarning")
}

// NewIdleWorkersWarning は新しいIdleWorkersWarningを作成します。
func NewIdleWorkersWarning(backend string, workers, tasks int) *IdleWorkersWarning {
	return &IdleWorkersWarning{Backend: backend, Workers: workers, Tasks: tasks}
}

// ===========================================================================
//
//	ディスパッチ層のエラー型
//
// ===========================================================================

// PoolIncompleteError は一つ以上のワーカーが正常に終了しなかった場合のエラーです。
// バッチ全体が失敗し、部分的な結果は返されません。
type PoolIncompleteError struct {
	Backend string
	Workers int
	Failed  int
	Err     error
}

func (e *PoolIncompleteError) Error() string {
	msg := fmt.Sprintf("goml: %s: Not all workers finished successfully (%d of %d failed)", e.Backend, e.Failed, e.Workers)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *PoolIncompleteError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PoolIncompleteError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("backend", e.Backend).
		Int("workers", e.Workers).
		Int("failed", e.Failed).
		Str("type", "PoolIncompleteError")
}

// NewPoolIncompleteError は新しいPoolIncompleteErrorを作成し、スタックトレースを付与します。
func NewPoolIncompleteError(backend string, workers, failed int, cause error) error {
	return errors.WithStack(&PoolIncompleteError{Backend: backend, Workers: workers, Failed: failed, Err: cause})
}

// SerializationError はタスクの引数または結果をエンコード・デコードできない場合のエラーです。
type SerializationError struct {
	Op    string
	Codec string
	Err   error
}

func (e *SerializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("goml: %s: %s codec: %v", e.Op, e.Codec, e.Err)
	}
	return fmt.Sprintf("goml: %s: %s codec failed", e.Op, e.Codec)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SerializationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("codec", e.Codec).
		Str("type", "SerializationError")
}

// NewSerializationError は新しいSerializationErrorを作成し、スタックトレースを付与します。
func NewSerializationError(op, codec string, err error) error {
	return errors.WithStack(&SerializationError{Op: op, Codec: codec, Err: err})
}

// TaskError はキュー内の特定のタスクの計算が失敗した場合のエラーです。
type TaskError struct {
	Index int
	Func  string
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("goml: task %d (%s) failed: %v", e.Index, e.Func, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *TaskError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("index", e.Index).
		Str("func", e.Func).
		Str("type", "TaskError")
}

// NewTaskError は新しいTaskErrorを作成し、スタックトレースを付与します。
func NewTaskError(index int, fn string, err error) error {
	return errors.WithStack(&TaskError{Index: index, Func: fn, Err: err})
}

// UnknownFunctionError はタスクが登録されていない関数名を参照した場合のエラーです。
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("goml: function %q is not registered", e.Name)
}

// NewUnknownFunctionError は新しいUnknownFunctionErrorを作成し、スタックトレースを付与します。
func NewUnknownFunctionError(name string) error {
	return errors.WithStack(&UnknownFunctionError{Name: name})
}

// UnfinishedCoroutinesError はスケジューラが停止した時点で完了していないコルーチンが残っている場合のエラーです。
type UnfinishedCoroutinesError struct {
	Unfinished int
	Total      int
}

func (e *UnfinishedCoroutinesError) Error() string {
	return fmt.Sprintf("goml: scheduler stopped with %d of %d coroutines unfinished", e.Unfinished, e.Total)
}

// NewUnfinishedCoroutinesError は新しいUnfinishedCoroutinesErrorを作成し、スタックトレースを付与します。
func NewUnfinishedCoroutinesError(unfinished, total int) error {
	return errors.WithStack(&UnfinishedCoroutinesError{Unfinished: unfinished, Total: total})
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` や `Score` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("goml: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("goml: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("goml: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("goml: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("goml: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("goml: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// NumericalInstabilityError は数値計算の結果にNaNまたはInfが含まれる場合のエラーです。
type NumericalInstabilityError struct {
	Operation string
	Values    []float64 // 問題のある値（最大10個）
	Step      int       // フォールドまたはイテレーション番号。該当しない場合は -1
}

func (e *NumericalInstabilityError) Error() string {
	vals := make([]string, 0, len(e.Values))
	for i, v := range e.Values {
		if i >= 5 {
			vals = append(vals, "...")
			break
		}
		vals = append(vals, fmt.Sprintf("%.6g", v))
	}
	if e.Step < 0 {
		return fmt.Sprintf("goml: numerical instability detected in %s. Values: [%s]", e.Operation, strings.Join(vals, ", "))
	}
	return fmt.Sprintf("goml: numerical instability detected in %s at step %d. Values: [%s]", e.Operation, e.Step, strings.Join(vals, ", "))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Int("step", e.Step).
		Floats64("values", e.Values).
		Str("type", "NumericalInstabilityError")
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成し、スタックトレースを付与します。
func NewNumericalInstabilityError(operation string, values []float64, step int) error {
	return errors.WithStack(&NumericalInstabilityError{Operation: operation, Values: values, Step: step})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// CombineErrors は複数のエラーを一つの集約エラーにまとめます。nilは無視されます。
func CombineErrors(errs ...error) error {
	return multierr.Combine(errs...)
}

// Errors は集約エラーを構成するエラーを返します。
func Errors(err error) []error {
	return multierr.Errors(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")

	// ErrSlotOverflow はシリアライズされた値が共有テーブルのスロット幅を超えた場合のエラーです。
	ErrSlotOverflow = New("value exceeds shared table slot width")

	// ErrUnsupportedPlatform は共有メモリが利用できないプラットフォームの場合のエラーです。
	ErrUnsupportedPlatform = New("process pool requires a unix platform")
)
