package deferred

import (
	"github.com/spf13/cast"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

// Args is a task's argument list. The accessors convert loosely, so an int
// that came back from a codec as int64 or float64 still reads as an int.
type Args []any

// Len returns the number of arguments.
func (a Args) Len() int { return len(a) }

// Value returns argument i unconverted.
func (a Args) Value(i int) (any, error) {
	if i < 0 || i >= len(a) {
		return nil, errors.NewValidationError("args", "index out of range", i)
	}
	return a[i], nil
}

// Int returns argument i as an int.
func (a Args) Int(i int) (int, error) {
	v, err := a.Value(i)
	if err != nil {
		return 0, err
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, errors.NewValidationError("args", "not an int: "+err.Error(), v)
	}
	return n, nil
}

// Float returns argument i as a float64.
func (a Args) Float(i int) (float64, error) {
	v, err := a.Value(i)
	if err != nil {
		return 0, err
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, errors.NewValidationError("args", "not a float: "+err.Error(), v)
	}
	return f, nil
}

// String returns argument i as a string.
func (a Args) String(i int) (string, error) {
	v, err := a.Value(i)
	if err != nil {
		return "", err
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", errors.NewValidationError("args", "not a string: "+err.Error(), v)
	}
	return s, nil
}

// Bool returns argument i as a bool.
func (a Args) Bool(i int) (bool, error) {
	v, err := a.Value(i)
	if err != nil {
		return false, err
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, errors.NewValidationError("args", "not a bool: "+err.Error(), v)
	}
	return b, nil
}

// Floats returns argument i as a []float64.
func (a Args) Floats(i int) ([]float64, error) {
	v, err := a.Value(i)
	if err != nil {
		return nil, err
	}
	return toFloats(v)
}

// Matrix returns argument i, a row-major [][]float64, as a dense matrix.
func (a Args) Matrix(i int) (*mat.Dense, error) {
	v, err := a.Value(i)
	if err != nil {
		return nil, err
	}
	if fs, ok := v.([][]float64); ok {
		return denseFromRows(fs)
	}
	rows, err := cast.ToSliceE(v)
	if err != nil {
		return nil, errors.NewValidationError("args", "not a matrix", v)
	}
	fs := make([][]float64, len(rows))
	for r, row := range rows {
		if fs[r], err = toFloats(row); err != nil {
			return nil, err
		}
	}
	return denseFromRows(fs)
}

func toFloats(v any) ([]float64, error) {
	fs, err := cast.ToFloat64SliceE(v)
	if err != nil {
		return nil, errors.NewValidationError("args", "not a float slice", v)
	}
	return fs, nil
}

func denseFromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, errors.ErrEmptyData
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, errors.ErrEmptyData
	}
	data := make([]float64, 0, len(rows)*cols)
	for _, row := range rows {
		if len(row) != cols {
			return nil, errors.NewDimensionError("Args.Matrix", cols, len(row), 1)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}
