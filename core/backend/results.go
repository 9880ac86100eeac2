package backend

import (
	"github.com/spf13/cast"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

// ResultsAs converts a result slice to []T. Numeric results are converted
// loosely, since codecs such as msgpack or JSON return int64 or float64 for
// any number.
func ResultsAs[T any](results []any) ([]T, error) {
	out := make([]T, len(results))
	for i, r := range results {
		if v, ok := r.(T); ok {
			out[i] = v
			continue
		}
		v, err := convert[T](r)
		if err != nil {
			return nil, errors.NewValidationError("results", errors.Wrapf(err, "result %d", i).Error(), r)
		}
		out[i] = v
	}
	return out, nil
}

func convert[T any](r any) (T, error) {
	var zero T
	var (
		v   any
		err error
	)
	switch any(zero).(type) {
	case int:
		v, err = cast.ToIntE(r)
	case int64:
		v, err = cast.ToInt64E(r)
	case int32:
		v, err = cast.ToInt32E(r)
	case uint64:
		v, err = cast.ToUint64E(r)
	case float64:
		v, err = cast.ToFloat64E(r)
	case float32:
		v, err = cast.ToFloat32E(r)
	case string:
		v, err = cast.ToStringE(r)
	case bool:
		v, err = cast.ToBoolE(r)
	case []float64:
		v, err = cast.ToFloat64SliceE(r)
	case []int:
		v, err = cast.ToIntSliceE(r)
	case []string:
		v, err = cast.ToStringSliceE(r)
	default:
		return zero, errors.Newf("cannot convert %T to %T", r, zero)
	}
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}
