package serializer

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

var jsonConfig = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// JSON is a text codec. Numbers decode as int64 when integral and float64
// otherwise.
type JSON struct{}

func (JSON) String() string { return "json" }

func (j JSON) Serialize(v any) ([]byte, error) {
	data, err := jsonConfig.Marshal(v)
	if err != nil {
		return nil, errors.NewSerializationError("serialize", j.String(), err)
	}
	return data, nil
}

func (j JSON) Unserialize(data []byte) (any, error) {
	var v any
	dec := jsonConfig.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&v); err != nil {
		return nil, errors.NewSerializationError("unserialize", j.String(), err)
	}
	return normalizeNumbers(v), nil
}

func (j JSON) UnserializeInto(data []byte, out any) error {
	if err := jsonConfig.Unmarshal(data, out); err != nil {
		return errors.NewSerializationError("unserialize", j.String(), err)
	}
	if p, ok := out.(*any); ok {
		*p = normalizeNumbers(*p)
	}
	return nil
}

type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return v
	case []any:
		for i := range x {
			x[i] = normalizeNumbers(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeNumbers(x[k])
		}
		return x
	default:
		return v
	}
}
