package serializer

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

func init() {
	// gob only knows the basic types and their slices out of the box
	gob.Register([]any{})
	gob.Register(map[string]any{})
	gob.Register([][]float64{})
	gob.Register(map[string]float64{})
}

// Register records the concrete type of value so Native can carry it inside
// an interface. It wraps gob.Register.
func Register(value any) {
	gob.Register(value)
}

// Native encodes with encoding/gob. The concrete type of the value survives
// the round trip, provided it was registered with Register.
type Native struct{}

func (Native) String() string { return "native" }

func (n Native) Serialize(v any) ([]byte, error) {
	var buf bytes.Buffer
	// encode through a pointer to the interface so the type name is sent
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return nil, errors.NewSerializationError("serialize", n.String(), err)
	}
	return buf.Bytes(), nil
}

func (n Native) Unserialize(data []byte) (any, error) {
	var v any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, errors.NewSerializationError("unserialize", n.String(), err)
	}
	return v, nil
}

func (n Native) UnserializeInto(data []byte, out any) error {
	var v any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return errors.NewSerializationError("unserialize", n.String(), err)
	}
	return assign(n.String(), v, out)
}
