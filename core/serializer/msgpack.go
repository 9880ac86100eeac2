package serializer

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

// Binary is a compact msgpack codec. Decoding into an interface is loose:
// every integer comes back as int64 and every float as float64, so typed
// readers should go through deferred.Args or backend.ResultsAs.
type Binary struct{}

func (Binary) String() string { return "binary" }

func (b Binary) Serialize(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, errors.NewSerializationError("serialize", b.String(), err)
	}
	return data, nil
}

func (b Binary) Unserialize(data []byte) (any, error) {
	var v any
	if err := b.UnserializeInto(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (b Binary) UnserializeInto(data []byte, out any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(out); err != nil {
		return errors.NewSerializationError("unserialize", b.String(), err)
	}
	return nil
}
