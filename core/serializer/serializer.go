// Package serializer encodes task payloads and results into bytes.
//
// Four codecs are available by name: "native" (encoding/gob), "binary"
// (msgpack), "json" (json-iterator) and "compressed" (zstd around native).
// All of them are process-safe: nothing they produce depends on the
// identity of objects in the encoding process.
package serializer

import (
	"sort"
	"strings"
	"sync"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

// Serializer converts values to and from bytes.
type Serializer interface {
	Serialize(v any) ([]byte, error)
	Unserialize(data []byte) (any, error)
	String() string
}

// TypedSerializer is implemented by codecs that can decode into a concrete
// destination instead of the codec's generic representation.
type TypedSerializer interface {
	Serializer
	UnserializeInto(data []byte, out any) error
}

// UnserializeInto decodes data into out. Codecs without typed decoding must
// produce a value directly assignable to *out's element; otherwise a
// SerializationError is returned.
func UnserializeInto[T any](s Serializer, data []byte, out *T) error {
	if ts, ok := s.(TypedSerializer); ok {
		return ts.UnserializeInto(data, out)
	}
	v, err := s.Unserialize(data)
	if err != nil {
		return err
	}
	t, ok := v.(T)
	if !ok {
		return errors.NewSerializationError("unserialize", s.String(),
			errors.Newf("decoded %T, want %T", v, *out))
	}
	*out = t
	return nil
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Serializer{
		"native":     func() Serializer { return Native{} },
		"binary":     func() Serializer { return Binary{} },
		"json":       func() Serializer { return JSON{} },
		"compressed": func() Serializer { return NewCompressed(Native{}, DefaultLevel) },
	}
)

// Default is the codec used when none is configured.
func Default() Serializer { return Native{} }

// Lookup returns a new instance of the codec called name.
//
// "compressed(<base>)", as returned by Compressed.String, wraps the named
// base codec.
func Lookup(name string) (Serializer, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if inner, ok := strings.CutPrefix(name, "compressed("); ok && strings.HasSuffix(inner, ")") {
		base, err := Lookup(strings.TrimSuffix(inner, ")"))
		if err != nil {
			return nil, err
		}
		return NewCompressed(base, DefaultLevel), nil
	}

	registryMu.RLock()
	defer registryMu.RUnlock()
	mk, ok := registry[name]
	if !ok {
		return nil, errors.NewValidationError("serializer", "unknown codec, want one of "+strings.Join(namesLocked(), ", "), name)
	}
	return mk(), nil
}

// RegisterCodec adds a named codec constructor. Worker processes look codecs
// up by name, so custom codecs must be registered from an init function.
func RegisterCodec(name string, mk func() Serializer) {
	name = strings.ToLower(name)
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("serializer: RegisterCodec called twice for " + name)
	}
	registry[name] = mk
}

// Names lists the registered codec names.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
