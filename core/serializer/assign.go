package serializer

import (
	"reflect"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

// assign stores v into the pointer out when the types line up.
func assign(codec string, v any, out any) error {
	dst := reflect.ValueOf(out)
	if dst.Kind() != reflect.Pointer || dst.IsNil() {
		return errors.NewSerializationError("unserialize", codec, errors.Newf("destination %T is not a non-nil pointer", out))
	}
	elem := dst.Elem()
	if v == nil {
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	}
	src := reflect.ValueOf(v)
	if !src.Type().AssignableTo(elem.Type()) {
		return errors.NewSerializationError("unserialize", codec, errors.Newf("decoded %T, want %s", v, elem.Type()))
	}
	elem.Set(src)
	return nil
}
