package serializer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

type foldScore struct {
	Fold  int
	Score float64
}

func init() {
	Register(foldScore{})
	Register([]foldScore{})
}

func allCodecs() []Serializer {
	return []Serializer{
		Native{},
		Binary{},
		JSON{},
		NewCompressed(Native{}, DefaultLevel),
		NewCompressed(Binary{}, 1),
	}
}

func TestRoundTripBasicValues(t *testing.T) {
	values := []any{
		"hello",
		true,
		[]float64{0.5, 1.5, -2.25},
		[]any{"a", 1.5},
		map[string]any{"score": 0.75},
	}

	for _, s := range allCodecs() {
		for _, v := range values {
			data, err := s.Serialize(v)
			require.NoErrorf(t, err, "%s serialize %#v", s, v)

			got, err := s.Unserialize(data)
			require.NoErrorf(t, err, "%s unserialize %#v", s, v)

			switch want := v.(type) {
			case []float64:
				// loose codecs return []any of float64
				fs := make([]float64, 0, len(want))
				switch g := got.(type) {
				case []float64:
					fs = g
				case []any:
					for _, e := range g {
						fs = append(fs, e.(float64))
					}
				default:
					t.Fatalf("%s: unexpected %T", s, got)
				}
				assert.Equalf(t, want, fs, "codec %s", s)
			default:
				assert.Equalf(t, v, got, "codec %s", s)
			}
		}
	}
}

func TestIntegerTypes(t *testing.T) {
	tests := []struct {
		codec Serializer
		want  any
	}{
		{Native{}, 42},
		{Binary{}, int64(42)},
		{JSON{}, int64(42)},
		{NewCompressed(Native{}, DefaultLevel), 42},
	}
	for _, tt := range tests {
		t.Run(tt.codec.String(), func(t *testing.T) {
			data, err := tt.codec.Serialize(42)
			require.NoError(t, err)
			got, err := tt.codec.Unserialize(data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONFloatsStayFloats(t *testing.T) {
	data, err := JSON{}.Serialize([]any{1, 2.5})
	require.NoError(t, err)
	got, err := JSON{}.Unserialize(data)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), 2.5}, got)
}

func TestNativePreservesRegisteredStructs(t *testing.T) {
	data, err := Native{}.Serialize(foldScore{Fold: 2, Score: 0.9})
	require.NoError(t, err)
	got, err := Native{}.Unserialize(data)
	require.NoError(t, err)
	assert.Equal(t, foldScore{Fold: 2, Score: 0.9}, got)
}

func TestUnserializeIntoTyped(t *testing.T) {
	want := []foldScore{{0, 0.5}, {1, 0.75}}
	for _, s := range allCodecs() {
		t.Run(s.String(), func(t *testing.T) {
			data, err := s.Serialize(want)
			require.NoError(t, err)

			var got []foldScore
			require.NoError(t, UnserializeInto(s, data, &got))
			assert.Equal(t, want, got)
		})
	}
}

func TestSerializationErrors(t *testing.T) {
	type unregistered struct{ X int }

	_, err := Native{}.Serialize(unregistered{X: 1})
	var se *errors.SerializationError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "serialize", se.Op)
	assert.Equal(t, "native", se.Codec)

	_, err = Binary{}.Unserialize([]byte{0xc1})
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "unserialize", se.Op)

	_, err = JSON{}.Serialize(func() {})
	assert.True(t, errors.As(err, &se))

	_, err = NewCompressed(Native{}, DefaultLevel).Unserialize([]byte("not zstd"))
	assert.True(t, errors.As(err, &se))

	var wrong string
	data, err := Native{}.Serialize(3.5)
	require.NoError(t, err)
	err = UnserializeInto(Native{}, data, &wrong)
	assert.True(t, errors.As(err, &se))
}

func TestCompressedShrinksRepetitivePayload(t *testing.T) {
	payload := strings.Repeat("fold-0 ", 2000)
	raw, err := Native{}.Serialize(payload)
	require.NoError(t, err)

	c := NewCompressed(Native{}, DefaultLevel)
	defer c.Close()
	packed, err := c.Serialize(payload)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(raw)/4)

	got, err := c.Unserialize(packed)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"binary", "compressed", "json", "native"}, Names())

	for _, name := range []string{"native", "Binary", "json", "compressed", "compressed(json)"} {
		s, err := Lookup(name)
		require.NoError(t, err, name)
		again, err := Lookup(s.String())
		require.NoError(t, err, "codec names must round trip: %s", s)
		assert.Equal(t, s.String(), again.String())
	}

	_, err := Lookup("pickle")
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	assert.Equal(t, "native", Default().String())
}
