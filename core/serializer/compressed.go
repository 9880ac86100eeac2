package serializer

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

// DefaultLevel is the zstd level used by the "compressed" codec.
const DefaultLevel = 3

// Compressed wraps another codec with zstd compression. Useful when task
// arguments carry whole datasets across the process boundary.
type Compressed struct {
	Base  Serializer
	Level int

	once    sync.Once
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	initErr error
}

// NewCompressed wraps base at the given zstd level (1 fastest .. 22 best).
func NewCompressed(base Serializer, level int) *Compressed {
	if base == nil {
		base = Native{}
	}
	return &Compressed{Base: base, Level: level}
}

func (c *Compressed) String() string {
	return fmt.Sprintf("compressed(%s)", c.Base)
}

func (c *Compressed) init() error {
	c.once.Do(func() {
		level := c.Level
		if level <= 0 {
			level = DefaultLevel
		}
		c.enc, c.initErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
			zstd.WithEncoderConcurrency(1))
		if c.initErr != nil {
			return
		}
		c.dec, c.initErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	})
	return c.initErr
}

func (c *Compressed) Serialize(v any) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, errors.NewSerializationError("serialize", c.String(), err)
	}
	raw, err := c.Base.Serialize(v)
	if err != nil {
		return nil, err
	}
	return c.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

func (c *Compressed) Unserialize(data []byte) (any, error) {
	raw, err := c.decompress(data)
	if err != nil {
		return nil, err
	}
	return c.Base.Unserialize(raw)
}

func (c *Compressed) UnserializeInto(data []byte, out any) error {
	raw, err := c.decompress(data)
	if err != nil {
		return err
	}
	if ts, ok := c.Base.(TypedSerializer); ok {
		return ts.UnserializeInto(raw, out)
	}
	v, err := c.Base.Unserialize(raw)
	if err != nil {
		return err
	}
	return assign(c.String(), v, out)
}

func (c *Compressed) decompress(data []byte) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, errors.NewSerializationError("unserialize", c.String(), err)
	}
	raw, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.NewSerializationError("unserialize", c.String(), err)
	}
	return raw, nil
}

// Close releases the zstd decoder's resources.
func (c *Compressed) Close() {
	if c.dec != nil {
		c.dec.Close()
	}
}
