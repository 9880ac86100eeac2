package backend

import (
	"github.com/YuminosukeSato/goml/core/serializer"
	"github.com/YuminosukeSato/goml/pkg/config"
)

// FromConfig builds the backend described by cfg. opts are applied after
// the configured values and take precedence.
func FromConfig(cfg config.Backend, opts ...Option) (Backend, error) {
	codec, err := serializer.Lookup(cfg.Serializer)
	if err != nil {
		return nil, err
	}
	all := append([]Option{
		WithWorkers(cfg.Workers),
		WithSerializer(codec),
		WithSlotSize(cfg.SlotSize),
	}, opts...)
	return New(cfg.Kind, all...)
}
