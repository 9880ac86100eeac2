// Package config loads backend and logging settings from an optional file
// and GOML_* environment variables.
//
//	backend:
//	  kind: process      # serial | pool | coroutine | process
//	  workers: 0         # 0 picks the CPU count
//	  serializer: native # native | binary | json | compressed
//	  slot_size: 512     # bytes per shared result slot (process only)
//	log:
//	  level: info
//
// Every key can be overridden from the environment, e.g. GOML_BACKEND_KIND.
package config

import (
	"io"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/YuminosukeSato/goml/core/serializer"
	"github.com/YuminosukeSato/goml/pkg/errors"
	"github.com/YuminosukeSato/goml/pkg/log"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "GOML"

// Backend kinds.
const (
	KindSerial    = "serial"
	KindPool      = "pool"
	KindCoroutine = "coroutine"
	KindProcess   = "process"
)

// Kinds lists the accepted backend kinds.
var Kinds = []string{KindSerial, KindPool, KindCoroutine, KindProcess}

// Config is the root configuration.
type Config struct {
	Backend Backend `mapstructure:"backend"`
	Log     Log     `mapstructure:"log"`
}

// Backend selects and sizes the dispatch backend.
type Backend struct {
	Kind       string `mapstructure:"kind"`
	Workers    int    `mapstructure:"workers"`
	Serializer string `mapstructure:"serializer"`
	SlotSize   int    `mapstructure:"slot_size"`
}

// Log configures the process-wide logger.
type Log struct {
	Level string `mapstructure:"level"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("backend.kind", KindSerial)
	v.SetDefault("backend.workers", 0)
	v.SetDefault("backend.serializer", "native")
	v.SetDefault("backend.slot_size", 512)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	return &Config{
		Backend: Backend{Kind: KindSerial, Serializer: "native", SlotSize: 512},
		Log:     Log{Level: "info"},
	}
}

// Load reads path (skipped when empty) and applies environment overrides.
// The format follows the file extension.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config: read %s", path)
		}
	}
	return decode(v)
}

// LoadFromReader reads configuration of the given format ("yaml", "json",
// "toml") from r and applies environment overrides.
func LoadFromReader(r io.Reader, format string) (*Config, error) {
	v := newViper()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, errors.Wrap(err, "config: read")
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: decode")
	}
	cfg.Backend.Kind = strings.ToLower(strings.TrimSpace(cfg.Backend.Kind))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	b := c.Backend
	if !slices.Contains(Kinds, b.Kind) {
		return errors.NewValidationError("backend.kind", "must be one of "+strings.Join(Kinds, ", "), b.Kind)
	}
	if b.Workers < 0 {
		return errors.NewValidationError("backend.workers", "must be >= 0", b.Workers)
	}
	if b.SlotSize <= 0 {
		return errors.NewValidationError("backend.slot_size", "must be positive", b.SlotSize)
	}
	if _, err := serializer.Lookup(b.Serializer); err != nil {
		return err
	}
	if _, err := log.ToLogLevel(c.Log.Level); err != nil {
		return errors.NewValidationError("log.level", err.Error(), c.Log.Level)
	}
	return nil
}

// SetupLogging applies the configured level to the process-wide logger.
func (c *Config) SetupLogging() error {
	return log.SetupLogger(c.Log.Level)
}
