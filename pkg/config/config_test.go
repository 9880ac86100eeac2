package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goml.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  kind: Process
  workers: 3
  serializer: binary
  slot_size: 1024
log:
  level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Backend{Kind: KindProcess, Workers: 3, Serializer: "binary", SlotSize: 1024}, cfg.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("GOML_BACKEND_KIND", "pool")
	t.Setenv("GOML_BACKEND_WORKERS", "8")
	t.Setenv("GOML_BACKEND_SERIALIZER", "compressed")

	cfg, err := LoadFromReader(strings.NewReader(`{"backend": {"kind": "coroutine", "workers": 2}}`), "json")
	require.NoError(t, err)
	assert.Equal(t, KindPool, cfg.Backend.Kind)
	assert.Equal(t, 8, cfg.Backend.Workers)
	assert.Equal(t, "compressed", cfg.Backend.Serializer)
	assert.Equal(t, 512, cfg.Backend.SlotSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		param string
	}{
		{"unknown kind", map[string]string{"GOML_BACKEND_KIND": "gpu"}, "backend.kind"},
		{"negative workers", map[string]string{"GOML_BACKEND_WORKERS": "-1"}, "backend.workers"},
		{"zero slot size", map[string]string{"GOML_BACKEND_SLOT_SIZE": "0"}, "backend.slot_size"},
		{"unknown codec", map[string]string{"GOML_BACKEND_SERIALIZER": "pickle"}, "serializer"},
		{"bad log level", map[string]string{"GOML_LOG_LEVEL": "chatty"}, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.param, ve.ParamName)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
