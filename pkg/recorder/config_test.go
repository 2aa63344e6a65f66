package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, DefaultConfig().Validate())
	})

	t.Run("empty name rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Name = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative buffer capacity rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.BufferCapacity = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("error rate threshold bounded", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ErrorRateThreshold = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative trace cache rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TraceCacheSize = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("validate never mutates", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.CaptureStackTraces = true
		cfg.TraceCacheSize = 0
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 0, cfg.TraceCacheSize)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "memtrace.yaml")
		data := []byte("name: planner-validation\ncapture_stack_traces: true\nbuffer_capacity: 128\nhealth_check_timeout: 30s\n")
		require.NoError(t, os.WriteFile(path, data, 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "planner-validation", cfg.Name)
		assert.True(t, cfg.CaptureStackTraces)
		assert.Equal(t, 128, cfg.BufferCapacity)
		assert.Equal(t, 30*time.Second, cfg.HealthCheckTimeout)
		// Policies are code-injected, never loaded.
		assert.NotNil(t, cfg.DirectionPolicy)
		assert.NotNil(t, cfg.TraceCapturer)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("name: [unclosed"), 0o644))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("invalid values fail validation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("buffer_capacity: -5\n"), 0o644))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}
