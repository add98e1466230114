package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// No config.yaml exists in the package directory, so the search
	// paths come up empty and defaults apply.
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Policy.MinPasswordLength)
	assert.Equal(t, 2, cfg.Policy.MinLowercase)
	assert.True(t, cfg.Dictionary.Enabled)
	assert.Equal(t, FailModeOpen, cfg.Dictionary.FailMode)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("CREDPOLICY_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	// A pointed-to file that does not exist is an error, not a silent
	// fallback to defaults.
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
policy:
  min_password_length: 12
  min_numbers: 3
  min_special_chars: 2
  min_uppercase: 2
  min_lowercase: 2
dictionary:
  enabled: false
  fail_mode: closed
`), 0o600))
	t.Setenv("CREDPOLICY_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Policy.MinPasswordLength)
	assert.Equal(t, 3, cfg.Policy.MinNumbers)
	assert.False(t, cfg.Dictionary.Enabled)
	assert.Equal(t, FailModeClosed, cfg.Dictionary.FailMode)

	// Unset keys fall back to defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadRejectsNonPositiveThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
policy:
  min_numbers: 0
`), 0o600))
	t.Setenv("CREDPOLICY_CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadFailMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dictionary:
  fail_mode: sideways
`), 0o600))
	t.Setenv("CREDPOLICY_CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestToPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
policy:
  min_password_length: 6
  min_numbers: 2
  min_special_chars: 2
  min_uppercase: 2
  min_lowercase: 2
`), 0o600))
	t.Setenv("CREDPOLICY_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	// Per-field validation passes but the sum exceeds the minimum
	// length, so the policy must refuse to activate.
	_, err = cfg.ToPolicy()
	assert.Error(t, err)
}

func TestPortOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))
	t.Setenv("CREDPOLICY_CONFIG_FILE", path)
	t.Setenv("CREDPOLICY_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}
