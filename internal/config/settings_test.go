package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFileYieldsDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettingsOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	body := "roaming_enabled: false\nmin_signal_dbm: -65\nwrong_passwords:\n  - wrong1\n  - wrong2\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.False(t, s.RoamingEnabled)
	assert.Equal(t, -65, s.MinSignalDBM)
	assert.Equal(t, []string{"wrong1", "wrong2"}, s.WrongPasswords)
	// Untouched fields keep defaults
	assert.Equal(t, DefaultSettings().PingTargets, s.PingTargets)
}

func TestLoadSettingsBadYAMLFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":{not yaml"), 0o644))

	s, err := LoadSettings(path)
	assert.Error(t, err)
	assert.Equal(t, DefaultSettings(), s)
}
