package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lcalzada-xor/wifisim/internal/core/domain"
)

// Settings are the tunables operators may edit mid-run. The client loop
// re-reads the file every cycle; a missing file just yields the defaults.
type Settings struct {
	Band         domain.WiFiBand `yaml:"band"`
	MinSignalDBM int             `yaml:"min_signal_dbm"`

	RoamingEnabled     bool `yaml:"roaming_enabled"`
	RoamingIntervalSec int  `yaml:"roaming_interval_sec"`

	// Bad client knobs.
	WrongPasswords      []string `yaml:"wrong_passwords"`
	AttemptJitterMaxMS  int      `yaml:"attempt_jitter_max_ms"`
	AbortCycleOnAnomaly bool     `yaml:"abort_cycle_on_anomaly"`

	// Health monitor knobs.
	MaxRecoveryFailures int `yaml:"max_recovery_failures"`
	RecoveryMinGapSec   int `yaml:"recovery_min_gap_sec"`

	// Traffic engine knobs.
	DownloadURL      string   `yaml:"download_url"`
	UploadURL        string   `yaml:"upload_url"`
	MaxTransferBytes int64    `yaml:"max_transfer_bytes"`
	PingTargets      []string `yaml:"ping_targets"`
	SubTaskSec       int      `yaml:"subtask_sec"`
}

// DefaultSettings mirrors the shipped settings.yaml.
func DefaultSettings() Settings {
	return Settings{
		Band:                domain.BandAny,
		MinSignalDBM:        -75,
		RoamingEnabled:      true,
		RoamingIntervalSec:  120,
		WrongPasswords:      []string{"wrongpass1", "letmein99", "hunter2!"},
		AttemptJitterMaxMS:  2500,
		AbortCycleOnAnomaly: false,
		MaxRecoveryFailures: 3,
		RecoveryMinGapSec:   15,
		DownloadURL:         "http://speedtest.tele2.net/1MB.zip",
		UploadURL:           "http://httpbin.org/post",
		MaxTransferBytes:    1 << 20,
		PingTargets:         []string{"8.8.8.8", "1.1.1.1", "9.9.9.9"},
		SubTaskSec:          20,
	}
}

// LoadSettings reads the YAML settings file over the defaults. Unknown or
// absent fields keep their default values; a missing file is not an error.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), err
	}
	return s, nil
}

// RoamingInterval converts the tunable into a duration.
func (s Settings) RoamingInterval() time.Duration {
	return time.Duration(s.RoamingIntervalSec) * time.Second
}

// RecoveryMinGap converts the tunable into a duration.
func (s Settings) RecoveryMinGap() time.Duration {
	return time.Duration(s.RecoveryMinGapSec) * time.Second
}

// SubTaskTimeout converts the tunable into a duration.
func (s Settings) SubTaskTimeout() time.Duration {
	return time.Duration(s.SubTaskSec) * time.Second
}
