package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds the immutable per-process configuration. One process drives
// one interface; everything that may change mid-run lives in Settings and
// the credential file instead.
type Config struct {
	Role      string
	Interface string
	Hostname  string

	ConfigDir string
	LogDir    string
	StatsDir  string
	LockDir   string
	DBPath    string

	StatusAddr string
	Debug      bool

	PollInterval   time.Duration
	ScanInterval   time.Duration
	AttemptTimeout time.Duration
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	// Defaults and Environment Variables
	role := getEnv("WIFISIM_ROLE", "good")
	iface := getEnv("WIFISIM_INTERFACE", "wlan0")
	hostname := getEnv("WIFISIM_HOSTNAME", "")
	cfg.ConfigDir = getEnv("WIFISIM_CONFIG_DIR", "configs")
	cfg.LogDir = getEnv("WIFISIM_LOG_DIR", "logs")
	cfg.StatsDir = getEnv("WIFISIM_STATS_DIR", "stats")
	cfg.LockDir = getEnv("WIFISIM_LOCK_DIR", "locks")
	cfg.DBPath = getEnv("WIFISIM_DB", "wifisim.db")
	cfg.StatusAddr = getEnv("WIFISIM_ADDR", ":8090")
	cfg.Debug = getEnvBool("WIFISIM_DEBUG", false)
	pollSec := getEnvInt("WIFISIM_POLL_SEC", 10)
	scanSec := getEnvInt("WIFISIM_SCAN_SEC", 30)
	attemptSec := getEnvInt("WIFISIM_ATTEMPT_SEC", 45)

	// Command Line Flags (Override Env)
	flag.StringVar(&role, "role", role, "Client role: good, bad or wired")
	flag.StringVar(&iface, "i", iface, "Network interface to drive")
	flag.StringVar(&hostname, "hostname", hostname, "DHCP hostname to claim (default <role>-client)")
	flag.StringVar(&cfg.ConfigDir, "config-dir", cfg.ConfigDir, "Directory with ssid.conf and settings.yaml")
	flag.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Directory for per-interface log files")
	flag.StringVar(&cfg.StatsDir, "stats-dir", cfg.StatsDir, "Directory for persisted traffic stats")
	flag.StringVar(&cfg.LockDir, "lock-dir", cfg.LockDir, "Directory for hostname lock files")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite event database")
	flag.StringVar(&cfg.StatusAddr, "addr", cfg.StatusAddr, "Status HTTP server address")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable verbose debug logging")
	flag.IntVar(&pollSec, "poll", pollSec, "Control loop poll interval in seconds")
	flag.IntVar(&scanSec, "scan-interval", scanSec, "Minimum seconds between scans")
	flag.IntVar(&attemptSec, "attempt-timeout", attemptSec, "Overall connection attempt timeout in seconds")

	flag.Parse()

	cfg.Role = role
	cfg.Interface = iface
	cfg.Hostname = hostname
	if cfg.Hostname == "" {
		cfg.Hostname = "wifi-" + role + "-client"
	}
	cfg.PollInterval = time.Duration(pollSec) * time.Second
	cfg.ScanInterval = time.Duration(scanSec) * time.Second
	cfg.AttemptTimeout = time.Duration(attemptSec) * time.Second

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
