package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all configuration for the gateway.
type Config struct {
	ListenAddr string
	DataDir    string

	// Detector service (HTTP YOLO sidecar). Empty disables the probe.
	DetectorEndpoint string

	// Dashboard auth.
	AuthEnabled  bool
	AuthUsername string
	AuthPassword string

	// Alarm sound file played on person detection. Optional.
	AlarmSound string

	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		ListenAddr:       getEnv("CAMGATE_LISTEN", ":8000"),
		DataDir:          getEnv("CAMGATE_DATA_DIR", "data"),
		DetectorEndpoint: getEnv("CAMGATE_DETECTOR_URL", ""),
		AuthEnabled:      getEnvAsBool("CAMGATE_AUTH_ENABLED", false),
		AuthUsername:     getEnv("CAMGATE_AUTH_USERNAME", "admin"),
		AuthPassword:     getEnv("CAMGATE_AUTH_PASSWORD", ""),
		AlarmSound:       getEnv("CAMGATE_ALARM_SOUND", ""),
		LogLevel:         getEnv("CAMGATE_LOG_LEVEL", "info"),
		LogFormat:        getEnv("CAMGATE_LOG_FORMAT", "console"),
	}
}

// DatabasePath returns the SQLite file location under the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "camgate.db")
}

// RecordingDir returns the directory recorded video files are written to.
func (c *Config) RecordingDir() string {
	return filepath.Join(c.DataDir, "recordings")
}

// EventDir returns the directory event snapshot images are written to.
func (c *Config) EventDir() string {
	return filepath.Join(c.DataDir, "events")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
