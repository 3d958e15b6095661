// Package config loads server configuration from the environment, with a
// .env file as an optional local convenience. CLI flags (cmd/server)
// override whatever is loaded here.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the server binary needs to start.
type Config struct {
	Port   int
	DBPath string

	LogLevel  string
	LogFormat string

	// BatchWorkers bounds the batch processor's worker pool.
	BatchWorkers int

	// SchedulerInterval is how often the batch-run poller wakes up.
	SchedulerInterval time.Duration

	// AttendanceCron is the cron spec for the nightly auto-absent run;
	// empty disables it.
	AttendanceCron string

	// TZLocation anchors the cron schedule ("Asia/Kolkata").
	TZLocation string
}

// Default is the configuration the server starts with when nothing is set.
func Default() Config {
	return Config{
		Port:              8080,
		DBPath:            "brickworks.db",
		LogLevel:          "info",
		LogFormat:         "console",
		BatchWorkers:      4,
		SchedulerInterval: 30 * time.Second,
		AttendanceCron:    "0 22 * * *",
		TZLocation:        "Local",
	}
}

// Load reads .env (missing file is fine) then the environment over the
// defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	var err error

	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return cfg, err
	}
	cfg.DBPath = envStr("DB_PATH", cfg.DBPath)
	cfg.LogLevel = envStr("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envStr("LOG_FORMAT", cfg.LogFormat)
	if cfg.BatchWorkers, err = envInt("BATCH_WORKERS", cfg.BatchWorkers); err != nil {
		return cfg, err
	}
	if v := os.Getenv("SCHEDULER_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("SCHEDULER_INTERVAL: %w", err)
		}
		cfg.SchedulerInterval = d
	}
	cfg.AttendanceCron = envStr("ATTENDANCE_CRON", cfg.AttendanceCron)
	cfg.TZLocation = envStr("TZ_LOCATION", cfg.TZLocation)

	return cfg, nil
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	if c.TZLocation == "" || c.TZLocation == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TZLocation)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
