// Package config loads service configuration from the environment, with
// an optional .env file for development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config is the full service configuration. Flags in cmd/server may
// override individual fields.
type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DBPath      string `env:"DB_PATH" envDefault:"engage.db"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// Reference timezone: all calendar days and broadcast times are
	// computed in this single zone, for every tenant.
	Timezone string `env:"REFERENCE_TZ" envDefault:"Asia/Seoul"`

	// Scheduler tick period. Only tests should change this.
	TickPeriod time.Duration `env:"TICK_PERIOD" envDefault:"1m"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogPath       string `env:"LOG_PATH"` // empty = stdout only
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"7"`
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
