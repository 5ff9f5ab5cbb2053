package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings holds the tuning knobs read from CODENAMES_* environment variables.
type Settings struct {
	ReapInterval time.Duration `env:"CODENAMES_REAP_INTERVAL" envDefault:"1h"`
	IdleTimeout  time.Duration `env:"CODENAMES_IDLE_TIMEOUT" envDefault:"1h"`

	StatsBackend       string        `env:"CODENAMES_STATS_BACKEND" envDefault:"file"`
	StatsPath          string        `env:"CODENAMES_STATS_PATH"`
	StatsFlushInterval time.Duration `env:"CODENAMES_STATS_FLUSH_INTERVAL" envDefault:"5m"`

	OTelServiceName string `env:"CODENAMES_OTEL_SERVICE_NAME" envDefault:"codenames"`
	OTelEndpoint    string `env:"CODENAMES_OTEL_ENDPOINT"`
	OTelDisabled    bool   `env:"CODENAMES_OTEL_DISABLED"`
}

// LoadSettings parses Settings from the environment and fills the stats path
// default for the chosen backend.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return s, fmt.Errorf("parse env: %w", err)
	}

	if s.StatsPath == "" {
		switch s.StatsBackend {
		case "sqlite":
			s.StatsPath = "data/stats.db"
		default:
			s.StatsPath = "data/stats.json"
		}
	}
	if s.ReapInterval <= 0 || s.IdleTimeout <= 0 || s.StatsFlushInterval <= 0 {
		return s, fmt.Errorf("parse env: intervals must be positive")
	}
	return s, nil
}
