package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	TurnDurationMs int           `env:"TURN_DURATION_MS" envDefault:"10000"`
	EnergyRegen    int           `env:"ENERGY_REGEN" envDefault:"10"`
	AdminUser      string        `env:"ADMIN_USER"`
	AdminPass      string        `env:"ADMIN_PASS"`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"0s"`
	ExportEnabled  bool          `env:"EXPORT_ENABLED" envDefault:"false"`
	ExportFile     string        `env:"EXPORT_FILE" envDefault:"./duel-results.txt"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
}

func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if c.TurnDurationMs <= 0 {
		return Config{}, fmt.Errorf("TURN_DURATION_MS must be positive, got %d", c.TurnDurationMs)
	}
	if c.EnergyRegen < 0 {
		return Config{}, fmt.Errorf("ENERGY_REGEN must not be negative, got %d", c.EnergyRegen)
	}
	return c, nil
}

func (c Config) TurnDuration() time.Duration {
	return time.Duration(c.TurnDurationMs) * time.Millisecond
}

// AdminEnabled reports whether admin routes should be mounted.
func (c Config) AdminEnabled() bool {
	return c.AdminUser != "" && c.AdminPass != ""
}
