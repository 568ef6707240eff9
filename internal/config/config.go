package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full server configuration, loaded from the environment.
type Config struct {
	Addr       string        `env:"GRIDLOCK_ADDR" envDefault:":8080"`
	DBPath     string        `env:"GRIDLOCK_DB_PATH" envDefault:"gridlock.db"`
	SessionTTL time.Duration `env:"GRIDLOCK_SESSION_TTL" envDefault:"720h"`
	LogLevel   string        `env:"GRIDLOCK_LOG_LEVEL" envDefault:"info"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
