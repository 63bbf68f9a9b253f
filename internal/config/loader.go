package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures environment driven configuration values for the coordinator service.
type Config struct {
	HTTPPort  int    `env:"COORDINATOR_HTTP_PORT" envDefault:"8080"`
	SQLiteDSN string `env:"COORDINATOR_SQLITE_DSN" envDefault:"file:coordinator.db"`
	// EnforceBlackouts upgrades blackout overlap findings from advisory
	// warnings to hard validation failures.
	EnforceBlackouts bool          `env:"COORDINATOR_ENFORCE_BLACKOUTS" envDefault:"false"`
	ShutdownTimeout  time.Duration `env:"COORDINATOR_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// parsed values and reporting localized error messages for bad entries.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %w", err)
	}

	invalid := make([]string, 0, 2)
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = append(invalid, "COORDINATOR_HTTP_PORT")
	}
	if strings.TrimSpace(cfg.SQLiteDSN) == "" {
		invalid = append(invalid, "COORDINATOR_SQLITE_DSN")
	}
	if cfg.ShutdownTimeout <= 0 {
		invalid = append(invalid, "COORDINATOR_SHUTDOWN_TIMEOUT")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
