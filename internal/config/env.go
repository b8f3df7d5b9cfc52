package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Environment holds process settings read from environment variables.
type Environment struct {
	DataDir    string        `env:"LIFELEDGER_DATA_DIR" envDefault:"data"`
	ConfigPath string        `env:"LIFELEDGER_CONFIG" envDefault:"config.yml"`
	Backend    string        `env:"LIFELEDGER_BACKEND" envDefault:"file"`
	Workers    int           `env:"LIFELEDGER_WORKERS" envDefault:"1"`
	Autosave   time.Duration `env:"LIFELEDGER_AUTOSAVE" envDefault:"5m"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnvironment parses the LIFELEDGER_* variables.
func LoadEnvironment() (Environment, error) {
	var e Environment
	if err := ParseEnv(&e); err != nil {
		return Environment{}, err
	}
	return e, nil
}
