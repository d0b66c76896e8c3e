// Package config loads application configuration from the environment,
// reading a .env file first when one is present.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration. All fields are read from
// LIBCAT_-prefixed environment variables.
type Config struct {
	// DBPath is the SQLite database file backing the blob store.
	DBPath string `envconfig:"DB_PATH" default:"library.db"`

	// Debug switches the logger to development output.
	Debug bool `envconfig:"DEBUG" default:"false"`
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("libcat", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	return &cfg, nil
}
