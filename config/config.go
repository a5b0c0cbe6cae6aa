// Package config loads typed configuration from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// New populates a fresh T from environment variables with the given prefix.
// A .env file in the working directory is loaded first when present.
func New[T any](prefix string) (*T, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}
	var cfg T
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env config %q: %w", prefix, err)
	}
	return &cfg, nil
}

// MustNew is New, panicking on error. Intended for main wiring.
func MustNew[T any](prefix string) *T {
	cfg, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return cfg
}
