// Package config reads bot configuration from the environment. Every
// variable the bot understands carries the CONCLAVE_ prefix and is
// declared as an env tag on the service Config struct.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from environment variables according to its
// env struct tags.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
