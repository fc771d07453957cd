package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is the prefix for every environment override.
const EnvPrefix = "BUGTRACKER_"

// LoadFromEnv applies environment overrides with a prefix onto base.
// Variables that are unset leave the base value untouched.
func LoadFromEnv(prefix string, base Config) (Config, error) {
	if err := env.ParseWithOptions(&base, env.Options{Prefix: prefix}); err != nil {
		return base, fmt.Errorf("parse env: %w", err)
	}
	return base, nil
}
