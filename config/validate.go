package config

import (
	"errors"
	"strings"
)

const minSecretBytes = 16

// Validate validates config values and reports every issue at once.
func Validate(cfg Config) error {
	var issues []string

	if cfg.Address == "" {
		issues = append(issues, "address is required")
	}
	if cfg.ReadTimeout < 0 {
		issues = append(issues, "read_timeout must be >= 0")
	}
	if cfg.WriteTimeout < 0 {
		issues = append(issues, "write_timeout must be >= 0")
	}
	if cfg.IdleTimeout < 0 {
		issues = append(issues, "idle_timeout must be >= 0")
	}
	if cfg.ReadHeaderTimeout < 0 {
		issues = append(issues, "read_header_timeout must be >= 0")
	}
	if cfg.ShutdownTimeout < 0 {
		issues = append(issues, "shutdown_timeout must be >= 0")
	}
	if cfg.MaxHeaderBytes < 0 {
		issues = append(issues, "max_header_bytes must be >= 0")
	}
	if cfg.MaxBodyBytes < 0 {
		issues = append(issues, "max_body_bytes must be >= 0")
	}

	switch cfg.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		issues = append(issues, "env must be one of development|production|test")
	}

	if cfg.LogLevel != "" && !validLogLevel(cfg.LogLevel) {
		issues = append(issues, "log_level must be one of debug|info|warn|error")
	}
	if cfg.LogFormat != "" && !validLogFormat(cfg.LogFormat) {
		issues = append(issues, "log_format must be one of text|json")
	}

	if cfg.LogSampleRate < 0 || cfg.LogSampleRate > 1 {
		issues = append(issues, "log_sample_rate must be between 0 and 1")
	}

	if cfg.JWT.Secret == "" {
		issues = append(issues, "jwt.secret is required")
	} else if !cfg.Development() && len(cfg.JWT.Secret) < minSecretBytes {
		issues = append(issues, "jwt.secret must be at least 16 bytes")
	}
	if cfg.JWT.TTL <= 0 {
		issues = append(issues, "jwt.ttl must be > 0")
	}

	switch cfg.Database.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if cfg.Database.URL == "" {
			issues = append(issues, "database.url is required for "+cfg.Database.Driver)
		}
	default:
		issues = append(issues, "database.driver must be one of memory|postgres|sqlite")
	}
	if cfg.Database.MaxOpenConns < 0 || cfg.Database.MaxIdleConns < 0 {
		issues = append(issues, "database pool sizes must be >= 0")
	}
	if cfg.Database.Timeout < 0 {
		issues = append(issues, "database.timeout must be >= 0")
	}

	if cfg.RateLimit.Enabled && (cfg.RateLimit.Rate <= 0 || cfg.RateLimit.Burst <= 0) {
		issues = append(issues, "rate_limit rate and burst must be > 0 when enabled")
	}

	if len(issues) > 0 {
		return errors.New(strings.Join(issues, "; "))
	}
	return nil
}

func validLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validLogFormat(format string) bool {
	switch strings.ToLower(format) {
	case "text", "json":
		return true
	default:
		return false
	}
}
