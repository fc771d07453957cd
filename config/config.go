package config

import "time"

// Environment names accepted by Config.Env.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Database drivers accepted by DatabaseConfig.Driver.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds service configuration.
type Config struct {
	Address           string        `json:"address" env:"ADDRESS"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	MaxHeaderBytes    int           `json:"max_header_bytes" env:"MAX_HEADER_BYTES"`
	MaxBodyBytes      int64         `json:"max_body_bytes" env:"MAX_BODY_BYTES"`

	Env string `json:"env" env:"ENV"`

	LogLevel  string `json:"log_level" env:"LOG_LEVEL"`
	LogFormat string `json:"log_format" env:"LOG_FORMAT"`
	LogFile   string `json:"log_file" env:"LOG_FILE"`
	// LogSampleRate is the share of successful requests written to the
	// access log; failures are always logged. Zero means 1.
	LogSampleRate float64 `json:"log_sample_rate" env:"LOG_SAMPLE_RATE"`

	JWT       JWTConfig       `json:"jwt" envPrefix:"JWT_"`
	Database  DatabaseConfig  `json:"database" envPrefix:"DATABASE_"`
	Redis     RedisConfig     `json:"redis" envPrefix:"REDIS_"`
	RateLimit RateLimitConfig `json:"rate_limit" envPrefix:"RATE_LIMIT_"`
	OTEL      OTELConfig      `json:"otel" envPrefix:"OTEL_"`

	CORSOrigins []string `json:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
}

// JWTConfig configures token issuance.
type JWTConfig struct {
	Secret string        `json:"secret" env:"SECRET"`
	TTL    time.Duration `json:"ttl" env:"TTL"`
}

// DatabaseConfig selects and tunes the store backend.
type DatabaseConfig struct {
	Driver          string        `json:"driver" env:"DRIVER"`
	URL             string        `json:"url" env:"URL"`
	MaxOpenConns    int           `json:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	// Timeout bounds each query; zero disables it.
	Timeout     time.Duration `json:"timeout" env:"TIMEOUT"`
	AutoMigrate bool          `json:"auto_migrate" env:"AUTO_MIGRATE"`
}

// RedisConfig points the rate limiter at a shared Redis. Empty URL keeps
// limiting in process.
type RedisConfig struct {
	URL string `json:"url" env:"URL"`
}

// RateLimitConfig throttles the credential endpoints per client address.
type RateLimitConfig struct {
	Enabled bool    `json:"enabled" env:"ENABLED"`
	Rate    float64 `json:"rate" env:"RATE"`
	Burst   int     `json:"burst" env:"BURST"`
}

// OTELConfig configures trace export. Empty endpoint disables export.
type OTELConfig struct {
	Endpoint    string `json:"endpoint" env:"ENDPOINT"`
	ServiceName string `json:"service_name" env:"SERVICE_NAME"`
	Insecure    bool   `json:"insecure" env:"INSECURE"`
}

// Default returns safe defaults.
func Default() Config {
	return Config{
		Address:           ":5000",
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		MaxBodyBytes:      1 << 20,
		Env:               EnvDevelopment,
		LogLevel:          "info",
		LogFormat:         "text",
		LogSampleRate:     1,
		JWT: JWTConfig{
			TTL: 24 * time.Hour,
		},
		Database: DatabaseConfig{
			Driver:          DriverMemory,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    1,
			Burst:   10,
		},
		OTEL: OTELConfig{
			ServiceName: "bugtracker",
		},
		CORSOrigins: []string{"*"},
	}
}

// Development reports whether diagnostics may be exposed to clients.
func (c Config) Development() bool {
	return c.Env == EnvDevelopment
}
