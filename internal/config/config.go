// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// Persistence (C8)
	PersistenceDir   string        `env:"PERSISTENCE_DIR" envDefault:"db"`
	SnapshotInterval time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"3s"`

	// Anonymous access (§4.2)
	AllowAnonymous bool `env:"ALLOW_ANONYMOUS" envDefault:"true"`

	// Model registry (§4.6, §6)
	ModelRegistryURL            string        `env:"MODEL_REGISTRY_URL"`
	ModelRegistryTimeout        time.Duration `env:"MODEL_REGISTRY_TIMEOUT" envDefault:"5s"`
	ModelRegistryBreakerMaxFail int           `env:"MODEL_REGISTRY_BREAKER_MAX_FAILURES" envDefault:"5"`
	ModelRegistryBreakerTimeout time.Duration `env:"MODEL_REGISTRY_BREAKER_TIMEOUT" envDefault:"30s"`
	RedisURL                    string        `env:"REDIS_URL"`
	ModelMultiplierCacheTTL     time.Duration `env:"MODEL_MULTIPLIER_CACHE_TTL" envDefault:"720h"`

	// Registry retry backoff
	RegistryBackoffMaxElapsedTime  time.Duration `env:"REGISTRY_BACKOFF_MAX_ELAPSED_TIME" envDefault:"20s"`
	RegistryBackoffInitialInterval time.Duration `env:"REGISTRY_BACKOFF_INITIAL_INTERVAL" envDefault:"500ms"`
	RegistryBackoffMaxInterval     time.Duration `env:"REGISTRY_BACKOFF_MAX_INTERVAL" envDefault:"5s"`
	RegistryBackoffMultiplier      float64       `env:"REGISTRY_BACKOFF_MULTIPLIER" envDefault:"1.5"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"khbroker"`

	AdminUsername      string `env:"ADMIN_USERNAME"`
	AdminPassword      string `env:"ADMIN_PASSWORD"`
	AdminSessionSecret string `env:"ADMIN_SESSION_SECRET"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// AdminEnabled returns true if admin features should be enabled
func (c Config) AdminEnabled() bool {
	return c.AdminUsername != "" && c.AdminPassword != "" && c.AdminSessionSecret != ""
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }
