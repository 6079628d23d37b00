package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full service configuration, loaded from the environment.
type Config struct {
	Service  ServiceConfig
	Server   ServerConfig
	Database DatabaseConfig
	NATS     NATSConfig
}

// ServiceConfig identifies the running service instance.
type ServiceConfig struct {
	Name        string `envconfig:"SERVICE_NAME" default:"be-mm-materials"`
	Version     string `envconfig:"SERVICE_VERSION" default:"dev"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            int           `envconfig:"SERVER_PORT" default:"8086"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig controls the Postgres pool.
type DatabaseConfig struct {
	Host        string        `envconfig:"DB_HOST" default:"localhost"`
	Port        int           `envconfig:"DB_PORT" default:"5432"`
	User        string        `envconfig:"DB_USER" default:"postgres"`
	Password    string        `envconfig:"DB_PASSWORD" default:""`
	Database    string        `envconfig:"DB_NAME" default:"mm_materials"`
	SSLMode     string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns    int32         `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnTime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	MaxIdleTime time.Duration `envconfig:"DB_MAX_IDLE_TIME" default:"5m"`
}

// NATSConfig controls the notification publisher. Empty URL disables it.
type NATSConfig struct {
	URL string `envconfig:"NATS_URL" default:""`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
