// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// DefaultJWTSigningKey is the development key used when JWT_SIGNING_KEY is unset.
const DefaultJWTSigningKey = "dev-secret-key-change-in-production"

// Config is the full process configuration.
type Config struct {
	Server   Server
	Auth     Auth
	Store    Store
	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Log      Log
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"TRUSTLINK_ADDR" envDefault:":8080"`
	MetricsAddr     string        `env:"TRUSTLINK_METRICS_ADDR" envDefault:":9090"`
	RequestTimeout  time.Duration `env:"TRUSTLINK_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"TRUSTLINK_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Auth configures bearer token validation.
type Auth struct {
	JWTSigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string `env:"JWT_ISSUER" envDefault:"trustlink"`
	JWTAudience   string `env:"JWT_AUDIENCE" envDefault:"trustlink-api"`
}

// UsesDefaultSigningKey reports whether tokens are verified with the public
// development key.
func (a Auth) UsesDefaultSigningKey() bool {
	return a.JWTSigningKey == DefaultJWTSigningKey
}

// Store selects the registry backend.
type Store struct {
	Backend    string `env:"TRUSTLINK_STORE" envDefault:"memory"`
	MaxRetries int    `env:"TRUSTLINK_STORE_MAX_RETRIES" envDefault:"5"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	KeyPrefix    string        `env:"REDIS_KEY_PREFIX" envDefault:"trustlink"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// PostgresConfig configures the Postgres backend.
type PostgresConfig struct {
	DSN             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	Migrate         bool          `env:"DATABASE_MIGRATE" envDefault:"true"`
}

// KafkaConfig configures the event stream. No brokers means no Kafka sink.
type KafkaConfig struct {
	Brokers           []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic             string   `env:"KAFKA_TOPIC" envDefault:"trustlink.attestations"`
	Partitions        int32    `env:"KAFKA_TOPIC_PARTITIONS" envDefault:"3"`
	ReplicationFactor int16    `env:"KAFKA_TOPIC_REPLICATION" envDefault:"1"`
	QueueSize         int      `env:"KAFKA_QUEUE_SIZE" envDefault:"1024"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses the environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required when TRUSTLINK_STORE=%s", StoreRedis)
		}
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required when TRUSTLINK_STORE=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unknown TRUSTLINK_STORE %q", c.Store.Backend)
	}
	if c.Auth.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY must not be empty")
	}
	return nil
}
