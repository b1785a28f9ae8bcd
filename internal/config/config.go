package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config - настройки relay и cli-клиента из окружения
type Config struct {
	AppPort   string `env:"APP_PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	RegistryBackend string        `env:"REGISTRY_BACKEND" envDefault:"memory"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	RedisURL        string        `env:"REDIS_URL"`
	RedisKeyPrefix  string        `env:"REDIS_KEY_PREFIX" envDefault:"ttt"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"6h"`
	JanitorInterval time.Duration `env:"JANITOR_INTERVAL" envDefault:"10m"`

	NATSURL     string `env:"NATS_URL"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"ttt.relay.conn"`

	JWTSecret          string `env:"RELAY_JWT_SECRET"`
	AllowedOrigin      string `env:"ALLOWED_ORIGIN"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`

	// клиент
	WebsocketURL string `env:"WEBSOCKET_URL" envDefault:"ws://localhost:8080/ws"`
	RelayToken   string `env:"RELAY_TOKEN"`
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// JSONLogs сообщает, нужен ли json-формат логов
func (c *Config) JSONLogs() bool {
	return c.LogFormat == "json"
}

// Validate проверяет настройки relay
func (c *Config) Validate() error {
	var errs []error

	switch c.RegistryBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis registry"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres registry"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown REGISTRY_BACKEND %q", c.RegistryBackend))
	}

	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.JanitorInterval <= 0 {
		errs = append(errs, errors.New("JANITOR_INTERVAL must be positive"))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must not be negative"))
	}
	return errors.Join(errs...)
}
