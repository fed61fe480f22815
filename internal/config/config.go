package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendLocal    = "local"
	BackendFirebase = "firebase"
	BackendKeycloak = "keycloak"

	FeedRedis  = "redis"
	FeedMemory = "memory"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"release"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// AuthBackend selects the identity backend: local, firebase or keycloak.
	AuthBackend string `env:"AUTH_BACKEND" envDefault:"local"`

	FirebaseAPIKey    string `env:"FIREBASE_API_KEY"`
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	FirebaseEndpoint  string `env:"FIREBASE_ENDPOINT" envDefault:"https://identitytoolkit.googleapis.com/v1"`

	KeycloakIssuer       string `env:"KEYCLOAK_ISSUER"`
	KeycloakClientID     string `env:"KEYCLOAK_CLIENT_ID"`
	KeycloakClientSecret string `env:"KEYCLOAK_CLIENT_SECRET"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	DatabaseDSN string `env:"DATABASE_DSN"`

	SessionTTL  time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionFeed string        `env:"SESSION_FEED" envDefault:"redis"`

	// ObserveTimeout bounds how long a page waits for the first session
	// notification before rendering the loading placeholder.
	ObserveTimeout time.Duration `env:"OBSERVE_TIMEOUT" envDefault:"2s"`

	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"true"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the fields required by the selected backend.
func (c Config) Validate() error {
	var errs []error

	switch c.AuthBackend {
	case BackendLocal:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the local backend"))
		}
	case BackendFirebase:
		if c.FirebaseAPIKey == "" {
			errs = append(errs, errors.New("FIREBASE_API_KEY is required for the firebase backend"))
		}
	case BackendKeycloak:
		if c.KeycloakIssuer == "" || c.KeycloakClientID == "" {
			errs = append(errs, errors.New("KEYCLOAK_ISSUER and KEYCLOAK_CLIENT_ID are required for the keycloak backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_BACKEND %q", c.AuthBackend))
	}

	switch c.SessionFeed {
	case FeedRedis, FeedMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_FEED %q", c.SessionFeed))
	}

	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	return errors.Join(errs...)
}
