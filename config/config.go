// Package config loads swipebite_server configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"swipebite_server/models"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
)

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Dynamo    DynamoConfig    `koanf:"dynamo"`
	Postgres  PostgresConfig  `koanf:"postgres"`
	NATS      NATSConfig      `koanf:"nats"`
	Auth      AuthConfig      `koanf:"auth"`
	S3        S3Config        `koanf:"s3"`
	Session   SessionConfig   `koanf:"session"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	AllowedOrigins  string        `koanf:"allowed_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Origins splits the comma separated CORS origin list.
func (s ServerConfig) Origins() []string {
	var origins []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

type StoreConfig struct {
	Backend string `koanf:"backend"`
}

type DynamoConfig struct {
	Region            string `koanf:"region"`
	Endpoint          string `koanf:"endpoint"`
	SessionsTable     string `koanf:"sessions_table"`
	ParticipantsTable string `koanf:"participants_table"`
}

type PostgresConfig struct {
	DSN         string `koanf:"dsn"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// NATSConfig enables cross-replica change notifications. When URL is empty
// notifications stay in-process.
type NATSConfig struct {
	URL           string        `koanf:"url"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

type S3Config struct {
	Bucket       string        `koanf:"bucket"`
	Region       string        `koanf:"region"`
	AvatarPrefix string        `koanf:"avatar_prefix"`
	PresignTTL   time.Duration `koanf:"presign_ttl"`
}

type SessionConfig struct {
	MaxParticipants    int           `koanf:"max_participants"`
	RequiresAllToMatch bool          `koanf:"requires_all_to_match"`
	RetryAttempts      int           `koanf:"retry_attempts"`
	RetryInterval      time.Duration `koanf:"retry_interval"`
}

type RateLimitConfig struct {
	JoinPerMinute float64 `koanf:"join_per_minute"`
	JoinBurst     int     `koanf:"join_burst"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// defaults are loaded before the config file and environment.
var defaults = map[string]interface{}{
	"server.port":                   8080,
	"server.allowed_origins":        "*",
	"server.shutdown_timeout":       "10s",
	"store.backend":                 BackendMemory,
	"dynamo.sessions_table":         models.SessionsTable,
	"dynamo.participants_table":     models.SessionParticipantsTable,
	"postgres.auto_migrate":         true,
	"nats.max_reconnects":           5,
	"nats.reconnect_wait":           "1s",
	"auth.token_ttl":                "72h",
	"s3.avatar_prefix":              "avatars",
	"s3.presign_ttl":                "5m",
	"session.max_participants":      models.DefaultMaxParticipants,
	"session.requires_all_to_match": true,
	"session.retry_attempts":        3,
	"session.retry_interval":        "500ms",
	"ratelimit.join_per_minute":     30,
	"ratelimit.join_burst":          5,
	"log.level":                     "info",
	"log.format":                    "json",
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendDynamoDB:
		if c.Dynamo.SessionsTable == "" || c.Dynamo.ParticipantsTable == "" {
			errs = append(errs, errors.New("dynamo tables must be set"))
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}

	if c.Session.MaxParticipants < models.MinMaxParticipants || c.Session.MaxParticipants > models.MaxMaxParticipants {
		errs = append(errs, fmt.Errorf("session.max_participants must be between 2 and 10, got %d", c.Session.MaxParticipants))
	}
	if c.Session.RetryAttempts < 1 {
		errs = append(errs, errors.New("session.retry_attempts must be at least 1"))
	}

	if c.RateLimit.JoinPerMinute <= 0 || c.RateLimit.JoinBurst <= 0 {
		errs = append(errs, errors.New("ratelimit values must be positive"))
	}

	return errors.Join(errs...)
}
