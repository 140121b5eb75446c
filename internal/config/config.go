// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN; required for the server and migrate commands.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTIssuer is the iss claim (e.g. "commerce-auth"); validated on every token.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "commerce-api"); validated on every token.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "168h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// RefreshTokenTTL is the refresh token lifetime (e.g. "720h").
	RefreshTokenTTL string `mapstructure:"REFRESH_TOKEN_TTL"`
	// RefreshTokenSecret keys the HMAC digest of stored refresh tokens.
	// Required: without it stored digests cannot be recomputed across restarts.
	RefreshTokenSecret string `mapstructure:"REFRESH_TOKEN_SECRET"`
	// SigningKeyBits is the RSA modulus size for the provisioned signing key (min 2048).
	SigningKeyBits int `mapstructure:"SIGNING_KEY_BITS"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317).
	// Empty disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// TokenEventsKafkaBrokers is a comma-separated list of Kafka broker addresses.
	// When set, token lifecycle events are also published to Kafka.
	TokenEventsKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TokenEventsKafkaTopic is the Kafka topic for token lifecycle events.
	TokenEventsKafkaTopic string `mapstructure:"TOKEN_EVENTS_KAFKA_TOPIC"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "commerce-auth")
	v.SetDefault("JWT_AUDIENCE", "commerce-api")
	v.SetDefault("JWT_ACCESS_TTL", "168h")   // 7d
	v.SetDefault("REFRESH_TOKEN_TTL", "720h") // 30d
	v.SetDefault("REFRESH_TOKEN_SECRET", "")
	v.SetDefault("SIGNING_KEY_BITS", 2048)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TOKEN_EVENTS_KAFKA_TOPIC", "commerce-auth-token-events")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if cfg.SigningKeyBits < 2048 {
		return nil, errors.New("config: SIGNING_KEY_BITS must be at least 2048")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// RefreshTTL parses RefreshTokenTTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.RefreshTokenTTL)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event publishing is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.TokenEventsKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TokenEventsKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
