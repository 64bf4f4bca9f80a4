package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL        string        `envconfig:"DATABASE_URL"`
	Port               string        `envconfig:"PORT" default:"8080"`
	GoEnv              string        `envconfig:"GO_ENV" default:"development"`
	Auth0Domain        string        `envconfig:"AUTH0_DOMAIN"`
	Auth0Audience      string        `envconfig:"AUTH0_AUDIENCE"`
	AWSRegion          string        `envconfig:"AWS_REGION" default:"us-east-1"`
	AWSS3Bucket        string        `envconfig:"AWS_S3_BUCKET"`
	AWSAccessKeyID     string        `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string        `envconfig:"AWS_SECRET_ACCESS_KEY"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat          string        `envconfig:"LOG_FORMAT" default:"text"`
	RedisAddr          string        `envconfig:"REDIS_ADDR"`
	KafkaBrokers       []string      `envconfig:"KAFKA_BROKERS"`
	KafkaTopic         string        `envconfig:"KAFKA_TOPIC" default:"delivery-admin.events"`
	ActivationInterval time.Duration `envconfig:"ACTIVATION_INTERVAL" default:"30s"`
	DashboardCacheTTL  time.Duration `envconfig:"DASHBOARD_CACHE_TTL" default:"30s"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
}

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			// In production the environment is set directly
			slog.Debug("no .env file found, using system environment variables")
		}
	} else {
		slog.Debug("loaded configuration file", slog.String("file", envFile))
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.ActivationInterval <= 0 {
		return fmt.Errorf("ACTIVATION_INTERVAL must be positive")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// RedisEnabled reports whether a Redis address was configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

// KafkaEnabled reports whether at least one Kafka broker was configured.
func (c *Config) KafkaEnabled() bool {
	for _, b := range c.KafkaBrokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

// StorageEnabled reports whether an S3 bucket was configured.
func (c *Config) StorageEnabled() bool {
	return c.AWSS3Bucket != ""
}
