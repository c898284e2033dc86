// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultDevJWTSecret = "adda-dev-secret-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	APIBaseURL            string  `mapstructure:"API_BASE_URL"`
	APIToken              string  `mapstructure:"API_TOKEN"`
	RequestTimeoutSeconds int     `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	UploadConcurrency     int     `mapstructure:"UPLOAD_CONCURRENCY"`
	Env                   string  `mapstructure:"APP_ENV"`
	LogLevel              string  `mapstructure:"LOG_LEVEL"`
	TracingEnabled        bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter       string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint          string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio   float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
	FeatureFlags          string  `mapstructure:"FEATURE_FLAGS"`
	DevPort               string  `mapstructure:"DEV_PORT"`
	DevJWTSecret          string  `mapstructure:"DEV_JWT_SECRET"`
	DevDBDriver           string  `mapstructure:"DEV_DB_DRIVER"`
	DevDBDSN              string  `mapstructure:"DEV_DB_DSN"`
	DevUploadDir          string  `mapstructure:"DEV_UPLOAD_DIR"`
	DevPublicURL          string  `mapstructure:"DEV_PUBLIC_URL"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	viper.SetDefault("API_BASE_URL", "http://localhost:8390/api/v1")
	viper.SetDefault("API_TOKEN", "")
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	viper.SetDefault("UPLOAD_CONCURRENCY", 4)
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("DEV_PORT", "8390")
	viper.SetDefault("DEV_JWT_SECRET", defaultDevJWTSecret)
	viper.SetDefault("DEV_DB_DRIVER", "sqlite")
	viper.SetDefault("DEV_DB_DSN", "file:adda-dev.db?cache=shared")
	viper.SetDefault("DEV_UPLOAD_DIR", "/tmp/adda/uploads")
	viper.SetDefault("DEV_PUBLIC_URL", "http://localhost:8390")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.APIBaseURL = strings.TrimRight(strings.TrimSpace(config.APIBaseURL), "/")
	config.DevDBDriver = strings.ToLower(strings.TrimSpace(config.DevDBDriver))
	config.LogLevel = strings.ToLower(strings.TrimSpace(config.LogLevel))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and usable.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return errors.New("REQUEST_TIMEOUT_SECONDS must be positive")
	}
	if c.UploadConcurrency < 1 {
		return errors.New("UPLOAD_CONCURRENCY must be at least 1")
	}
	switch c.DevDBDriver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("DEV_DB_DRIVER must be sqlite or postgres, got %q", c.DevDBDriver)
	}

	if c.IsProduction() {
		if c.DevJWTSecret == defaultDevJWTSecret {
			return errors.New("DEV_JWT_SECRET must be changed from the default value in production")
		}
		if len(c.DevJWTSecret) < 32 {
			return errors.New("DEV_JWT_SECRET must be at least 32 characters in production")
		}
		if u.Scheme != "https" {
			log.Println("WARNING: API_BASE_URL is not https in production.")
		}
	}

	return nil
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
