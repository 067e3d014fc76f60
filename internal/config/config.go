package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the application configuration.
type Config struct {
	Port        string        `mapstructure:"PORT"`
	DatabaseURL string        `mapstructure:"DATABASE_URL"`
	StoreDriver string        `mapstructure:"STORE_DRIVER"`
	JWTSecret   string        `mapstructure:"JWT_SECRET"`
	JWTTTL      time.Duration `mapstructure:"JWT_TTL"`
	LogLevel    string        `mapstructure:"LOG_LEVEL"`

	// Optional collaborators; empty disables them.
	RedisURL string `mapstructure:"REDIS_URL"`
	NatsURL  string `mapstructure:"NATS_URL"`

	SuggestionCacheTTL     time.Duration `mapstructure:"SUGGESTION_CACHE_TTL"`
	SuggestionDefaultLimit int           `mapstructure:"SUGGESTION_DEFAULT_LIMIT"`
	SuggestionMaxLimit     int           `mapstructure:"SUGGESTION_MAX_LIMIT"`
}

var AppConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", 7*24*time.Hour)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("NATS_URL", "")
	v.SetDefault("SUGGESTION_CACHE_TTL", 10*time.Minute)
	v.SetDefault("SUGGESTION_DEFAULT_LIMIT", 10)
	v.SetDefault("SUGGESTION_MAX_LIMIT", 50)
}

// LoadConfig loads the configuration from a .env file and environment variables
// into AppConfig. Environment variables win over the file.
func LoadConfig() error {
	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	v.SetConfigType("env")
	setDefaults(v)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read .env: %w", err)
		}
		slog.Info(".env file not found, loading from environment variables")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	AppConfig = &cfg
	return nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.SuggestionDefaultLimit <= 0 || c.SuggestionMaxLimit < c.SuggestionDefaultLimit {
		return errors.New("suggestion limits must satisfy 0 < default <= max")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
