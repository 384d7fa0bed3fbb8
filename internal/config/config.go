package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	AppEnv              string
	Port                string
	DatabaseURL         string
	RedisURL            string
	SessionSecret       string
	DashboardEnabled    bool
	RegistrationEnabled bool
	Debug               bool
	LogLevel            string
	LogFormat           string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		SessionSecret:       getEnv("SESSION_SECRET", ""),
		DashboardEnabled:    getBoolEnv("DASHBOARD_ENABLED", true),
		RegistrationEnabled: getBoolEnv("REGISTRATION_ENABLED", false),
		Debug:               getBoolEnv("DEBUG", false),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
	}

	// An empty DATABASE_URL is legal: the server runs in degraded mode and
	// only logs incoming reports. Everything that needs storage is disabled.
	if cfg.DatabaseURL == "" {
		cfg.DashboardEnabled = false
		cfg.RegistrationEnabled = false
	}

	if cfg.DashboardEnabled && cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required when the dashboard is enabled")
	}
	if cfg.AppEnv == "production" && cfg.Debug {
		return nil, fmt.Errorf("DEBUG must not be set in production")
	}

	return cfg, nil
}

// Degraded reports whether reconciliation should be short-circuited:
// either debug mode is on or no database is configured.
func (c *Config) Degraded() bool {
	return c.Debug || c.DatabaseURL == ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
