package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"surveygen/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Simulation SimulationConfig
	Storage    StorageConfig
	Server     ServerConfig
}

// SimulationConfig holds respondent generation settings
type SimulationConfig struct {
	TargetAlpha    float64
	Respondents    int
	Workers        int
	Seed           int64
	FailureRate    float64
	PersonaEnabled bool
	PersonaAlpha   float64
	PersonaBeta    float64
}

// StorageConfig holds persistence settings. An empty DatabaseURL selects the
// file store rooted at StatsDir
type StorageConfig struct {
	StatsDir    string
	DatabaseURL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Simulation: *loadSimulationConfig(),
		Storage:    *loadStorageConfig(),
		Server:     *loadServerConfig(),
	}

	if err := Validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// UseDatabase reports whether statistics are persisted to PostgreSQL
func (c *Config) UseDatabase() bool {
	return c.Storage.DatabaseURL != ""
}

func loadSimulationConfig() *SimulationConfig {
	return &SimulationConfig{
		TargetAlpha:    getEnvFloatOrDefault("TARGET_ALPHA", 0.85),
		Respondents:    getEnvIntOrDefault("RESPONDENTS", 200),
		Workers:        getEnvIntOrDefault("WORKERS", 4),
		Seed:           getEnvInt64OrDefault("SEED", 42),
		FailureRate:    getEnvFloatOrDefault("FAILURE_RATE", 0.0),
		PersonaEnabled: getEnvBoolOrDefault("PERSONA_ENABLED", false),
		PersonaAlpha:   getEnvFloatOrDefault("PERSONA_ALPHA", 2.5),
		PersonaBeta:    getEnvFloatOrDefault("PERSONA_BETA", 2.0),
	}
}

func loadStorageConfig() *StorageConfig {
	return &StorageConfig{
		StatsDir:    getEnvOrDefault("STATS_DIR", "./stats"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate checks value ranges. Every failure is a CONFIG_INVALID AppError
func Validate(config *Config) error {
	sim := config.Simulation
	if !(sim.TargetAlpha > 0 && sim.TargetAlpha < 1) {
		return errors.ConfigInvalid(fmt.Sprintf("TARGET_ALPHA must be in (0,1), got %v", sim.TargetAlpha))
	}
	if sim.Workers < 1 {
		return errors.ConfigInvalid(fmt.Sprintf("WORKERS must be at least 1, got %d", sim.Workers))
	}
	if sim.Respondents < 0 {
		return errors.ConfigInvalid(fmt.Sprintf("RESPONDENTS must not be negative, got %d", sim.Respondents))
	}
	if sim.FailureRate < 0 || sim.FailureRate > 1 {
		return errors.ConfigInvalid(fmt.Sprintf("FAILURE_RATE must be in [0,1], got %v", sim.FailureRate))
	}
	if sim.PersonaEnabled && (sim.PersonaAlpha <= 0 || sim.PersonaBeta <= 0) {
		return errors.ConfigInvalid("PERSONA_ALPHA and PERSONA_BETA must be positive")
	}
	if config.Storage.DatabaseURL == "" && config.Storage.StatsDir == "" {
		return errors.ConfigInvalid("STATS_DIR is required when DATABASE_URL is unset")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
