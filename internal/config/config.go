package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	ServerPort     string
	StoreBackend   string
	DatabaseURL    string
	RedisURL       string
	StoreContainer string

	JWTSecret  string
	APIKeyHash string

	SyncDebounce   time.Duration
	SyncThrottle   time.Duration
	SyncMaxRetries int
	PollInterval   time.Duration
}

func LoadConfig() (*Config, error) {
	pollStr := getEnv("POLL_INTERVAL", "5m")
	pollInterval, err := time.ParseDuration(pollStr)
	if err != nil {
		return nil, errors.New("invalid POLL_INTERVAL format")
	}

	debounceMs, err := getEnvInt("SYNC_DEBOUNCE_MS", 2000)
	if err != nil {
		return nil, err
	}
	throttleMs, err := getEnvInt("SYNC_THROTTLE_MS", 10000)
	if err != nil {
		return nil, err
	}
	maxRetries, err := getEnvInt("SYNC_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		StoreBackend:   getEnv("STORE_BACKEND", BackendRedis),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		StoreContainer: getEnv("STORE_CONTAINER", "tickstream"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		APIKeyHash:     os.Getenv("API_KEY_HASH"),
		SyncDebounce:   time.Duration(debounceMs) * time.Millisecond,
		SyncThrottle:   time.Duration(throttleMs) * time.Millisecond,
		SyncMaxRetries: maxRetries,
		PollInterval:   pollInterval,
	}

	// Validate required fields
	switch cfg.StoreBackend {
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for the redis backend")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.JWTSecret == "" && cfg.APIKeyHash == "" {
		return nil, errors.New("one of JWT_SECRET or API_KEY_HASH is required")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return n, nil
}
