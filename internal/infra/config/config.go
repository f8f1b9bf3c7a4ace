package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends supported by the application.
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken   string
	DatabaseURL     string
	PlatformBaseURL string
	PollSpec        string // cron spec for the monitoring sweep, e.g. "@every 10m"
	PlatformTimeout time.Duration
	MonitorWorkers  int
	NotifyAttempts  int
	StoreBackend    string
	LogLevel        string
	Environment     string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.PlatformBaseURL = strings.TrimRight(os.Getenv("PLATFORM_BASE_URL"), "/")
	if cfg.PlatformBaseURL == "" {
		return nil, fmt.Errorf("PLATFORM_BASE_URL is not set")
	}

	cfg.StoreBackend = strings.ToLower(os.Getenv("STORE_BACKEND"))
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = StoreBackendPostgres
	}
	if cfg.StoreBackend != StoreBackendPostgres && cfg.StoreBackend != StoreBackendMemory {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: must be %q or %q", cfg.StoreBackend, StoreBackendPostgres, StoreBackendMemory)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && cfg.StoreBackend == StoreBackendPostgres {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.PollSpec = os.Getenv("POLL_SPEC")
	if cfg.PollSpec == "" {
		cfg.PollSpec = "@every 10m" // Default: poll the platform every 10 minutes
	}

	timeoutStr := os.Getenv("PLATFORM_TIMEOUT")
	if timeoutStr == "" {
		cfg.PlatformTimeout = 30 * time.Second
	} else {
		cfg.PlatformTimeout, err = time.ParseDuration(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PLATFORM_TIMEOUT: %w", err)
		}
	}

	workersStr := os.Getenv("MONITOR_WORKERS")
	if workersStr == "" {
		cfg.MonitorWorkers = 4
	} else {
		cfg.MonitorWorkers, err = strconv.Atoi(workersStr)
		if err != nil || cfg.MonitorWorkers < 1 {
			return nil, fmt.Errorf("invalid MONITOR_WORKERS: %q", workersStr)
		}
	}

	attemptsStr := os.Getenv("NOTIFY_ATTEMPTS")
	if attemptsStr == "" {
		cfg.NotifyAttempts = 3
	} else {
		cfg.NotifyAttempts, err = strconv.Atoi(attemptsStr)
		if err != nil || cfg.NotifyAttempts < 1 {
			return nil, fmt.Errorf("invalid NOTIFY_ATTEMPTS: %q", attemptsStr)
		}
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}
