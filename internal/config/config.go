package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type APIConfig interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
}

type StorageConfig interface {
	GetStorageDriver() string
	GetStoragePath() string
	GetStorageNamespace() string
	GetStoragePassphrase() string
	GetRedisURL() string
}

type SessionConfig interface {
	GetLoginRedirectDelay() time.Duration
	GetPageSize() int
}

type mainConfig struct {
	EnvVars
}

// New loads an optional .env file and parses the environment.
func New() (Config, error) {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv parses the current process environment without touching .env files.
func FromEnv() (Config, error) {
	var vars EnvVars
	if err := env.Parse(&vars); err != nil {
		return nil, fmt.Errorf("[config.FromEnv] %w", err)
	}
	if err := vars.validate(); err != nil {
		return nil, fmt.Errorf("[config.FromEnv] %w", err)
	}
	return mainConfig{EnvVars: vars}, nil
}
