package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	StorageDriverMemory = "memory"
	StorageDriverFile   = "file"
	StorageDriverRedis  = "redis"
)

type EnvVars struct {
	AppName            string        `env:"APP_NAME" envDefault:"ShopSphere"`
	Env                string        `env:"ENV" envDefault:"DEV"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	APIBaseURL         string        `env:"API_URL" envDefault:"http://localhost:3000"`
	APITimeout         time.Duration `env:"API_TIMEOUT" envDefault:"0s"`
	StorageDriver      string        `env:"STORAGE_DRIVER" envDefault:"file"`
	StoragePath        string        `env:"STORAGE_PATH" envDefault:"./data/storage.json"`
	StorageNamespace   string        `env:"STORAGE_NAMESPACE" envDefault:"storefront"`
	StoragePassphrase  string        `env:"STORAGE_PASSPHRASE"`
	RedisURL           string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	LoginRedirectDelay time.Duration `env:"LOGIN_REDIRECT_DELAY" envDefault:"2s"`
	PageSize           int           `env:"PAGE_SIZE" envDefault:"10"`
}

var _ Config = mainConfig{}

func (e EnvVars) validate() error {
	switch e.GetStorageDriver() {
	case StorageDriverMemory, StorageDriverFile, StorageDriverRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", e.StorageDriver)
	}
	if e.PageSize < 1 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", e.PageSize)
	}
	return nil
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

// GetAPIBaseURL returns the backend origin without a trailing slash; request paths carry the /api prefix.
func (e EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(e.APIBaseURL, "/")
}

// GetAPITimeout returns zero when requests should rely on the transport's own timeouts.
func (e EnvVars) GetAPITimeout() time.Duration {
	return e.APITimeout
}

func (e EnvVars) GetStorageDriver() string {
	return strings.ToLower(e.StorageDriver)
}

func (e EnvVars) GetStoragePath() string {
	return e.StoragePath
}

func (e EnvVars) GetStorageNamespace() string {
	return e.StorageNamespace
}

func (e EnvVars) GetStoragePassphrase() string {
	return e.StoragePassphrase
}

func (e EnvVars) GetRedisURL() string {
	return e.RedisURL
}

func (e EnvVars) GetLoginRedirectDelay() time.Duration {
	return e.LoginRedirectDelay
}

func (e EnvVars) GetPageSize() int {
	return e.PageSize
}
