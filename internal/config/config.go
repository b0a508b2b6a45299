package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Service struct {
	Environment string `envconfig:"SERVICE_ENVIRONMENT" required:"true"`
	APIPort     string `envconfig:"SERVICE_API_PORT" default:"8080"`
}

type Store struct {
	Path          string `envconfig:"STORE_PATH" default:"doorsync.db"`
	BusyTimeoutMs int    `envconfig:"STORE_BUSY_TIMEOUT_MS" default:"5000"`
	MaxOpenConns  int    `envconfig:"STORE_MAX_OPEN_CONNS" default:"1"`
}

type Remote struct {
	BaseURL    string `envconfig:"REMOTE_BASE_URL" required:"true"`
	APIKey     string `envconfig:"REMOTE_API_KEY" default:""`
	TimeoutSec int    `envconfig:"REMOTE_TIMEOUT_SEC" default:"10"`
}

type Sync struct {
	// AutoIntervalSec of 0 disables the background sync loop.
	AutoIntervalSec int `envconfig:"SYNC_AUTO_INTERVAL_SEC" default:"0"`
}

type Checkin struct {
	DefaultZone string `envconfig:"CHECKIN_DEFAULT_ZONE" default:"main_entrance"`
}

type Config struct {
	Service Service
	Store   Store
	Remote  Remote
	Sync    Sync
	Checkin Checkin
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
