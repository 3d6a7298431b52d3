package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides holds the FUNNEL_* variables. Unset variables leave the file
// value untouched.
type envOverrides struct {
	Port          int    `env:"FUNNEL_PORT"`
	Title         string `env:"FUNNEL_TITLE"`
	BaseURL       string `env:"FUNNEL_BASE_URL"`
	StorageDriver string `env:"FUNNEL_STORAGE_DRIVER"`
	StoragePath   string `env:"FUNNEL_STORAGE_PATH"`
	AdminPassword string `env:"FUNNEL_ADMIN_PASSWORD"`
}

// ApplyEnv overrides file values with FUNNEL_PORT, FUNNEL_TITLE,
// FUNNEL_BASE_URL, FUNNEL_STORAGE_DRIVER, FUNNEL_STORAGE_PATH and
// FUNNEL_ADMIN_PASSWORD when they are set.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.Port != 0 {
		c.Port = o.Port
	}
	if o.Title != "" {
		c.Title = o.Title
	}
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
	if o.StorageDriver != "" {
		c.Storage.Driver = o.StorageDriver
	}
	if o.StoragePath != "" {
		c.Storage.Path = o.StoragePath
	}
	if o.AdminPassword != "" {
		c.Admin.Password = o.AdminPassword
	}
	return nil
}
