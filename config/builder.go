package config

import (
	"github.com/jpalmerr/funnel"
)

// BuildOptions converts parsed configuration into SDK options.
//
// The logger is not part of the file and is added by the caller.
func BuildOptions(cfg *Config) ([]funnel.Option, error) {
	defaults, err := cfg.Defaults()
	if err != nil {
		return nil, err
	}

	opts := []funnel.Option{
		funnel.WithPort(cfg.Port),
		funnel.WithTitle(cfg.Title),
		funnel.WithRevealDelay(cfg.RevealDelay.Duration()),
		funnel.WithDefaults(defaults),
		funnel.WithSecureCookies(cfg.Session.Secure),
		funnel.WithTrustProxy(cfg.TrustProxy),
	}

	if cfg.BaseURL != "" {
		opts = append(opts, funnel.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Session.TTL != 0 {
		opts = append(opts, funnel.WithSessionTTL(cfg.Session.TTL.Duration()))
	}
	if cfg.Session.Capacity != 0 {
		opts = append(opts, funnel.WithSessionCapacity(cfg.Session.Capacity))
	}
	if cfg.Storage.Driver == DriverSQLite {
		opts = append(opts, funnel.WithSQLiteStore(cfg.Storage.Path))
	}
	if cfg.Checkout.Upsell != "" || cfg.Checkout.Downsell != "" {
		opts = append(opts, funnel.WithCheckout(cfg.Checkout.Upsell, cfg.Checkout.Downsell))
	}
	if cfg.Admin.Enabled {
		opts = append(opts, funnel.WithAdmin(cfg.Admin.Username, cfg.Admin.Password))
	}

	return opts, nil
}
