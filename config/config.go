// Package config provides YAML configuration parsing for the funnel.
//
// This package enables running the funnel as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Acme Wellness
//	port: 8080
//	base_url: https://shop.example.com
//	trust_proxy: true
//	reveal_delay: 10s
//
//	session:
//	  ttl: 24h
//	  capacity: 10000
//	  secure: true
//
//	storage:
//	  driver: sqlite
//	  path: /var/lib/funnel/funnel.db
//
//	admin:
//	  enabled: true
//	  password: ${FUNNEL_ADMIN_PASSWORD}
//
//	checkout:
//	  upsell: https://pay.example.com/upsell
//	  downsell: https://pay.example.com/downsell
//
//	customization:
//	  headline: Discover the morning routine
//	  mainOfferCheckoutUrl: https://pay.example.com/6-bottle
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/funnel"
)

const (
	defaultPort        = 8080
	defaultRevealDelay = 10 * time.Second

	// minSessionTTL keeps sessions from expiring between two page loads.
	minSessionTTL = time.Minute
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the root configuration structure for the funnel.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the brand shown in the page title and footer.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// BaseURL is the public origin used to resolve relative links. Set it
	// in production; without it links follow the request's Host header.
	// Supports environment variable substitution.
	BaseURL string `yaml:"base_url"`

	// TrustProxy honors X-Forwarded-Proto and forwarded client addresses.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool `yaml:"trust_proxy"`

	// RevealDelay is how long the home page hides its offers. Defaults to 10s.
	RevealDelay Duration `yaml:"reveal_delay"`

	Session  SessionConfig  `yaml:"session"`
	Storage  StorageConfig  `yaml:"storage"`
	Admin    AdminConfig    `yaml:"admin"`
	Checkout CheckoutConfig `yaml:"checkout"`

	// Customization overrides fields of the default page content. Keys are
	// the customization document keys, such as "headline" or
	// "offer1CheckoutUrl". Values support environment variable substitution.
	Customization map[string]string `yaml:"customization"`
}

// SessionConfig controls visitor sessions.
type SessionConfig struct {
	// TTL is the idle lifetime of a session. Must be at least 1m if set.
	TTL Duration `yaml:"ttl"`

	// Capacity bounds the number of sessions held in memory.
	Capacity int `yaml:"capacity"`

	// Secure marks the session cookie as HTTPS-only.
	Secure bool `yaml:"secure"`
}

// StorageConfig selects where the customization is kept.
type StorageConfig struct {
	// Driver is "memory" (default) or "sqlite".
	Driver string `yaml:"driver"`

	// Path is the SQLite database file. Required for the sqlite driver.
	Path string `yaml:"path"`
}

// AdminConfig controls the admin pages.
type AdminConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`

	// Password enables basic auth on the admin pages when set.
	// Supports environment variable substitution.
	Password string `yaml:"password"`
}

// CheckoutConfig holds the upsell and downsell checkout addresses.
// Values support environment variable substitution.
type CheckoutConfig struct {
	Upsell   string `yaml:"upsell"`
	Downsell string `yaml:"downsell"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// FUNNEL_* environment overrides are applied on top of the file (see
// [ApplyEnv]), then ${VAR} references are expanded in BaseURL, the checkout
// addresses, the admin password and customization values. Defaults are
// applied for Port (8080), RevealDelay (10s) and Storage.Driver (memory).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.RevealDelay == 0 {
		cfg.RevealDelay = Duration(defaultRevealDelay)
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverMemory
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.RevealDelay.Duration() < 0 {
		return fmt.Errorf("reveal_delay cannot be negative, got %s", c.RevealDelay.Duration())
	}

	var err error
	if c.BaseURL, err = expandEnvVars(c.BaseURL); err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("base_url: invalid url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("base_url: scheme must be http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("base_url: host is required")
		}
	}

	if c.Session.TTL != 0 && c.Session.TTL.Duration() < minSessionTTL {
		return fmt.Errorf("session.ttl must be at least %s, got %s", minSessionTTL, c.Session.TTL.Duration())
	}
	if c.Session.Capacity < 0 {
		return fmt.Errorf("session.capacity cannot be negative, got %d", c.Session.Capacity)
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required for the %s driver", DriverSQLite)
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverMemory, DriverSQLite, c.Storage.Driver)
	}

	if c.Admin.Password, err = expandEnvVars(c.Admin.Password); err != nil {
		return fmt.Errorf("admin.password: %w", err)
	}

	checkouts := []struct {
		field string
		value *string
	}{
		{"checkout.upsell", &c.Checkout.Upsell},
		{"checkout.downsell", &c.Checkout.Downsell},
	}
	for _, co := range checkouts {
		expanded, err := expandEnvVars(*co.value)
		if err != nil {
			return fmt.Errorf("%s: %w", co.field, err)
		}
		*co.value = expanded
		if expanded != "" && !isLinkTarget(expanded) {
			return fmt.Errorf("%s: must be an http(s) URL or an absolute path, got %q", co.field, expanded)
		}
	}

	for _, key := range sortedKeys(c.Customization) {
		expanded, err := expandEnvVars(c.Customization[key])
		if err != nil {
			return fmt.Errorf("customization[%s]: %w", key, err)
		}
		c.Customization[key] = expanded
	}
	if _, err := c.Defaults(); err != nil {
		return err
	}

	return nil
}

// Defaults returns the default page content with the configured
// customization overrides applied.
func (c *Config) Defaults() (funnel.Customization, error) {
	base := funnel.DefaultCustomization()
	if len(c.Customization) == 0 {
		return base, nil
	}

	// overlay through the document form so keys match the JSON API
	raw, err := json.Marshal(base)
	if err != nil {
		return funnel.Customization{}, err
	}
	doc := map[string]string{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return funnel.Customization{}, err
	}
	for _, key := range sortedKeys(c.Customization) {
		if _, ok := doc[key]; !ok {
			return funnel.Customization{}, fmt.Errorf("customization: unknown field %q", key)
		}
		doc[key] = c.Customization[key]
	}

	raw, err = json.Marshal(doc)
	if err != nil {
		return funnel.Customization{}, err
	}
	var out funnel.Customization
	if err := json.Unmarshal(raw, &out); err != nil {
		return funnel.Customization{}, err
	}
	if err := out.Validate(); err != nil {
		return funnel.Customization{}, fmt.Errorf("customization: %w", err)
	}
	return out, nil
}

func isLinkTarget(s string) bool {
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
