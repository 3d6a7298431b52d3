package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParse_MinimalConfig(t *testing.T) {
	cfg, err := Parse([]byte(`title: Acme`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.RevealDelay.Duration() != 10*time.Second {
		t.Errorf("RevealDelay = %v, want 10s", cfg.RevealDelay.Duration())
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, DriverMemory)
	}
	if cfg.Admin.Enabled {
		t.Error("Admin.Enabled should default to false")
	}
	if cfg.TrustProxy {
		t.Error("TrustProxy should default to false")
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
title: Acme Wellness
port: 9090
base_url: https://shop.example.com
trust_proxy: true
reveal_delay: 3s

session:
  ttl: 2h
  capacity: 500
  secure: true

storage:
  driver: sqlite
  path: /tmp/funnel.db

admin:
  enabled: true
  username: ops
  password: hunter2

checkout:
  upsell: https://pay.example.com/upsell
  downsell: /downsell-checkout

customization:
  headline: Morning routine
  offer1CheckoutUrl: https://pay.example.com/3
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Acme Wellness" {
		t.Errorf("Title = %q", cfg.Title)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if !cfg.TrustProxy {
		t.Error("TrustProxy should be true")
	}
	if cfg.RevealDelay.Duration() != 3*time.Second {
		t.Errorf("RevealDelay = %v, want 3s", cfg.RevealDelay.Duration())
	}
	if cfg.Session.TTL.Duration() != 2*time.Hour || cfg.Session.Capacity != 500 || !cfg.Session.Secure {
		t.Errorf("Session = %+v", cfg.Session)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.Path != "/tmp/funnel.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if !cfg.Admin.Enabled || cfg.Admin.Username != "ops" || cfg.Admin.Password != "hunter2" {
		t.Errorf("Admin = %+v", cfg.Admin)
	}
	if cfg.Checkout.Downsell != "/downsell-checkout" {
		t.Errorf("Checkout.Downsell = %q", cfg.Checkout.Downsell)
	}

	defaults, err := cfg.Defaults()
	if err != nil {
		t.Fatalf("Defaults() error = %v", err)
	}
	if defaults.Headline != "Morning routine" {
		t.Errorf("Headline = %q, want %q", defaults.Headline, "Morning routine")
	}
	if defaults.Offer1CheckoutURL != "https://pay.example.com/3" {
		t.Errorf("Offer1CheckoutURL = %q", defaults.Offer1CheckoutURL)
	}
	if defaults.GuaranteeTitle != "180 Days Guarantee" {
		t.Errorf("GuaranteeTitle = %q, want the default", defaults.GuaranteeTitle)
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_UPSELL_URL", "https://pay.example.com/from-env")
	t.Setenv("TEST_ADMIN_PW", "s3cret")

	yaml := `
admin:
  enabled: true
  password: ${TEST_ADMIN_PW}
checkout:
  upsell: ${TEST_UPSELL_URL}
customization:
  headline: Hello ${TEST_MISSING_NAME:-visitor}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Checkout.Upsell != "https://pay.example.com/from-env" {
		t.Errorf("Checkout.Upsell = %q", cfg.Checkout.Upsell)
	}
	if cfg.Admin.Password != "s3cret" {
		t.Errorf("Admin.Password = %q", cfg.Admin.Password)
	}
	if cfg.Customization["headline"] != "Hello visitor" {
		t.Errorf("headline = %q, want default substitution", cfg.Customization["headline"])
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	yaml := `
checkout:
  upsell: ${FUNNEL_TEST_DEFINITELY_UNSET}
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for missing env var")
	}
	if !strings.Contains(err.Error(), "checkout.upsell") {
		t.Errorf("error = %v, want it to name the field", err)
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("FUNNEL_PORT", "7070")
	t.Setenv("FUNNEL_TITLE", "From Env")
	t.Setenv("FUNNEL_STORAGE_DRIVER", "sqlite")
	t.Setenv("FUNNEL_STORAGE_PATH", "/data/funnel.db")
	t.Setenv("FUNNEL_ADMIN_PASSWORD", "env-pw")

	yaml := `
title: From File
port: 9090
admin:
  enabled: true
  password: file-pw
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Port)
	}
	if cfg.Title != "From Env" {
		t.Errorf("Title = %q, want %q", cfg.Title, "From Env")
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.Path != "/data/funnel.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Admin.Password != "env-pw" {
		t.Errorf("Admin.Password = %q, want %q", cfg.Admin.Password, "env-pw")
	}
}

func TestParse_EnvOverrideInvalidPort(t *testing.T) {
	t.Setenv("FUNNEL_PORT", "not-a-number")

	if _, err := Parse([]byte(`title: x`)); err == nil {
		t.Fatal("Parse() expected error for non-numeric FUNNEL_PORT")
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"port too high", "port: 70000", "port must be between 1 and 65535"},
		{"negative port", "port: -5", "port must be between 1 and 65535"},
		{"negative reveal delay", "reveal_delay: -1s", "reveal_delay cannot be negative"},
		{"base url without scheme", "base_url: shop.example.com", "base_url: scheme must be http or https"},
		{"base url without host", "base_url: https://", "base_url: host is required"},
		{"short session ttl", "session:\n  ttl: 10s", "session.ttl must be at least 1m"},
		{"negative capacity", "session:\n  capacity: -1", "session.capacity cannot be negative"},
		{"unknown driver", "storage:\n  driver: redis", "storage.driver must be"},
		{"sqlite without path", "storage:\n  driver: sqlite", "storage.path is required"},
		{"bad upsell checkout", "checkout:\n  upsell: pay.example.com", "checkout.upsell: must be an http(s) URL"},
		{"unknown customization key", "customization:\n  headlin: typo", `unknown field "headlin"`},
		{"empty checkout in customization", "customization:\n  mainOfferCheckoutUrl: ''", "mainOfferCheckoutUrl is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("Parse() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("port: [unclosed"))
	if err == nil {
		t.Fatal("Parse() expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse YAML") {
		t.Errorf("error = %v", err)
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse([]byte("reveal_delay: soon"))
	if err == nil {
		t.Fatal("Parse() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %v", err)
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"10s", 10 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"500ms", 500 * time.Millisecond, false},
		{"24h", 24 * time.Hour, false},
		{"invalid", 0, true},
		{"10", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := yaml.Unmarshal([]byte(tt.input), &d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && d.Duration() != tt.want {
				t.Errorf("Duration = %v, want %v", d.Duration(), tt.want)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_EXPAND_SET", "value")
	t.Setenv("TEST_EXPAND_EMPTY", "")

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "no vars", false},
		{"${TEST_EXPAND_SET}", "value", false},
		{"a-${TEST_EXPAND_SET}-b", "a-value-b", false},
		{"${TEST_EXPAND_EMPTY}", "", false},
		{"${TEST_EXPAND_EMPTY:-fallback}", "", false},
		{"${TEST_EXPAND_UNSET:-fallback}", "fallback", false},
		{"${TEST_EXPAND_UNSET:-}", "", false},
		{"${TEST_EXPAND_UNSET}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := expandEnvVars(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funnel.yaml")
	if err := os.WriteFile(path, []byte("port: 9191\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9191 {
		t.Errorf("Port = %d, want 9191", cfg.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("error = %v", err)
	}
}
