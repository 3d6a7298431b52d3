package funnel

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// funnelConfig holds mutable state during Funnel construction.
type funnelConfig struct {
	title            string
	port             int
	baseURL          string
	revealDelay      time.Duration
	sessionTTL       time.Duration
	sessionCapacity  int
	secureCookies    bool
	trustProxy       bool
	content          CustomizationStore
	sqlitePath       string
	defaults         *Customization
	upsellCheckout   string
	downsellCheckout string
	adminEnabled     bool
	adminUser        string
	adminPassword    string
	registry         *prometheus.Registry
	logger           *slog.Logger
}

// Option is a function that configures a [Funnel] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*funnelConfig) error

// WithPort sets the HTTP port the funnel listens on.
//
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *funnelConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the brand shown in the page title and footer.
//
// If not specified, defaults to "Your Brand".
func WithTitle(title string) Option {
	return func(cfg *funnelConfig) error {
		cfg.title = title
		return nil
	}
}

// WithBaseURL sets the public origin that relative links are resolved
// against, such as "https://shop.example.com". Without it the origin is
// taken from each request's Host header.
//
// Returns an error if the address is not an absolute http(s) URL.
func WithBaseURL(base string) Option {
	return func(cfg *funnelConfig) error {
		u, err := url.Parse(base)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("base url must be an absolute http(s) URL, got %q", base)
		}
		cfg.baseURL = base
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Funnel instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *funnelConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithRevealDelay sets how long the home page keeps its offer block hidden.
//
// Defaults to 10 seconds. Returns an error if the delay is not positive.
func WithRevealDelay(d time.Duration) Option {
	return func(cfg *funnelConfig) error {
		if d <= 0 {
			return errors.New("reveal delay must be positive")
		}
		cfg.revealDelay = d
		return nil
	}
}

// WithSessionTTL sets how long an idle visitor session, and with it the
// captured attribution parameters, is kept.
//
// Defaults to 24 hours. Returns an error if the duration is not positive.
func WithSessionTTL(d time.Duration) Option {
	return func(cfg *funnelConfig) error {
		if d <= 0 {
			return errors.New("session ttl must be positive")
		}
		cfg.sessionTTL = d
		return nil
	}
}

// WithSessionCapacity bounds the number of sessions held in memory. The
// least recently used session is dropped when the bound is reached.
//
// Defaults to 10000. Returns an error if n is not positive.
func WithSessionCapacity(n int) Option {
	return func(cfg *funnelConfig) error {
		if n <= 0 {
			return errors.New("session capacity must be positive")
		}
		cfg.sessionCapacity = n
		return nil
	}
}

// WithSecureCookies marks the session cookie as HTTPS-only.
func WithSecureCookies(secure bool) Option {
	return func(cfg *funnelConfig) error {
		cfg.secureCookies = secure
		return nil
	}
}

// WithTrustProxy honors X-Forwarded-Proto and the forwarded client address
// headers. Enable it only when the funnel sits behind a proxy that sets
// them; otherwise clients can choose the scheme of generated links.
//
// Without [WithBaseURL], links are resolved against the request's Host
// header either way.
func WithTrustProxy(trust bool) Option {
	return func(cfg *funnelConfig) error {
		cfg.trustProxy = trust
		return nil
	}
}

// WithCustomizationStore sets the store holding the page customization.
// The caller keeps ownership of the store.
//
// Defaults to an in-memory store. Returns an error if the store is nil.
func WithCustomizationStore(s CustomizationStore) Option {
	return func(cfg *funnelConfig) error {
		if s == nil {
			return errors.New("customization store cannot be nil")
		}
		cfg.content = s
		cfg.sqlitePath = ""
		return nil
	}
}

// WithSQLiteStore keeps the page customization in a SQLite database at
// path. The database is opened by [New] and closed when [Funnel.Start]
// returns.
func WithSQLiteStore(path string) Option {
	return func(cfg *funnelConfig) error {
		if strings.TrimSpace(path) == "" {
			return errors.New("sqlite path cannot be empty")
		}
		cfg.sqlitePath = path
		cfg.content = nil
		return nil
	}
}

// WithDefaults sets the content shown until a customization is saved and
// after it is reset.
//
// Returns an error if the checkout URLs are not valid link targets.
func WithDefaults(c Customization) Option {
	return func(cfg *funnelConfig) error {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid defaults: %w", err)
		}
		cfg.defaults = &c
		return nil
	}
}

// WithCheckout sets the checkout addresses behind the upsell and downsell
// accept buttons. Empty values keep the default.
//
// Returns an error if a value is neither an http(s) URL nor an absolute path.
func WithCheckout(upsell, downsell string) Option {
	return func(cfg *funnelConfig) error {
		for name, v := range map[string]string{"upsell": upsell, "downsell": downsell} {
			if v == "" {
				continue
			}
			if !strings.HasPrefix(v, "/") && !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
				return fmt.Errorf("%s checkout must be an http(s) URL or an absolute path, got %q", name, v)
			}
		}
		cfg.upsellCheckout = upsell
		cfg.downsellCheckout = downsell
		return nil
	}
}

// WithAdmin enables the admin pages. When password is non-empty they are
// protected with HTTP basic auth; username defaults to "admin".
func WithAdmin(username, password string) Option {
	return func(cfg *funnelConfig) error {
		cfg.adminEnabled = true
		cfg.adminUser = username
		cfg.adminPassword = password
		return nil
	}
}

// WithRegistry registers the funnel metrics on reg instead of a private
// registry. Use it to expose the metrics next to an application's own.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(cfg *funnelConfig) error {
		if reg == nil {
			return errors.New("registry cannot be nil")
		}
		cfg.registry = reg
		return nil
	}
}
