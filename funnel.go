package funnel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jpalmerr/funnel/internal/metrics"
	"github.com/jpalmerr/funnel/internal/server"
	"github.com/jpalmerr/funnel/internal/session"
	"github.com/jpalmerr/funnel/internal/store"
	"github.com/jpalmerr/funnel/web"
)

const (
	defaultPort        = 8080
	defaultRevealDelay = 10 * time.Second
)

// Customization is the operator-editable content of the funnel pages.
type Customization = store.Customization

// CustomizationStore persists the page customization and notifies
// subscribers of changes. Implementations must be safe for concurrent use.
type CustomizationStore = store.Store

// DefaultCustomization returns the content shown before anything is saved.
func DefaultCustomization() Customization {
	return store.DefaultCustomization()
}

// Funnel serves the funnel pages and carries each visitor's attribution
// parameters from page to page.
//
// Funnel is created using [New] with functional options and started with
// [Funnel.Start]. The typical lifecycle is:
//
//	f, err := funnel.New(funnel.WithTitle("Acme"), funnel.WithAdmin("admin", pw))
//	if err != nil {
//	    slog.Error("failed to create funnel", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	f.Start(ctx) // blocks until context cancelled
type Funnel struct {
	port     int
	server   *server.Server
	sessions *session.Manager
	closer   io.Closer
	logger   *slog.Logger
}

// New creates a new [Funnel] instance with the given options.
//
// Options have sensible defaults:
//   - Port: 8080
//   - Reveal delay: 10 seconds
//   - Sessions: 24 hour idle TTL, at most 10000 held in memory
//   - Customization: in-memory, starting from [DefaultCustomization]
//   - Admin pages: disabled
//
// Returns an error if any option is invalid or the configured SQLite
// database cannot be opened.
func New(opts ...Option) (*Funnel, error) {
	cfg := &funnelConfig{
		port:        defaultPort,
		revealDelay: defaultRevealDelay,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	var closer io.Closer
	content := cfg.content
	if cfg.sqlitePath != "" {
		db, err := store.OpenSQLite(cfg.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open customization store: %w", err)
		}
		content, closer = db, db
	}
	if content == nil {
		content = store.NewMemoryStore()
	}

	sessions := session.NewManager(session.Config{
		TTL:      cfg.sessionTTL,
		Capacity: cfg.sessionCapacity,
		Secure:   cfg.secureCookies,
	}, logger)

	defaults := store.DefaultCustomization()
	if cfg.defaults != nil {
		defaults = *cfg.defaults
	}

	srv, err := server.NewServer(server.Config{
		Port:             cfg.port,
		Title:            cfg.title,
		BaseURL:          cfg.baseURL,
		TrustProxy:       cfg.trustProxy,
		RevealDelay:      cfg.revealDelay,
		Defaults:         defaults,
		UpsellCheckout:   cfg.upsellCheckout,
		DownsellCheckout: cfg.downsellCheckout,
		Admin: server.AdminConfig{
			Enabled:  cfg.adminEnabled,
			Username: cfg.adminUser,
			Password: cfg.adminPassword,
		},
	}, sessions, content, metrics.New(cfg.registry, sessions.Len), web.Templates, logger)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}

	return &Funnel{
		port:     cfg.port,
		server:   srv,
		sessions: sessions,
		closer:   closer,
		logger:   logger,
	}, nil
}

// Start serves the funnel until the provided context is cancelled.
//
// Start is a blocking call. On cancellation the HTTP server drains in-flight
// requests for up to 5 seconds, after which a SQLite store opened via
// [WithSQLiteStore] is closed.
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails to start.
func (f *Funnel) Start(ctx context.Context) error {
	defer func() {
		if err := f.Close(); err != nil {
			f.logger.Warn("failed to close customization store", "error", err)
		}
	}()

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	if err := f.server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	f.logger.Info("funnel available", "url", fmt.Sprintf("http://localhost:%d", f.port))

	<-ctx.Done()
	<-f.server.Done()
	f.logger.Info("funnel stopped")
	return nil
}

// Handler returns the funnel's routes for mounting in an existing server.
// The caller owns the lifecycle; [Funnel.Start] need not be called.
func (f *Funnel) Handler() http.Handler {
	return f.server.Handler()
}

// Port returns the configured HTTP port.
func (f *Funnel) Port() int {
	return f.port
}

// Sessions returns the number of visitor sessions held in memory.
func (f *Funnel) Sessions() int {
	return f.sessions.Len()
}

// Close releases a SQLite store opened via [WithSQLiteStore]. It is only
// needed when the funnel is served through [Funnel.Handler]; Start closes
// the store itself.
func (f *Funnel) Close() error {
	if f.closer == nil {
		return nil
	}
	closer := f.closer
	f.closer = nil
	return closer.Close()
}
