package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jpalmerr/funnel/internal/metrics"
	"github.com/jpalmerr/funnel/internal/session"
	"github.com/jpalmerr/funnel/internal/store"
	"github.com/jpalmerr/funnel/params"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Your Brand"

	// defaultRevealDelay is how long the home page hides its offer block.
	defaultRevealDelay = 10 * time.Second

	// defaultAdminUser is the basic auth user when only a password is configured.
	defaultAdminUser = "admin"

	// maxCaptureBody limits the size of a capture request.
	maxCaptureBody = 16 << 10
)

// Config holds the settings the server needs beyond its dependencies.
type Config struct {
	// Port is the TCP port to listen on. 0 lets the OS choose.
	Port int

	// Title is the brand shown in the page title and footer.
	Title string

	// BaseURL is the public origin used to resolve relative links. When
	// empty the origin is derived from each request's Host header, so it
	// should be set whenever the server is reachable under more than one
	// name.
	BaseURL string

	// TrustProxy honors X-Forwarded-Proto and the client address headers
	// read by chi's RealIP. Enable it only behind a proxy that overwrites
	// them.
	TrustProxy bool

	// RevealDelay is how long the home page waits before showing the offers.
	RevealDelay time.Duration

	// Defaults is the content shown until a customization is saved.
	Defaults store.Customization

	// UpsellCheckout and DownsellCheckout are the checkout addresses of the
	// upsell and downsell accept buttons.
	UpsellCheckout   string
	DownsellCheckout string

	// Admin controls the admin menu and customization endpoints.
	Admin AdminConfig
}

// AdminConfig controls access to the admin pages.
type AdminConfig struct {
	// Enabled mounts /admin and the customization write endpoints.
	Enabled bool

	// Username and Password protect the admin routes with basic auth when
	// Password is non-empty.
	Username string
	Password string
}

// Server handles HTTP requests for the funnel pages and API.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	cfg        Config
	baseURL    *url.URL
	sessions   *session.Manager
	content    store.Store
	metrics    *metrics.Metrics
	pages      map[string]*template.Template
	httpServer *http.Server
	done       chan struct{}
	logger     *slog.Logger
	now        func() time.Time
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - cfg: server settings; zero values fall back to defaults
//   - sessions: session manager backing the attribution parameters
//   - content: customization store
//   - m: metrics collectors (a private registry is created if nil)
//   - assets: filesystem holding templates/*.html
//   - logger: logger for server events
//
// Returns an error if the templates cannot be parsed or BaseURL is invalid.
// The server is not started until [Server.Start] is called.
func NewServer(cfg Config, sessions *session.Manager, content store.Store, m *metrics.Metrics, assets fs.FS, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
	if cfg.RevealDelay <= 0 {
		cfg.RevealDelay = defaultRevealDelay
	}
	if cfg.Defaults == (store.Customization{}) {
		cfg.Defaults = store.DefaultCustomization()
	}
	if cfg.UpsellCheckout == "" {
		cfg.UpsellCheckout = store.DefaultCheckoutURL
	}
	if cfg.DownsellCheckout == "" {
		cfg.DownsellCheckout = store.DefaultCheckoutURL
	}
	if cfg.Admin.Username == "" {
		cfg.Admin.Username = defaultAdminUser
	}
	if sessions == nil {
		sessions = session.NewManager(session.Config{}, logger)
	}
	if content == nil {
		content = store.NewMemoryStore()
	}
	if m == nil {
		m = metrics.New(nil, sessions.Len)
	}

	var baseURL *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
		}
		baseURL = &url.URL{Scheme: u.Scheme, Host: u.Host}
	}

	pages, err := parsePages(assets)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		baseURL:  baseURL,
		sessions: sessions,
		content:  content,
		metrics:  m,
		pages:    pages,
		done:     make(chan struct{}),
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Handler returns the router with all funnel routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)

		r.Get("/", s.handleHome)
		r.Get("/pr", s.handlePresell)
		r.Get("/up1", s.handleUpsell)
		r.Get("/dw1", s.handleDownsell)
		r.Get("/thank-you", s.handleThankYou)

		r.Get("/checkout/{offer}", s.handleCheckout)
		r.Get("/go/{step}/{choice}", s.handleStep)

		r.Get("/api/params", s.handleParams)
		r.Post("/api/params/capture", s.handleCapture)
		r.Get("/api/customization", s.handleGetCustomization)

		if !s.cfg.Admin.Enabled {
			return
		}
		r.Group(func(r chi.Router) {
			if s.cfg.Admin.Password != "" {
				r.Use(middleware.BasicAuth("funnel admin", map[string]string{
					s.cfg.Admin.Username: s.cfg.Admin.Password,
				}))
			}
			r.Get("/admin", s.handleAdminHome)
			r.Get("/admin/customization", s.handleAdminForm)
			r.Post("/admin/customization", s.handleAdminSave)
			r.Post("/admin/customization/reset", s.handleAdminReset)
			r.Put("/api/customization", s.handlePutCustomization)
			r.Get("/api/customization/events", s.handleSSE)
		})
	})

	return r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.cfg.Port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context,
		// so long-running handlers like SSE end on shutdown.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		defer close(s.done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Done is closed once a started server has finished shutting down.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// logRequests writes one log line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// origin returns the address relative links are resolved against.
func (s *Server) origin(r *http.Request) *url.URL {
	if s.baseURL != nil {
		return s.baseURL
	}
	scheme := "http"
	if r.TLS != nil || (s.cfg.TrustProxy && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")) {
		scheme = "https"
	}
	return &url.URL{Scheme: scheme, Host: r.Host}
}

// paramStore returns the attribution store of the request's session.
func (s *Server) paramStore(r *http.Request) *params.ParamStore {
	st := s.metrics.InstrumentStore(session.FromContext(r.Context()))
	return params.New(st, params.WithLogger(s.logger))
}

// visit runs the page-load sequence: read the merged parameters, persist
// them for the session, and count the capture.
func (s *Server) visit(r *http.Request) params.Set {
	ps := s.paramStore(r)
	fromAddress := params.FromAddress(r.URL)
	all := ps.ReadPersisted().Merge(fromAddress)
	ps.Persist(all)

	if n := len(fromAddress); n > 0 {
		s.metrics.ParamsCaptured.WithLabelValues("page").Add(float64(n))
	}
	return all
}

// loadContent returns the saved customization, or the defaults when nothing
// is saved or the store fails.
func (s *Server) loadContent(ctx context.Context) store.Customization {
	c, ok, err := s.content.Load(ctx)
	if err != nil {
		s.logger.Warn("failed to load customization data", "error", err)
		return s.cfg.Defaults
	}
	if !ok {
		return s.cfg.Defaults
	}
	return c
}
