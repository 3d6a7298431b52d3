package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jpalmerr/funnel/params"
)

const (
	// DefaultCookieName is the session cookie used when none is configured.
	DefaultCookieName = "funnel_session"

	// DefaultTTL is how long an idle session is kept.
	DefaultTTL = 24 * time.Hour

	// DefaultCapacity is the maximum number of sessions kept in memory.
	DefaultCapacity = 10000
)

// Config configures a [Manager]. Zero fields fall back to the package defaults.
type Config struct {
	// CookieName is the name of the session cookie.
	CookieName string

	// TTL is the idle lifetime of a session. Every request touching the
	// session extends it.
	TTL time.Duration

	// Capacity bounds the number of live sessions. The least recently used
	// session is dropped when the bound is reached.
	Capacity int

	// MaxValueBytes is the per-value quota of each bucket.
	MaxValueBytes int

	// Secure marks the cookie as HTTPS-only.
	Secure bool
}

// Manager tracks session buckets keyed by session ID.
//
// Manager is safe for concurrent use.
type Manager struct {
	buckets *expirable.LRU[string, *Bucket]
	cfg     Config
	logger  *slog.Logger
}

type bucketKey struct{}

// NewManager creates a Manager with the given configuration.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.MaxValueBytes <= 0 {
		cfg.MaxValueBytes = DefaultMaxValueBytes
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{cfg: cfg, logger: logger}
	m.buckets = expirable.NewLRU[string, *Bucket](cfg.Capacity, func(id string, _ *Bucket) {
		m.logger.Debug("session dropped", "session_id", id)
	}, cfg.TTL)
	return m
}

// Middleware attaches the request's session bucket to its context, starting
// a new session when the cookie is missing, malformed, or refers to a
// session that no longer exists.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, bucket := m.lookup(r)
		if bucket == nil {
			id, bucket = m.create()
			http.SetCookie(w, &http.Cookie{
				Name:     m.cfg.CookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   m.cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), bucketKey{}, bucket)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Get returns the bucket for a session ID.
func (m *Manager) Get(id string) (*Bucket, bool) {
	return m.buckets.Get(id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.buckets.Len()
}

func (m *Manager) lookup(r *http.Request) (string, *Bucket) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return "", nil
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return "", nil
	}

	bucket, ok := m.buckets.Get(cookie.Value)
	if !ok {
		return "", nil
	}
	// re-adding resets the idle TTL
	m.buckets.Add(cookie.Value, bucket)
	return cookie.Value, bucket
}

func (m *Manager) create() (string, *Bucket) {
	id := uuid.NewString()
	bucket := newBucket(m.cfg.MaxValueBytes)
	m.buckets.Add(id, bucket)
	m.logger.Debug("session started", "session_id", id)
	return id, bucket
}

// FromContext returns the session store attached by [Manager.Middleware].
//
// Without a session the returned store fails every call with
// [ErrUnavailable], which callers of [params.ParamStore] absorb.
func FromContext(ctx context.Context) params.Store {
	if b, ok := ctx.Value(bucketKey{}).(*Bucket); ok && b != nil {
		return b
	}
	return unavailable{}
}
