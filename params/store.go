package params

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"sync"
)

// DefaultKey is the store key the parameter set is persisted under.
const DefaultKey = "urlParams"

// ErrNotFound may be returned by [Store.Get] for a missing key. ParamStore
// treats it the same as an empty value.
var ErrNotFound = errors.New("key not found")

// Store is a session-scoped key/value store.
//
// Implementations decide what "session" means; the funnel server keys one
// store per browser session cookie. Get returns "" (or [ErrNotFound]) for a
// missing key.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// ParamStore persists a [Set] in a [Store] under a single fixed key.
//
// ParamStore holds no state of its own beyond its dependencies; the only
// state is the persisted value, which changes only through [ParamStore.Persist].
type ParamStore struct {
	store  Store
	key    string
	logger *slog.Logger
}

// Option configures a [ParamStore].
type Option func(*ParamStore)

// WithKey overrides [DefaultKey]. Empty keys are ignored.
func WithKey(key string) Option {
	return func(p *ParamStore) {
		if key != "" {
			p.key = key
		}
	}
}

// WithLogger sets the logger used to report storage failures.
// Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(p *ParamStore) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New returns a ParamStore backed by store. A nil store behaves like a store
// that is unavailable: reads are empty and writes are dropped.
func New(store Store, opts ...Option) *ParamStore {
	p := &ParamStore{
		store:  store,
		key:    DefaultKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Persist replaces the stored set with the non-empty values of set.
//
// Failures are logged and otherwise ignored.
func (p *ParamStore) Persist(set Set) {
	if p.store == nil {
		p.logger.Warn("failed to store parameters", "error", "no session store")
		return
	}

	data, err := json.Marshal(set.Compact())
	if err != nil {
		p.logger.Warn("failed to store parameters", "error", err)
		return
	}
	if err := p.store.Set(p.key, string(data)); err != nil {
		p.logger.Warn("failed to store parameters", "key", p.key, "error", err)
	}
}

// ReadPersisted returns the stored set. Missing, unavailable or unparsable
// values yield an empty set.
func (p *ParamStore) ReadPersisted() Set {
	if p.store == nil {
		return Set{}
	}

	raw, err := p.store.Get(p.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.logger.Warn("failed to retrieve parameters", "key", p.key, "error", err)
		}
		return Set{}
	}
	if raw == "" {
		return Set{}
	}

	var stored map[string]string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		p.logger.Warn("failed to retrieve parameters", "key", p.key, "error", err)
		return Set{}
	}
	return Set(stored).Clone()
}

// ReadAll returns the persisted set with the parameters of u applied on top.
func (p *ParamStore) ReadAll(u *url.URL) Set {
	return p.ReadPersisted().Merge(FromAddress(u))
}

// MapStore is an in-memory [Store]. The zero value is ready to use.
type MapStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// Get returns the value stored under key, or "" if there is none.
func (m *MapStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

// Set stores value under key.
func (m *MapStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}
