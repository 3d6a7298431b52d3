package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jpalmerr/funnel/params"
)

// DefaultMaxValueBytes is the per-value quota of a [Bucket].
const DefaultMaxValueBytes = 8 << 10

var (
	// ErrQuotaExceeded is returned when a value is larger than the bucket quota.
	ErrQuotaExceeded = errors.New("session storage quota exceeded")

	// ErrUnavailable is returned by the store handed out when a request has
	// no session.
	ErrUnavailable = errors.New("session storage unavailable")
)

// Bucket is the key/value storage of one session.
type Bucket struct {
	mu       sync.RWMutex
	values   map[string]string
	maxValue int
}

var _ params.Store = (*Bucket)(nil)

func newBucket(maxValue int) *Bucket {
	return &Bucket{
		values:   make(map[string]string),
		maxValue: maxValue,
	}
}

// Get returns the value stored under key, or "" if there is none.
func (b *Bucket) Get(key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.values[key], nil
}

// Set stores value under key, replacing any previous value.
func (b *Bucket) Set(key, value string) error {
	if b.maxValue > 0 && len(value) > b.maxValue {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrQuotaExceeded, len(value), b.maxValue)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	return nil
}

// Len returns the number of keys in the bucket.
func (b *Bucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}

// unavailable is the store used when no session is attached to a request.
type unavailable struct{}

func (unavailable) Get(string) (string, error) { return "", ErrUnavailable }
func (unavailable) Set(string, string) error   { return ErrUnavailable }
