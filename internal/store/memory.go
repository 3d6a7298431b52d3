package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of [Store].
//
// Saved content lives for the lifetime of the process. Subscribers receive
// updates via buffered channels; see [Store.Subscribe].
type MemoryStore struct {
	mu    sync.RWMutex
	saved *Customization
	*broker
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory [Store] implementation.
//
// The store is immediately ready for use. No cleanup is required when done.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{broker: newBroker()}
}

// Load returns the saved customization, if any.
func (m *MemoryStore) Load(ctx context.Context) (Customization, bool, error) {
	if err := ctx.Err(); err != nil {
		return Customization{}, false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.saved == nil {
		return Customization{}, false, nil
	}
	return *m.saved, true, nil
}

// Save stores c and notifies all subscribers.
func (m *MemoryStore) Save(ctx context.Context, c Customization) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.saved = &c
	m.mu.Unlock()

	m.publish(c)
	return nil
}

// Reset forgets the saved customization and notifies subscribers with the
// defaults.
func (m *MemoryStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.saved = nil
	m.mu.Unlock()

	m.publish(DefaultCustomization())
	return nil
}

// Subscribe creates a new subscription. See [Store.Subscribe].
func (m *MemoryStore) Subscribe() <-chan Customization {
	return m.subscribe()
}

// Unsubscribe removes a subscription and closes its channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Customization) {
	m.unsubscribe(ch)
}
