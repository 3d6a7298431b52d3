package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS customization (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	document   TEXT    NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore persists customization in a SQLite database.
//
// The table holds at most one row. Subscribers are process-local: a second
// process writing the same file will not notify this one.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
	*broker
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, broker: newBroker()}, nil
}

// Close closes the database handle and all subscriber channels. Calls
// after the first return nil; other methods return [ErrClosed].
func (s *SQLiteStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.db == nil {
		return nil
	}
	s.closed = true
	s.closeAll()
	return s.db.Close()
}

// acquire holds the read lock for the duration of a database call. The
// caller must call release when acquire returns nil.
func (s *SQLiteStore) acquire() error {
	if s == nil {
		return ErrClosed
	}
	s.mu.RLock()
	if s.closed || s.db == nil {
		s.mu.RUnlock()
		return ErrClosed
	}
	return nil
}

func (s *SQLiteStore) release() {
	s.mu.RUnlock()
}

// Load returns the saved customization, if any.
func (s *SQLiteStore) Load(ctx context.Context) (Customization, bool, error) {
	if err := ctx.Err(); err != nil {
		return Customization{}, false, err
	}
	if err := s.acquire(); err != nil {
		return Customization{}, false, err
	}
	defer s.release()

	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM customization WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return Customization{}, false, nil
	}
	if err != nil {
		return Customization{}, false, fmt.Errorf("load customization: %w", err)
	}

	var c Customization
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return Customization{}, false, fmt.Errorf("decode customization: %w", err)
	}
	return c, true, nil
}

// Save replaces the saved customization and notifies all subscribers.
func (s *SQLiteStore) Save(ctx context.Context, c Customization) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	if err := c.Validate(); err != nil {
		return err
	}

	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode customization: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO customization (id, document, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		string(doc), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save customization: %w", err)
	}

	s.publish(c)
	return nil
}

// Reset deletes the saved customization and notifies subscribers with the
// defaults.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM customization WHERE id = 1`); err != nil {
		return fmt.Errorf("reset customization: %w", err)
	}

	s.publish(DefaultCustomization())
	return nil
}

// Subscribe creates a new subscription. See [Store.Subscribe].
func (s *SQLiteStore) Subscribe() <-chan Customization {
	return s.subscribe()
}

// Unsubscribe removes a subscription and closes its channel.
func (s *SQLiteStore) Unsubscribe(ch <-chan Customization) {
	s.unsubscribe(ch)
}
