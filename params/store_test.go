package params

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingStore fails every call with err.
type failingStore struct {
	err error
}

func (f failingStore) Get(string) (string, error) { return "", f.err }
func (f failingStore) Set(string, string) error   { return f.err }

func TestParamStore_PersistRoundTrip(t *testing.T) {
	ps := New(&MapStore{}, WithLogger(testLogger()))

	set := Set{"utm_source": "fb", "fbclid": "abc", "sub_id": "42"}
	ps.Persist(set)

	got := ps.ReadPersisted()
	if !reflect.DeepEqual(got, set) {
		t.Errorf("ReadPersisted() = %v, want %v", got, set)
	}
}

func TestParamStore_PersistDropsEmptyValues(t *testing.T) {
	ms := &MapStore{}
	ps := New(ms, WithLogger(testLogger()))

	ps.Persist(Set{"a": "1", "b": ""})

	raw, _ := ms.Get(DefaultKey)
	if strings.Contains(raw, `"b"`) {
		t.Errorf("stored value %q should not contain empty key b", raw)
	}
	got := ps.ReadPersisted()
	if _, ok := got["b"]; ok {
		t.Errorf("ReadPersisted() = %v, should not contain b", got)
	}
}

func TestParamStore_PersistOverwrites(t *testing.T) {
	ps := New(&MapStore{}, WithLogger(testLogger()))

	ps.Persist(Set{"a": "1", "b": "2"})
	ps.Persist(Set{"c": "3"})

	got := ps.ReadPersisted()
	want := Set{"c": "3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadPersisted() = %v, want %v", got, want)
	}
}

func TestParamStore_ReadPersistedEmpty(t *testing.T) {
	ps := New(&MapStore{}, WithLogger(testLogger()))

	got := ps.ReadPersisted()
	if got == nil || len(got) != 0 {
		t.Errorf("ReadPersisted() = %v, want empty set", got)
	}
}

func TestParamStore_ReadPersistedCorrupt(t *testing.T) {
	values := []string{
		"not json",
		`["a","b"]`,
		`{"a": 1}`,
		`{"a": "1"`,
	}

	for _, v := range values {
		ms := &MapStore{}
		_ = ms.Set(DefaultKey, v)
		ps := New(ms, WithLogger(testLogger()))

		got := ps.ReadPersisted()
		if len(got) != 0 {
			t.Errorf("ReadPersisted() with stored %q = %v, want empty set", v, got)
		}
	}
}

func TestParamStore_ReadPersistedNull(t *testing.T) {
	ms := &MapStore{}
	_ = ms.Set(DefaultKey, "null")
	ps := New(ms, WithLogger(testLogger()))

	got := ps.ReadPersisted()
	if got == nil || len(got) != 0 {
		t.Errorf("ReadPersisted() = %v, want empty non-nil set", got)
	}
}

func TestParamStore_StorageFailureDoesNotPropagate(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ps := New(failingStore{err: errors.New("quota exceeded")}, WithLogger(logger))

	// must not panic or signal failure
	ps.Persist(Set{"a": "1"})

	got := ps.ReadPersisted()
	if len(got) != 0 {
		t.Errorf("ReadPersisted() = %v, want empty set", got)
	}

	logs := buf.String()
	if !strings.Contains(logs, "failed to store parameters") {
		t.Errorf("expected store failure to be logged, got: %s", logs)
	}
	if !strings.Contains(logs, "failed to retrieve parameters") {
		t.Errorf("expected retrieve failure to be logged, got: %s", logs)
	}
}

func TestParamStore_NotFoundIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ps := New(failingStore{err: ErrNotFound}, WithLogger(logger))

	if got := ps.ReadPersisted(); len(got) != 0 {
		t.Errorf("ReadPersisted() = %v, want empty set", got)
	}
	if buf.Len() != 0 {
		t.Errorf("missing key should not be logged, got: %s", buf.String())
	}
}

func TestParamStore_NilStore(t *testing.T) {
	ps := New(nil, WithLogger(testLogger()))

	ps.Persist(Set{"a": "1"})
	if got := ps.ReadPersisted(); len(got) != 0 {
		t.Errorf("ReadPersisted() = %v, want empty set", got)
	}
}

func TestParamStore_ReadAllPrecedence(t *testing.T) {
	ps := New(&MapStore{}, WithLogger(testLogger()))
	ps.Persist(Set{"utm_source": "old", "x": "1"})

	got := ps.ReadAll(mustParse(t, "https://example.com/?utm_source=new"))
	want := Set{"utm_source": "new", "x": "1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadAll() = %v, want %v", got, want)
	}
}

func TestParamStore_ReadAllDoesNotPersist(t *testing.T) {
	ms := &MapStore{}
	ps := New(ms, WithLogger(testLogger()))

	_ = ps.ReadAll(mustParse(t, "/?a=1"))

	if raw, _ := ms.Get(DefaultKey); raw != "" {
		t.Errorf("ReadAll() persisted %q; persisting is the caller's decision", raw)
	}
}

func TestParamStore_ReadReturnsSnapshot(t *testing.T) {
	ps := New(&MapStore{}, WithLogger(testLogger()))
	ps.Persist(Set{"a": "1"})

	first := ps.ReadPersisted()
	first["a"] = "mutated"

	if got := ps.ReadPersisted()["a"]; got != "1" {
		t.Errorf("ReadPersisted()[a] = %q, want %q", got, "1")
	}
}

func TestParamStore_WithKey(t *testing.T) {
	ms := &MapStore{}
	ps := New(ms, WithKey("attribution"), WithLogger(testLogger()))
	ps.Persist(Set{"a": "1"})

	if raw, _ := ms.Get("attribution"); raw == "" {
		t.Error("expected value under custom key")
	}
	if raw, _ := ms.Get(DefaultKey); raw != "" {
		t.Errorf("default key should be unused, got %q", raw)
	}
}
