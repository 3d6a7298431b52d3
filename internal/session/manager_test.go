package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/funnel/params"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureStore runs a request through the middleware and returns the store
// the handler saw plus the recorder.
func captureStore(t *testing.T, m *Manager, req *http.Request) (params.Store, *httptest.ResponseRecorder) {
	t.Helper()
	var got params.Store
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.NotNil(t, got)
	return got, rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", name)
	return nil
}

func TestMiddleware_StartsSession(t *testing.T) {
	m := NewManager(Config{}, testLogger())

	store, rec := captureStore(t, m, httptest.NewRequest(http.MethodGet, "/", nil))

	cookie := sessionCookie(t, rec, DefaultCookieName)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.Expires.IsZero(), "session cookie must not carry an expiry")
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.IsType(t, &Bucket{}, store)
	assert.Equal(t, 1, m.Len())
}

func TestMiddleware_ReusesSession(t *testing.T) {
	m := NewManager(Config{}, testLogger())

	first, rec := captureStore(t, m, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, first.Set("k", "v"))
	cookie := sessionCookie(t, rec, DefaultCookieName)

	req := httptest.NewRequest(http.MethodGet, "/pr", nil)
	req.AddCookie(cookie)
	second, rec2 := captureStore(t, m, req)

	got, err := second.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	assert.Empty(t, rec2.Result().Cookies(), "known session should not be re-issued")
	assert.Equal(t, 1, m.Len())
}

func TestMiddleware_RejectsForgedCookie(t *testing.T) {
	m := NewManager(Config{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "not-a-uuid"})
	_, rec := captureStore(t, m, req)

	cookie := sessionCookie(t, rec, DefaultCookieName)
	assert.NotEqual(t, "not-a-uuid", cookie.Value)
}

func TestMiddleware_UnknownSessionStartsFresh(t *testing.T) {
	m := NewManager(Config{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "9b2f4d1e-3c5a-4e7b-8f6d-1a2b3c4d5e6f"})
	store, rec := captureStore(t, m, req)

	cookie := sessionCookie(t, rec, DefaultCookieName)
	assert.NotEqual(t, "9b2f4d1e-3c5a-4e7b-8f6d-1a2b3c4d5e6f", cookie.Value)
	v, err := store.Get(params.DefaultKey)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestMiddleware_CustomCookieAndSecure(t *testing.T) {
	m := NewManager(Config{CookieName: "sid", Secure: true}, testLogger())

	_, rec := captureStore(t, m, httptest.NewRequest(http.MethodGet, "/", nil))

	cookie := sessionCookie(t, rec, "sid")
	assert.True(t, cookie.Secure)
}

func TestManager_CapacityEvictsOldest(t *testing.T) {
	m := NewManager(Config{Capacity: 2}, testLogger())

	var cookies []*http.Cookie
	for i := 0; i < 3; i++ {
		_, rec := captureStore(t, m, httptest.NewRequest(http.MethodGet, "/", nil))
		cookies = append(cookies, sessionCookie(t, rec, DefaultCookieName))
	}

	assert.Equal(t, 2, m.Len())
	_, ok := m.Get(cookies[0].Value)
	assert.False(t, ok, "oldest session should be evicted")
	_, ok = m.Get(cookies[2].Value)
	assert.True(t, ok)
}

func TestManager_TTLExpires(t *testing.T) {
	m := NewManager(Config{TTL: 50 * time.Millisecond}, testLogger())

	_, rec := captureStore(t, m, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := sessionCookie(t, rec, DefaultCookieName)

	assert.Eventually(t, func() bool {
		_, ok := m.Get(cookie.Value)
		return !ok
	}, 2*time.Second, 20*time.Millisecond)
}

func TestFromContext_NoSession(t *testing.T) {
	store := FromContext(context.Background())

	_, err := store.Get("k")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, store.Set("k", "v"), ErrUnavailable)
}

func TestBucket_Quota(t *testing.T) {
	b := newBucket(16)

	require.NoError(t, b.Set("k", "small"))
	err := b.Set("k", strings.Repeat("x", 17))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// failed write leaves the previous value in place
	v, _ := b.Get("k")
	assert.Equal(t, "small", v)
	assert.Equal(t, 1, b.Len())
}

func TestBucket_WithParamStore(t *testing.T) {
	b := newBucket(DefaultMaxValueBytes)
	ps := params.New(b, params.WithLogger(testLogger()))

	ps.Persist(params.Set{"utm_source": "tiktok", "ttclid": "t1"})
	assert.Equal(t, params.Set{"utm_source": "tiktok", "ttclid": "t1"}, ps.ReadPersisted())
}

func TestBucket_QuotaDegradesToEmpty(t *testing.T) {
	b := newBucket(32)
	ps := params.New(b, params.WithLogger(testLogger()))

	ps.Persist(params.Set{"utm_content": strings.Repeat("y", 64)})
	assert.Empty(t, ps.ReadPersisted())
}
