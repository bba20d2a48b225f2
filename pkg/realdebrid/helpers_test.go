package realdebrid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

const testToken = "ABCDEFGHIJKLMNOP"

const premiumUser = `{
	"id": 42,
	"username": "alice",
	"email": "alice@example.com",
	"points": 1200,
	"locale": "fr",
	"avatar": "https%3A%2F%2Ffcdn.real-debrid.com%2Fimages%2Favatar.png",
	"type": "premium",
	"premium": 86400,
	"expiration": "2030-01-02T03:04:05.000Z"
}`

const freeUser = `{
	"id": 7,
	"username": "bob",
	"email": "bob@example.com",
	"points": 0,
	"locale": "en",
	"avatar": "",
	"type": "free",
	"premium": 0,
	"expiration": ""
}`

// fakeAPI is an in-process stand-in for api.real-debrid.com.
type fakeAPI struct {
	*httptest.Server
	mux *http.ServeMux

	mu     sync.Mutex
	tokens map[string]bool
	user   string
	hits   map[string]*atomic.Int64
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		mux:    http.NewServeMux(),
		tokens: map[string]bool{testToken: true},
		user:   premiumUser,
		hits:   make(map[string]*atomic.Int64),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.counter(r.URL.Path).Add(1)
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)

	f.mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, `{"error":"bad_token","error_code":8}`)
			return
		}
		f.mu.Lock()
		user := f.user
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, user)
	})
	return f
}

func (f *fakeAPI) counter(path string) *atomic.Int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.hits[path]
	if !ok {
		c = new(atomic.Int64)
		f.hits[path] = c
	}
	return c
}

func (f *fakeAPI) Hits(path string) int64 {
	return f.counter(path).Load()
}

func (f *fakeAPI) SetUser(body string) {
	f.mu.Lock()
	f.user = body
	f.mu.Unlock()
}

func (f *fakeAPI) AllowToken(token string) {
	f.mu.Lock()
	f.tokens[token] = true
	f.mu.Unlock()
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if len(auth) < len("Bearer ") {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[auth[len("Bearer "):]]
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func newTestClient(t *testing.T, f *fakeAPI, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithBaseURL(f.URL),
		WithAPIToken(testToken),
		WithFolderPacing(0),
	}
	c, err := New(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func newAnonymousClient(t *testing.T, f *fakeAPI, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithBaseURL(f.URL),
		WithAnonymousAccess(),
	}
	c, err := New(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	return c
}

// memoryCache is a TokenCache kept in a map.
type memoryCache struct {
	mu     sync.Mutex
	tokens map[string]string
	sets   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{tokens: make(map[string]string)}
}

func (m *memoryCache) Get(_ context.Context, username, password string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[CacheKey(username, password)]
	return token, ok, nil
}

func (m *memoryCache) Set(_ context.Context, username, password, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[CacheKey(username, password)] = token
	m.sets++
	return nil
}

func (m *memoryCache) Delete(_ context.Context, username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, CacheKey(username, password))
	return nil
}
