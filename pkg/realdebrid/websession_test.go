package realdebrid

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	webUser     = "alice"
	webPassword = "hunter2"
	webCookie   = "SESSION42"
)

func apiTokenHTML(token string) string {
	return fmt.Sprintf(`<html><body>
<form><input type="text" id="api_token"></form>
<script>var x = 1;</script>
<script>
	document.querySelectorAll('#api_token').forEach(function (el) { el.value = '%s'; });
</script>
</body></html>`, token)
}

// fakeWeb stands in for the real-debrid.com login and token pages.
type fakeWeb struct {
	*httptest.Server

	mu     sync.Mutex
	tokens []string
	logins atomic.Int64
	pages  atomic.Int64
}

func newFakeWeb(t *testing.T, tokens ...string) *fakeWeb {
	t.Helper()
	w := &fakeWeb{tokens: tokens}
	mux := http.NewServeMux()
	mux.HandleFunc("/ajax/login.php", func(rw http.ResponseWriter, r *http.Request) {
		w.logins.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		assert.Equal(t, "PIN: 000000", q.Get("pin_answer"))
		assert.NotEmpty(t, q.Get("time"))
		if q.Get("user") != webUser || q.Get("pass") != webPassword {
			writeJSON(rw, http.StatusOK, `{"error":1,"message":"Invalid login"}`)
			return
		}
		writeJSON(rw, http.StatusOK, `{"error":0,"message":"OK","cookie":"auth=`+webCookie+`;"}`)
	})
	mux.HandleFunc("/apitoken", func(rw http.ResponseWriter, r *http.Request) {
		w.pages.Add(1)
		c, err := r.Cookie("auth")
		if err != nil || c.Value != webCookie {
			http.Redirect(rw, r, "/", http.StatusFound)
			return
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		if r.Method == http.MethodPost {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "1", r.PostForm.Get("refresh"))
			w.tokens = w.tokens[1:]
		}
		rw.Header().Set("Content-Type", "text/html")
		_, _ = rw.Write([]byte(apiTokenHTML(w.tokens[0])))
	})
	mux.HandleFunc("/", func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte("<html><body>home</body></html>"))
	})
	w.Server = httptest.NewServer(mux)
	t.Cleanup(w.Close)
	return w
}

func newCredentialsClient(t *testing.T, f *fakeAPI, w *fakeWeb, opts ...Option) (*Client, error) {
	t.Helper()
	base := []Option{
		WithBaseURL(f.URL),
		WithWebURL(w.URL),
		WithCredentials(webUser, webPassword),
	}
	return New(context.Background(), append(base, opts...)...)
}

func TestCredentials_Login(t *testing.T) {
	f := newFakeAPI(t)
	f.AllowToken("WEBTOKEN1234")
	w := newFakeWeb(t, "WEBTOKEN1234")
	cache := newMemoryCache()

	c, err := newCredentialsClient(t, f, w, WithTokenCache(cache))
	require.NoError(t, err)

	assert.Equal(t, ModeCredentials, c.Mode())
	assert.Equal(t, "WEBTOKEN1234", c.APIToken())
	assert.Equal(t, int64(1), w.logins.Load())
	assert.Equal(t, int64(1), f.Hits("/user"))

	token, ok, err := cache.Get(context.Background(), webUser, webPassword)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "WEBTOKEN1234", token)

	info, err := c.AccountInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Username)
}

func TestCredentials_CachedToken(t *testing.T) {
	f := newFakeAPI(t)
	w := newFakeWeb(t, "UNUSED")
	cache := newMemoryCache()
	require.NoError(t, cache.Set(context.Background(), webUser, webPassword, testToken))

	c, err := newCredentialsClient(t, f, w, WithTokenCache(cache))
	require.NoError(t, err)

	assert.Equal(t, testToken, c.APIToken())
	assert.Zero(t, w.logins.Load(), "a valid cached token skips the web login")
	assert.Equal(t, 1, cache.sets)
}

func TestCredentials_StaleCachedToken(t *testing.T) {
	f := newFakeAPI(t)
	f.AllowToken("FRESHTOKEN99")
	w := newFakeWeb(t, "FRESHTOKEN99")
	cache := newMemoryCache()
	require.NoError(t, cache.Set(context.Background(), webUser, webPassword, "REVOKED"))

	c, err := newCredentialsClient(t, f, w, WithTokenCache(cache))
	require.NoError(t, err)

	assert.Equal(t, "FRESHTOKEN99", c.APIToken())
	assert.Equal(t, int64(1), w.logins.Load())
	assert.Equal(t, int64(2), f.Hits("/user"))

	token, _, _ := cache.Get(context.Background(), webUser, webPassword)
	assert.Equal(t, "FRESHTOKEN99", token)
}

func TestCredentials_InvalidLogin(t *testing.T) {
	f := newFakeAPI(t)
	w := newFakeWeb(t, "NEVER")

	c, err := New(context.Background(),
		WithBaseURL(f.URL),
		WithWebURL(w.URL),
		WithCredentials(webUser, "wrong"),
	)
	assert.Nil(t, c)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Equal(t, 1, err.(*Error).RemoteCode)
	assert.Zero(t, w.pages.Load())
	assert.Zero(t, f.Hits("/user"))
}

func TestRegenerateAPIToken(t *testing.T) {
	f := newFakeAPI(t)
	f.AllowToken("FIRSTTOKEN00")
	f.AllowToken("SECONDTOKEN0")
	w := newFakeWeb(t, "FIRSTTOKEN00", "SECONDTOKEN0")
	cache := newMemoryCache()

	c, err := newCredentialsClient(t, f, w, WithTokenCache(cache))
	require.NoError(t, err)
	require.Equal(t, "FIRSTTOKEN00", c.APIToken())

	token, err := c.RegenerateAPIToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SECONDTOKEN0", token)
	assert.Equal(t, "SECONDTOKEN0", c.APIToken())
	assert.Equal(t, int64(1), w.logins.Load(), "the session cookie is reused")

	cached, _, _ := cache.Get(context.Background(), webUser, webPassword)
	assert.Equal(t, "SECONDTOKEN0", cached)

	_, err = c.FetchAccountInfo(context.Background())
	require.NoError(t, err)
}

func TestRegenerateAPIToken_WrongMode(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)

	_, err := c.RegenerateAPIToken(context.Background())
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestParseAPITokenPage(t *testing.T) {
	token, err := parseAPITokenPage(strings.NewReader(apiTokenHTML("XYZ987")))
	require.NoError(t, err)
	assert.Equal(t, "XYZ987", token)

	_, err = parseAPITokenPage(strings.NewReader("<html><script>var value = 'nope';</script></html>"))
	assert.ErrorIs(t, err, ErrRemoteService)
}
