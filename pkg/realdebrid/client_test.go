package realdebrid

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresCredentials(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"nothing", nil},
		{"empty token", []Option{WithAPIToken("")}},
		{"username only", []Option{WithCredentials("alice", "")}},
		{"password only", []Option{WithCredentials("", "secret")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(context.Background(), tt.opts...)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.True(t, errors.Is(err, ErrConfiguration), "got %v", err)
		})
	}
}

func TestNew_AnonymousMakesNoRequest(t *testing.T) {
	f := newFakeAPI(t)
	c := newAnonymousClient(t, f)

	assert.Equal(t, ModeAnonymous, c.Mode())
	assert.Empty(t, c.APIToken())
	assert.Zero(t, f.Hits("/user"))

	_, err := c.AccountInfo(context.Background())
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestNew_AnonymousTakesPrecedence(t *testing.T) {
	f := newFakeAPI(t)
	c, err := New(context.Background(), WithBaseURL(f.URL), WithAPIToken(testToken), WithAnonymousAccess())
	require.NoError(t, err)

	assert.Equal(t, ModeAnonymous, c.Mode())
	assert.Zero(t, f.Hits("/user"))
}

func TestNew_InvalidToken(t *testing.T) {
	f := newFakeAPI(t)

	_, err := New(context.Background(), WithBaseURL(f.URL), WithAPIToken("wrong"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)

	var rdErr *Error
	require.True(t, errors.As(err, &rdErr))
	assert.Equal(t, http.StatusUnauthorized, rdErr.Status)
	assert.Equal(t, "bad_token", rdErr.RemoteError)
	assert.Equal(t, 8, rdErr.RemoteCode)
	assert.False(t, rdErr.Retryable())
}

func TestAccountInfo_Fields(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)

	info, err := c.AccountInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ModeToken, c.Mode())
	assert.Equal(t, int64(42), info.ID)
	assert.Equal(t, "alice", info.Username)
	assert.Equal(t, "alice@example.com", info.Email)
	assert.Equal(t, int64(1200), info.FidelityPoints)
	assert.Equal(t, "fr", info.LanguageCode)
	assert.Equal(t, "French", info.LanguageName())
	assert.Equal(t, "https://fcdn.real-debrid.com/images/avatar.png", info.AvatarURL)
	assert.True(t, info.IsPremium())
	assert.Equal(t, "Premium", info.AccountType())
	assert.Equal(t, int64(86400), info.PremiumSeconds)

	want := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.True(t, want.Equal(info.PremiumPlanExpiration))
	assert.Equal(t, want.Unix(), info.PremiumPlanExpirationTimestamp())
}

func TestAccountInfo_FreeAccount(t *testing.T) {
	f := newFakeAPI(t)
	f.SetUser(freeUser)
	c := newTestClient(t, f)

	info, err := c.AccountInfo(context.Background())
	require.NoError(t, err)

	assert.False(t, info.IsPremium())
	assert.Equal(t, "Free", info.AccountType())
	assert.Zero(t, info.PremiumPlanExpirationTimestamp())
	assert.Equal(t, "English", info.LanguageName())
}

func TestAccountInfo_CachedAndIdempotent(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)
	ctx := context.Background()

	first, err := c.AccountInfo(ctx)
	require.NoError(t, err)
	second, err := c.AccountInfo(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), f.Hits("/user"), "New fetches once, later reads use the snapshot")

	// Callers cannot corrupt the snapshot.
	first.Username = "mallory"
	third, err := c.AccountInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", third.Username)
}

func TestFetchAccountInfo_Refreshes(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)
	ctx := context.Background()

	f.SetUser(freeUser)
	info, err := c.FetchAccountInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob", info.Username)
	assert.Equal(t, int64(2), f.Hits("/user"))

	cached, err := c.AccountInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob", cached.Username)
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "French", languageName("fr"))
	assert.Equal(t, "German", languageName("de"))
	assert.Equal(t, "Unknown", languageName(""))
	assert.Equal(t, "Unknown", languageName("not a locale!"))
}

func TestClose(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)
	c.Close()

	_, err := c.FetchAccountInfo(context.Background())
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Equal(t, int64(1), f.Hits("/user"))
}

func TestTimeout(t *testing.T) {
	f := newFakeAPI(t)
	f.mux.HandleFunc("/time", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c := newAnonymousClient(t, f, WithTimeout(100*time.Millisecond))

	_, err := c.ServerTime(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, err.(*Error).Retryable())
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(context.Background(), WithBaseURL(url), WithAnonymousAccess())
	require.NoError(t, err)

	_, err = c.ServerISOTime(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)

	var rdErr *Error
	require.True(t, errors.As(err, &rdErr))
	assert.NotNil(t, rdErr.Err, "transport error is preserved")
}
