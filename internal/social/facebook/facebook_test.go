package facebook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/fluxpost/internal/config"
	"github.com/your-org/fluxpost/internal/social"
	"github.com/your-org/fluxpost/pkg/adapters"
)

func TestPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/accounts" || r.URL.Query().Get("access_token") != "user-tok" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token."}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"p1","name":"Acme Realty","access_token":"page-tok","category":"Real Estate"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	pages, err := c.Pages(context.Background(), "user-tok")
	require.NoError(t, err)
	assert.Equal(t, []Page{{ID: "p1", Name: "Acme Realty", AccessToken: "page-tok", Category: "Real Estate"}}, pages)

	_, err = c.Pages(context.Background(), "bad")
	var perr *adapters.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Invalid OAuth access token.", perr.Message)

	_, err = c.Pages(context.Background(), "")
	assert.ErrorIs(t, err, social.ErrInvalid)
}

func TestPagesWithoutData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	pages, err := NewClient(srv.URL, srv.Client()).Pages(context.Background(), "tok")
	require.NoError(t, err)
	assert.NotNil(t, pages)
	assert.Empty(t, pages)
}

func TestPostFeedOrPhoto(t *testing.T) {
	var mu sync.Mutex
	got := map[string]map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		got[r.URL.Path] = body
		mu.Unlock()
		if r.URL.Path == "/p1/photos" {
			_, _ = w.Write([]byte(`{"id":"photo_1","post_id":"p1_story"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"p1_feed"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	ctx := context.Background()

	id, err := c.Post(ctx, "p1", "page-tok", "Open house Sunday", "")
	require.NoError(t, err)
	assert.Equal(t, "p1_feed", id)
	assert.Equal(t, map[string]string{"message": "Open house Sunday", "access_token": "page-tok"}, got["/p1/feed"])

	id, err = c.Post(ctx, "p1", "page-tok", "Look", "https://img/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "p1_story", id)
	assert.Equal(t, "https://img/x.jpg", got["/p1/photos"]["url"])

	_, err = c.Post(ctx, "p1", "page-tok", "", "")
	assert.ErrorIs(t, err, social.ErrInvalid)
}

func TestLoaderRequiresAppID(t *testing.T) {
	_, err := NewLoader(config.FacebookConfig{}, nil).Load(context.Background())
	require.ErrorIs(t, err, social.ErrNotConfigured)
}

func TestLoaderMemoizesAndRetriesAfterFailure(t *testing.T) {
	var calls, fail atomic.Int32
	fail.Store(1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if fail.Load() == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "app1|secret", r.URL.Query().Get("access_token"))
		_, _ = w.Write([]byte(`{"id":"app1"}`))
	}))
	defer srv.Close()

	l := NewLoader(config.FacebookConfig{AppID: "app1", AppSecret: "secret", GraphURL: srv.URL}, srv.Client())
	ctx := context.Background()

	_, err := l.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, adapters.StatusCode(err))

	fail.Store(0)
	first, err := l.Load(ctx)
	require.NoError(t, err)
	second, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 2, calls.Load())

	l.Configure(config.FacebookConfig{AppID: "app1", GraphURL: srv.URL}, srv.Client())
	third, err := l.Load(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.EqualValues(t, 2, calls.Load())
}
