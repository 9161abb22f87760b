package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/fluxpost/internal/config"
	"github.com/your-org/fluxpost/internal/fallback"
	"github.com/your-org/fluxpost/internal/security"
	"github.com/your-org/fluxpost/internal/session"
	"github.com/your-org/fluxpost/internal/social/facebook"
	"github.com/your-org/fluxpost/pkg/adapters"
)

// upstream fakes gemini, cohere, huggingface and the Graph APIs on one server.
type upstream struct {
	mu         sync.Mutex
	calls      []string
	geminiCode int
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.calls = append(u.calls, r.URL.Path)
	geminiCode := u.geminiCode
	u.mu.Unlock()

	switch {
	case strings.Contains(r.URL.Path, ":generateContent"):
		if geminiCode != 0 {
			w.WriteHeader(geminiCode)
			_, _ = w.Write([]byte(`{"error":{"message":"Resource has been exhausted"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Declutter before showings."}]}}]}`))
	case r.URL.Path == "/v2/chat":
		_, _ = w.Write([]byte(`{"message":{"content":[{"type":"text","text":" Price it right. "}]}}`))
	case r.URL.Path == "/v1/chat/completions":
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hf says hi"}}]}`))
	case strings.HasSuffix(r.URL.Path, "/threads"):
		_, _ = w.Write([]byte(`{"id":"c1"}`))
	case strings.HasSuffix(r.URL.Path, "/threads_publish"):
		_, _ = w.Write([]byte(`{"id":"post_1"}`))
	case r.URL.Path == "/me/accounts":
		_, _ = w.Write([]byte(`{"data":[{"id":"p1","name":"Acme","access_token":"pt"}]}`))
	case strings.HasSuffix(r.URL.Path, "/feed"):
		_, _ = w.Write([]byte(`{"id":"p1_9"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (u *upstream) failGemini(code int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.geminiCode = code
}

func (u *upstream) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

func testConfig(base string) config.Config {
	return config.Config{
		Gemini:      adapters.Settings{APIKey: "g", BaseURL: base},
		Cohere:      adapters.Settings{APIKey: "c", BaseURL: base},
		HuggingFace: adapters.Settings{APIKey: "h", BaseURL: base},
		Threads:     config.ThreadsConfig{UserID: "1234", BaseURL: base},
		Facebook:    config.FacebookConfig{AppID: "app1", GraphURL: base},
		Outreach:    config.OutreachConfig{AutomationBase: base},
		Server:      config.ServerConfig{Addr: "127.0.0.1:0"},
	}
}

func newTestApp(t *testing.T, mutate func(*config.Config)) (*App, *upstream) {
	t.Helper()
	up := &upstream{}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(cfg, zap.NewNop(),
		WithHTTPClient(srv.Client()),
		WithSessionStore(session.NewStore()),
		WithFacebookLoader(facebook.NewLoader(config.FacebookConfig{}, nil)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a, up
}

func post(t *testing.T, h http.Handler, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) fallback.Result {
	t.Helper()
	var res fallback.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestHealth(t *testing.T) {
	a, _ := newTestApp(t, nil)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestGenerateUsesPrimary(t *testing.T) {
	a, up := newTestApp(t, nil)
	rec := post(t, a.Handler(), "/api/ai/generate", map[string]string{"prompt": "real estate tip about staging", "category": "staging"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, fallback.Result{
		Success: true, Content: "Declutter before showings.", Provider: "gemini", Category: "staging",
	}, decodeResult(t, rec))
	assert.Equal(t, 1, up.callCount())

	snap := a.Metrics.Snapshot()
	assert.EqualValues(t, 1, snap.TotalAttempts)
}

func TestGenerateFallsBackOnRateLimit(t *testing.T) {
	a, up := newTestApp(t, nil)
	up.failGemini(http.StatusTooManyRequests)

	rec := post(t, a.Handler(), "/api/ai/generate", map[string]string{"prompt": "pricing advice"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fallback.Result{Success: true, Content: "Price it right.", Provider: "cohere"}, decodeResult(t, rec))
}

func TestGenerateVerboseReport(t *testing.T) {
	a, up := newTestApp(t, nil)
	up.failGemini(http.StatusServiceUnavailable)

	rec := post(t, a.Handler(), "/api/ai/generate?verbose=1", map[string]string{"prompt": "x"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep fallback.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	require.Len(t, rep.Attempts, 2)
	assert.Equal(t, 503, rep.Attempts[0].StatusCode)
	assert.Equal(t, "cohere", rep.Result.Provider)
}

func TestGenerateEmptyPrompt(t *testing.T) {
	a, up := newTestApp(t, nil)
	rec := post(t, a.Handler(), "/api/ai/generate", map[string]string{"prompt": "  "}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"statusCode":400,"message":"prompt is required"}`, rec.Body.String())
	assert.Zero(t, up.callCount())
}

func TestGenerateAllFailSurfacesLastError(t *testing.T) {
	a, _ := newTestApp(t, func(c *config.Config) {
		c.Gemini.APIKey = ""
		c.Cohere.APIKey = ""
		c.HuggingFace.APIKey = ""
	})
	rec := post(t, a.Handler(), "/api/ai/generate", map[string]string{"prompt": "x"}, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "huggingface: missing api key")
}

func TestProviderEndpoint(t *testing.T) {
	a, _ := newTestApp(t, nil)
	h := a.Handler()

	rec := post(t, h, "/api/ai/huggingface/generate", map[string]string{"prompt": "x", "model": "mistralai/Mistral-7B-Instruct-v0.2"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fallback.Result{
		Success: true, Content: "hf says hi", Provider: "huggingface", Model: "mistralai/Mistral-7B-Instruct-v0.2",
	}, decodeResult(t, rec))

	rec = post(t, h, "/api/ai/openai/generate", map[string]string{"prompt": "x"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = post(t, h, "/api/ai/cohere/generate", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProviderEndpointChecksKeyBeforePrompt(t *testing.T) {
	a, up := newTestApp(t, func(c *config.Config) { c.Cohere.APIKey = "" })
	rec := post(t, a.Handler(), "/api/ai/cohere/generate", map[string]string{}, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "cohere: missing api key")
	assert.Zero(t, up.callCount())
}

// A chain in remote mode pointed at this service's own provider endpoints
// behaves like the local chain.
func TestRemoteChainAgainstProviderEndpoints(t *testing.T) {
	local, up := newTestApp(t, nil)
	up.failGemini(http.StatusTooManyRequests)
	srv := httptest.NewServer(local.Handler())
	defer srv.Close()

	remote := fallback.NewDefault(config.Config{EndpointBase: srv.URL}, nil, srv.Client())
	res, err := remote.Generate(context.Background(), fallback.Request{Prompt: "pricing", Category: "pricing"})
	require.NoError(t, err)
	assert.Equal(t, fallback.Result{Success: true, Content: "Price it right.", Provider: "cohere"}, res)
}

func TestRemoteChainThroughGuard(t *testing.T) {
	local, _ := newTestApp(t, func(c *config.Config) { c.Server.JWTSecret = "s3cret" })
	srv := httptest.NewServer(local.Handler())
	defer srv.Close()

	_, err := fallback.NewDefault(config.Config{EndpointBase: srv.URL}, nil, srv.Client()).
		Generate(context.Background(), fallback.Request{Prompt: "pricing"})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, adapters.StatusCode(err))

	tok, err := local.Issuer.Issue("worker", security.RoleViewer)
	require.NoError(t, err)
	res, err := fallback.NewDefault(config.Config{EndpointBase: srv.URL, EndpointToken: tok}, nil, srv.Client()).
		Generate(context.Background(), fallback.Request{Prompt: "pricing", Category: "pricing"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", res.Provider)
}

func TestContentRoutes(t *testing.T) {
	a, _ := newTestApp(t, nil)
	h := a.Handler()

	rec := post(t, h, "/api/ai/tip", map[string]string{"category": "staging"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "staging", decodeResult(t, rec).Category)

	rec = post(t, h, "/api/ai/social-post", map[string]string{"topic": "open house", "platform": "threads"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = post(t, h, "/api/ai/social-post", map[string]string{"topic": "open house", "platform": "myspace"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, h, "/api/ai/marketing", map[string]string{"product": "listings", "tone": "casual"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestThreadsAndFacebookRoutes(t *testing.T) {
	a, _ := newTestApp(t, nil)
	h := a.Handler()

	rec := post(t, h, "/api/threads/post", map[string]string{"accessToken": "tok", "text": "hello"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"id":"post_1","creationId":"c1","message":"Posted successfully to Threads"}`, rec.Body.String())

	rec = post(t, h, "/api/threads/publish", map[string]string{"accessToken": "tok"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, h, "/api/facebook/pages", map[string]string{"userAccessToken": "ut"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"p1","name":"Acme","access_token":"pt"}]`, rec.Body.String())

	rec = post(t, h, "/api/facebook/post", map[string]string{"pageId": "p1", "pageAccessToken": "pt", "message": "hi"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"postId":"p1_9"`)

	pubs := a.Metrics.Snapshot().Publishes
	assert.EqualValues(t, 1, pubs["threads"]["success"])
	assert.EqualValues(t, 1, pubs["facebook"]["success"])
}

func TestFacebookUnconfigured(t *testing.T) {
	a, _ := newTestApp(t, func(c *config.Config) { c.Facebook.AppID = "" })
	rec := post(t, a.Handler(), "/api/facebook/pages", map[string]string{"userAccessToken": "ut"}, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGuardedRoutes(t *testing.T) {
	a, _ := newTestApp(t, func(c *config.Config) { c.Server.JWTSecret = "s3cret" })
	h := a.Handler()

	rec := post(t, h, "/api/ai/generate", map[string]string{"prompt": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	viewer, err := a.Issuer.Issue("u1", security.RoleViewer)
	require.NoError(t, err)
	rec = post(t, h, "/api/ai/generate", map[string]string{"prompt": "x"}, viewer)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = post(t, h, "/api/threads/post", map[string]string{"accessToken": "tok", "text": "hi"}, viewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	health := httptest.NewRecorder()
	h.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	a, _ := newTestApp(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.serve(ctx, &http.Server{Handler: a.Handler(), ReadHeaderTimeout: time.Second}, ln)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/readyz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
