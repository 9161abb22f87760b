package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/fluxpost/internal/audit"
	"github.com/your-org/fluxpost/internal/fallback"
	"github.com/your-org/fluxpost/internal/version"
)

func init() {
	color.NoColor = true
}

// isolate points every setting the CLI reads at the test's own fakes.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, key := range []string{"GEMINI_API_KEY", "COHERE_API_KEY", "HUGGINGFACE_API_KEY", "FLUXPOST_CONFIG", "JWT_SECRET", "LOG_FILE"} {
		t.Setenv(key, "")
	}
	t.Setenv("FLUXPOST_SESSION_FILE", filepath.Join(dir, "session"))
	t.Setenv("AUDIT_LOG_PATH", filepath.Join(dir, "audit.jsonl"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, err := run(t, "", "version", "--json")
	require.NoError(t, err)

	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)
}

func TestGenerateThroughRemoteEndpoints(t *testing.T) {
	isolate(t)
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		if r.URL.Path == "/api/ai/gemini/generate" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"statusCode":429,"message":"quota"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"content":"Price it right.","provider":"cohere"}`))
	}))
	defer srv.Close()
	t.Setenv("AI_ENDPOINT_BASE", srv.URL)

	out, err := run(t, "", "generate", "--json", "--category", "pricing", "pricing", "advice")
	require.NoError(t, err)

	var res fallback.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, fallback.Result{Success: true, Content: "Price it right.", Provider: "cohere"}, res)
	mu.Lock()
	assert.Equal(t, []string{"/api/ai/gemini/generate", "/api/ai/cohere/generate"}, paths)
	mu.Unlock()

	out, err = run(t, "", "generate", "-v", "x")
	require.NoError(t, err)
	assert.Contains(t, out, "1. gemini")
	assert.Contains(t, out, "2. cohere")
	assert.Contains(t, out, "Price it right.")
}

func TestGenerateNeedsAProvider(t *testing.T) {
	isolate(t)
	t.Setenv("AI_ENDPOINT_BASE", "")
	_, err := run(t, "", "generate", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "huggingface")
}

func TestSocialPostRejectsUnknownPlatform(t *testing.T) {
	isolate(t)
	_, err := run(t, "", "social-post", "--platform", "myspace", "open", "house")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown platform")
}

func TestLoginOutreachLogout(t *testing.T) {
	dir := isolate(t)
	var (
		mu   sync.Mutex
		auth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		_, _ = w.Write([]byte(`{"leads":{"total":12,"active":10},"emails":{"total_sent":40},"engagement":{"open_rate":25.5}}`))
	}))
	defer srv.Close()
	t.Setenv("EMAIL_AUTOMATION_API", srv.URL)
	t.Setenv("API_BASE_URL", srv.URL)

	_, err := run(t, "", "outreach", "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	_, err = run(t, "tok-123\n", "login")
	require.NoError(t, err)
	saved, err := os.ReadFile(filepath.Join(dir, "session"))
	require.NoError(t, err)
	assert.Equal(t, "tok-123\n", string(saved))

	out, err := run(t, "", "outreach", "stats")
	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, "Bearer tok-123", auth)
	mu.Unlock()
	assert.Contains(t, out, "12 (10 active)")
	assert.Contains(t, out, "25.5%")

	_, err = run(t, "", "logout")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "session"))
}

func TestEnrichAndWeeklyStatsUseAPIBase(t *testing.T) {
	isolate(t)
	var (
		mu    sync.Mutex
		paths []string
	)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/api/enrichment/find-email":
			_, _ = w.Write([]byte(`{"email":"ana@acme.io","first_name":"Ana","last_name":"Ruiz","confidence":91,"sources":["web"]}`))
		case "/api/stats/weekly":
			_, _ = w.Write([]byte(`{"weekly_stats":[{"week":"2024-W10","sent":4}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer api.Close()
	automation := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("automation backend got %s", r.URL.Path)
		http.NotFound(w, r)
	}))
	defer automation.Close()
	t.Setenv("EMAIL_AUTOMATION_API", automation.URL)
	t.Setenv("API_BASE_URL", api.URL)

	_, err := run(t, "tok-9\n", "login")
	require.NoError(t, err)

	out, err := run(t, "", "outreach", "enrich", "find", "Ana", "Ruiz", "acme.io")
	require.NoError(t, err)
	assert.Contains(t, out, "ana@acme.io")
	assert.Contains(t, out, "Ana Ruiz")

	out, err = run(t, "", "outreach", "stats", "weekly", "--json")
	require.NoError(t, err)
	var weeks []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &weeks))
	require.Len(t, weeks, 1)
	assert.Equal(t, "2024-W10", weeks[0]["week"])

	mu.Lock()
	assert.Equal(t, []string{"/api/enrichment/find-email", "/api/stats/weekly"}, paths)
	mu.Unlock()
}

func TestAuditExport(t *testing.T) {
	dir := isolate(t)
	log := audit.NewLogger(filepath.Join(dir, "audit.jsonl"))
	require.NoError(t, log.Publish("threads", "1234", "post", "post_1", nil))

	out, err := run(t, "", "audit-export")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ts,platform,account,action,post_id,status,error", lines[0])
	assert.Contains(t, lines[1], "threads,1234,post,post_1,ok,")

	csvPath := filepath.Join(dir, "audit.csv")
	_, err = run(t, "", "audit-export", filepath.Join(dir, "audit.jsonl"), csvPath)
	require.NoError(t, err)
	assert.FileExists(t, csvPath)
}

func TestIssueToken(t *testing.T) {
	isolate(t)
	_, err := run(t, "", "issue-token", "agent")
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	out, err := run(t, "", "issue-token", "--role", "viewer", "agent")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)

	_, err = run(t, "", "issue-token", "--role", "root", "agent")
	assert.Error(t, err)
}
