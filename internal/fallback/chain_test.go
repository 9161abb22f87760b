package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/your-org/fluxpost/internal/config"
	"github.com/your-org/fluxpost/internal/metrics"
	"github.com/your-org/fluxpost/pkg/adapters"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
	reqs  []Request
}

func (l *callLog) record(name string, req Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
	l.reqs = append(l.reqs, req)
}

type fakeStrategy struct {
	name string
	log  *callLog
	res  Result
	err  error
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Generate(_ context.Context, req Request) (Result, error) {
	f.log.record(f.name, req)
	if f.err != nil {
		return Result{}, f.err
	}
	return f.res, nil
}

func ok(log *callLog, name string, content string) *fakeStrategy {
	return &fakeStrategy{name: name, log: log, res: Result{Success: true, Content: content, Provider: name}}
}

func failing(log *callLog, name string, err error) *fakeStrategy {
	return &fakeStrategy{name: name, log: log, err: err}
}

func TestPrimarySuccessCallsOnlyGemini(t *testing.T) {
	log := &callLog{}
	c := New([]Strategy{ok(log, "gemini", "g"), ok(log, "cohere", "c"), ok(log, "huggingface", "h")})

	res, err := c.Generate(context.Background(), Request{Prompt: "write a tip"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", res.Provider)
	assert.Equal(t, []string{"gemini"}, log.calls)
}

func TestSecondaryAfterPrimaryFailure(t *testing.T) {
	log := &callLog{}
	c := New([]Strategy{
		failing(log, "gemini", errors.New("dial tcp: connection refused")),
		ok(log, "cohere", "c"),
		ok(log, "huggingface", "h"),
	})

	res, err := c.Generate(context.Background(), Request{Prompt: "write a tip", Category: "pricing"})
	require.NoError(t, err)
	assert.Equal(t, "cohere", res.Provider)
	assert.Equal(t, []string{"gemini", "cohere"}, log.calls)

	// Same prompt on every attempt; category only for the primary.
	assert.Equal(t, "write a tip", log.reqs[1].Prompt)
	assert.Equal(t, "pricing", log.reqs[0].Category)
	assert.Empty(t, log.reqs[1].Category)
}

func TestAllFailReturnsLastError(t *testing.T) {
	log := &callLog{}
	hfErr := &adapters.ProviderError{Provider: "huggingface", StatusCode: 503, Message: "Model is loading"}
	c := New([]Strategy{
		failing(log, "gemini", &adapters.ProviderError{Provider: "gemini", StatusCode: 429, Message: "quota"}),
		failing(log, "cohere", errors.New("cohere down")),
		failing(log, "huggingface", hfErr),
	})

	_, err := c.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, hfErr.Error(), err.Error())
	assert.Same(t, hfErr, err)
	assert.Equal(t, []string{"gemini", "cohere", "huggingface"}, log.calls)
}

func TestMissingCredentialAdvancesChain(t *testing.T) {
	log := &callLog{}
	c := New([]Strategy{
		failing(log, "gemini", adapters.ErrMissingAPIKey),
		ok(log, "cohere", "c"),
	})

	res, err := c.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "cohere", res.Provider)
}

func TestEmptyPromptMakesNoCalls(t *testing.T) {
	for _, prompt := range []string{"", "   \n\t"} {
		log := &callLog{}
		c := New([]Strategy{ok(log, "gemini", "g"), ok(log, "cohere", "c")})

		_, err := c.Generate(context.Background(), Request{Prompt: prompt})
		require.ErrorIs(t, err, adapters.ErrEmptyPrompt)
		assert.Empty(t, log.calls)
	}
}

func TestNoProviders(t *testing.T) {
	_, err := New(nil).Generate(context.Background(), Request{Prompt: "x"})
	require.ErrorIs(t, err, ErrNoProviders)
}

func TestAggregateErrors(t *testing.T) {
	log := &callLog{}
	last := errors.New("hf down")
	c := New([]Strategy{
		failing(log, "gemini", &adapters.ProviderError{Provider: "gemini", StatusCode: 429, Message: "quota"}),
		failing(log, "huggingface", last),
	}, WithAggregateErrors())

	_, err := c.Generate(context.Background(), Request{Prompt: "x"})
	var all *AllFailedError
	require.ErrorAs(t, err, &all)
	require.Len(t, all.Attempts, 2)
	assert.Equal(t, 429, all.Attempts[0].StatusCode)
	assert.ErrorIs(t, err, last)
	assert.Contains(t, err.Error(), "gemini (429)")
}

func TestReportAndMetrics(t *testing.T) {
	log := &callLog{}
	rec := metrics.NewInMemoryRecorder()
	c := New([]Strategy{
		failing(log, "gemini", errors.New("boom")),
		failing(log, "cohere", errors.New("boom")),
		ok(log, "huggingface", "h"),
	}, WithMetrics(rec))

	rep, err := c.GenerateReport(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, rep.RequestID)
	require.Len(t, rep.Attempts, 3)
	assert.Equal(t, "boom", rep.Attempts[0].Error)
	assert.Empty(t, rep.Attempts[2].Error)

	snap := rec.Snapshot()
	assert.EqualValues(t, 3, snap.TotalAttempts)
	assert.EqualValues(t, 2, snap.Fallbacks)
	assert.EqualValues(t, 0, snap.Exhausted)
}

func TestOneLogLinePerAttempt(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := &callLog{}
	c := New([]Strategy{
		failing(log, "gemini", errors.New("boom")),
		failing(log, "cohere", errors.New("boom")),
		failing(log, "huggingface", errors.New("boom")),
	}, WithLogger(zap.New(core)))

	_, err := c.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	require.Equal(t, 3, logs.Len())
	for i, name := range []string{"gemini", "cohere", "huggingface"} {
		assert.Equal(t, name, logs.All()[i].ContextMap()["provider"])
	}
}

func TestEndpointScenarioPrimaryUnchanged(t *testing.T) {
	var cohereCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/ai/gemini/generate":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "real estate tip about staging", body["prompt"])
			assert.Equal(t, "staging", body["category"])
			_, _ = w.Write([]byte(`{"success":true,"content":"Declutter before showings.","provider":"gemini","category":"staging"}`))
		default:
			cohereCalls++
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewDefault(config.Config{EndpointBase: srv.URL}, nil, srv.Client())
	res, err := c.Generate(context.Background(), Request{Prompt: "real estate tip about staging", Category: "staging"})
	require.NoError(t, err)
	assert.Equal(t, Result{
		Success:  true,
		Content:  "Declutter before showings.",
		Provider: "gemini",
		Category: "staging",
	}, res)
	assert.Zero(t, cohereCalls)
}

func TestEndpointScenarioRateLimitedPrimary(t *testing.T) {
	var order []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, r.URL.Path)
		switch r.URL.Path {
		case "/api/ai/gemini/generate":
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"statusCode":429,"message":"Resource has been exhausted"}`))
		case "/api/ai/cohere/generate":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			_, hasCategory := body["category"]
			assert.False(t, hasCategory)
			_, _ = w.Write([]byte(`{"success":true,"content":"Price it right.","provider":"cohere"}`))
		default:
			t.Errorf("unexpected call %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.InfoLevel)
	c := NewDefault(config.Config{EndpointBase: srv.URL}, nil, srv.Client(), WithLogger(zap.New(core)))

	res, err := c.Generate(context.Background(), Request{Prompt: "pricing advice", Category: "pricing"})
	require.NoError(t, err)
	assert.Equal(t, Result{Success: true, Content: "Price it right.", Provider: "cohere"}, res)
	assert.Equal(t, []string{"/api/ai/gemini/generate", "/api/ai/cohere/generate"}, order)

	entries := logs.All()
	require.Len(t, entries, 2)
	first := entries[0].ContextMap()
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "gemini", first["provider"])
	assert.EqualValues(t, 429, first["status_code"])
	assert.Equal(t, "cohere", entries[1].ContextMap()["provider"])
}

func TestEndpointHuggingFaceSendsModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ai/huggingface/generate" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultEndpointModel, body["model"])
		_, _ = w.Write([]byte(`{"success":true,"content":"ok","provider":"huggingface","model":"` + body["model"] + `"}`))
	}))
	defer srv.Close()

	res, err := NewDefault(config.Config{EndpointBase: srv.URL}, nil, srv.Client()).
		Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "huggingface", res.Provider)
	assert.Equal(t, DefaultEndpointModel, res.Model)
}

func TestEndpointSuccessFalseIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	s := NewEndpointStrategy("gemini", srv.URL, "", true, srv.Client())
	_, err := s.Generate(context.Background(), Request{Prompt: "x"})
	assert.Equal(t, http.StatusBadGateway, adapters.StatusCode(err))
}
