package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/fluxpost/pkg/adapters"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/chat", r.URL.Path)
		assert.Equal(t, "Bearer co-key", r.Header.Get("Authorization"))

		var body struct {
			Model     string  `json:"model"`
			MaxTokens int     `json:"max_tokens"`
			Temp      float64 `json:"temperature"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultModel, body.Model)
		assert.Equal(t, 300, body.MaxTokens)
		assert.InDelta(t, 0.7, body.Temp, 0.0001)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "price tips", body.Messages[0].Content)

		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":[{"type":"text","text":"  Price it right.  "}]},"usage":{"billed_units":{"input_tokens":3,"output_tokens":4}}}`))
	}))
	defer srv.Close()

	c := NewClient(adapters.Settings{APIKey: "co-key", BaseURL: srv.URL}, srv.Client())
	resp, err := c.Generate(context.Background(), adapters.GenerateRequest{Prompt: "price tips"})
	require.NoError(t, err)
	assert.Equal(t, "Price it right.", resp.Text)
	assert.Equal(t, 3, resp.InputTokens)
	assert.Equal(t, 4, resp.OutputTokens)
}

func TestGenerateEmptyPrompt(t *testing.T) {
	c := NewClient(adapters.Settings{APIKey: "co-key"}, nil)
	_, err := c.Generate(context.Background(), adapters.GenerateRequest{Prompt: "   "})
	require.ErrorIs(t, err, adapters.ErrEmptyPrompt)
	assert.Equal(t, http.StatusBadRequest, adapters.StatusCode(err))
}
