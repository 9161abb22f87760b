package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/your-org/fluxpost/pkg/adapters"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"

	apiKeyHeader = "x-goog-api-key"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (r generateContentResponse) text() string {
	var sb strings.Builder
	for _, cand := range r.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// Client implements adapters.Provider for the Gemini generateContent API.
type Client struct {
	settings   adapters.Settings
	httpClient *http.Client
}

func NewClient(settings adapters.Settings, httpClient *http.Client) *Client {
	if settings.BaseURL == "" {
		settings.BaseURL = defaultBaseURL
	}
	if settings.Model == "" {
		settings.Model = DefaultModel
	}
	settings.BaseURL = strings.TrimRight(settings.BaseURL, "/")
	return &Client{settings: settings, httpClient: httpClient}
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) endpoint(model string) string {
	return c.settings.BaseURL + "/v1beta/models/" + url.PathEscape(model) + ":generateContent"
}

func (c *Client) Generate(ctx context.Context, req adapters.GenerateRequest) (adapters.GenerateResponse, error) {
	if strings.TrimSpace(c.settings.APIKey) == "" {
		return adapters.GenerateResponse{}, fmt.Errorf("gemini: %w", adapters.ErrMissingAPIKey)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return adapters.GenerateResponse{}, adapters.ErrEmptyPrompt
	}
	model := req.Model
	if model == "" {
		model = c.settings.Model
	}

	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
	}
	cfg := generationConfig{MaxOutputTokens: req.MaxTokens, Temperature: req.Temperature}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = c.settings.MaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = c.settings.Temperature
	}
	if cfg != (generationConfig{}) {
		payload.GenerationConfig = &cfg
	}

	hReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(model), nil)
	if err != nil {
		return adapters.GenerateResponse{}, fmt.Errorf("build request: %w", err)
	}
	hReq.Header.Set(apiKeyHeader, c.settings.APIKey)

	body, err := adapters.DoJSON(ctx, c.httpClient, hReq, c.Name(), payload)
	if err != nil {
		return adapters.GenerateResponse{}, err
	}

	var parsed generateContentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return adapters.GenerateResponse{}, &adapters.ProviderError{
			Provider: c.Name(), StatusCode: http.StatusBadGateway, Message: "parse response: " + err.Error(),
		}
	}
	text := parsed.text()
	if text == "" {
		return adapters.GenerateResponse{}, &adapters.ProviderError{
			Provider: c.Name(), StatusCode: http.StatusBadGateway, Message: "response has no candidates",
		}
	}

	return adapters.GenerateResponse{
		Text:         text,
		Model:        model,
		InputTokens:  parsed.UsageMetadata.PromptTokenCount,
		OutputTokens: parsed.UsageMetadata.CandidatesTokenCount,
		Raw:          body,
	}, nil
}
