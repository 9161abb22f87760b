package cohere

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/your-org/fluxpost/pkg/adapters"
)

const (
	defaultBaseURL     = "https://api.cohere.com"
	DefaultModel       = "command-a-03-2025"
	defaultMaxTokens   = 300
	defaultTemperature = 0.7
)

// Client implements adapters.Provider for the Cohere v2 Chat API.
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
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = defaultMaxTokens
	}
	if settings.Temperature <= 0 {
		settings.Temperature = defaultTemperature
	}
	settings.BaseURL = strings.TrimRight(settings.BaseURL, "/")
	return &Client{settings: settings, httpClient: httpClient}
}

func (c *Client) Name() string { return "cohere" }

func (c *Client) Generate(ctx context.Context, req adapters.GenerateRequest) (adapters.GenerateResponse, error) {
	if strings.TrimSpace(c.settings.APIKey) == "" {
		return adapters.GenerateResponse{}, fmt.Errorf("cohere: %w", adapters.ErrMissingAPIKey)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return adapters.GenerateResponse{}, adapters.ErrEmptyPrompt
	}
	if req.Model == "" {
		req.Model = c.settings.Model
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.settings.MaxTokens
	}
	if req.Temperature <= 0 {
		req.Temperature = c.settings.Temperature
	}

	hReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.BaseURL+"/v2/chat", nil)
	if err != nil {
		return adapters.GenerateResponse{}, fmt.Errorf("build request: %w", err)
	}
	hReq.Header.Set("Authorization", "Bearer "+c.settings.APIKey)

	payload := map[string]any{
		"model": req.Model,
		"messages": []map[string]any{{
			"role":    "user",
			"content": req.Prompt,
		}},
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	}
	body, err := adapters.DoJSON(ctx, c.httpClient, hReq, c.Name(), payload)
	if err != nil {
		return adapters.GenerateResponse{}, err
	}

	var parsed struct {
		Message struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"message"`
		Usage struct {
			BilledUnits struct {
				InputTokens  int `json:"input_tokens"`
				OutputTokens int `json:"output_tokens"`
			} `json:"billed_units"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return adapters.GenerateResponse{}, &adapters.ProviderError{
			Provider: c.Name(), StatusCode: http.StatusBadGateway, Message: "parse response: " + err.Error(),
		}
	}

	var sb strings.Builder
	for _, part := range parsed.Message.Content {
		if part.Type == "" || part.Type == "text" {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return adapters.GenerateResponse{}, &adapters.ProviderError{
			Provider: c.Name(), StatusCode: http.StatusBadGateway, Message: "response has no text content",
		}
	}

	return adapters.GenerateResponse{
		Text:         text,
		Model:        req.Model,
		InputTokens:  parsed.Usage.BilledUnits.InputTokens,
		OutputTokens: parsed.Usage.BilledUnits.OutputTokens,
		Raw:          body,
	}, nil
}
