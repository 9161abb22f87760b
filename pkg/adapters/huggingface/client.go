package huggingface

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/your-org/fluxpost/pkg/adapters"
)

const (
	defaultBaseURL     = "https://router.huggingface.co"
	DefaultModel       = "meta-llama/Llama-3.2-1B-Instruct"
	defaultMaxTokens   = 150
	defaultTemperature = 0.7
)

// Client implements adapters.Provider for the Hugging Face chat completion router.
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

func (c *Client) Name() string { return "huggingface" }

func (c *Client) Generate(ctx context.Context, req adapters.GenerateRequest) (adapters.GenerateResponse, error) {
	if strings.TrimSpace(c.settings.APIKey) == "" {
		return adapters.GenerateResponse{}, fmt.Errorf("huggingface: %w", adapters.ErrMissingAPIKey)
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

	hReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.BaseURL+"/v1/chat/completions", nil)
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
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}
	body, err := adapters.DoJSON(ctx, c.httpClient, hReq, c.Name(), payload)
	if err != nil {
		return adapters.GenerateResponse{}, err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return adapters.GenerateResponse{}, &adapters.ProviderError{
			Provider: c.Name(), StatusCode: http.StatusBadGateway, Message: "parse response: " + err.Error(),
		}
	}

	// An empty first choice is still a success upstream; the original service returned "".
	text := ""
	if len(parsed.Choices) > 0 {
		text = strings.TrimSpace(parsed.Choices[0].Message.Content)
	}

	return adapters.GenerateResponse{
		Text:         text,
		Model:        req.Model,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		Raw:          body,
	}, nil
}
