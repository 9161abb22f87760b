package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/your-org/fluxpost/pkg/adapters"
)

// AdapterStrategy calls a provider client in process and normalizes its output.
type AdapterStrategy struct {
	provider     adapters.Provider
	model        string
	echoCategory bool
	reportModel  bool
}

// AdapterOption tunes how an AdapterStrategy shapes its Result.
type AdapterOption func(*AdapterStrategy)

// EchoCategory copies the request category into the Result.
func EchoCategory() AdapterOption {
	return func(s *AdapterStrategy) { s.echoCategory = true }
}

// ReportModel sets Result.Model to the model that answered.
func ReportModel() AdapterOption {
	return func(s *AdapterStrategy) { s.reportModel = true }
}

// UseModel overrides the provider's configured model for this strategy.
func UseModel(model string) AdapterOption {
	return func(s *AdapterStrategy) { s.model = model }
}

func NewAdapterStrategy(p adapters.Provider, opts ...AdapterOption) *AdapterStrategy {
	s := &AdapterStrategy{provider: p}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AdapterStrategy) Name() string { return s.provider.Name() }

func (s *AdapterStrategy) Generate(ctx context.Context, req Request) (Result, error) {
	resp, err := s.provider.Generate(ctx, adapters.GenerateRequest{Prompt: req.Prompt, Model: s.model})
	if err != nil {
		return Result{}, err
	}
	res := Result{Success: true, Content: resp.Text, Provider: s.provider.Name()}
	if s.echoCategory {
		res.Category = req.Category
	}
	if s.reportModel {
		res.Model = resp.Model
	}
	return res, nil
}

// TokenSource supplies the bearer token for remote endpoints; "" sends none.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that never changes.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// EndpointStrategy calls a remote /api/ai/{provider}/generate endpoint.
type EndpointStrategy struct {
	name            string
	url             string
	model           string
	includeCategory bool
	httpClient      *http.Client
	tokens          TokenSource
}

type EndpointOption func(*EndpointStrategy)

// WithBearer authenticates every call with the token from ts.
func WithBearer(ts TokenSource) EndpointOption {
	return func(s *EndpointStrategy) { s.tokens = ts }
}

type endpointRequest struct {
	Prompt   string `json:"prompt"`
	Category string `json:"category,omitempty"`
	Model    string `json:"model,omitempty"`
}

// NewEndpointStrategy targets baseURL + "/api/ai/" + name + "/generate".
// model is sent only when non-empty; category only when includeCategory.
func NewEndpointStrategy(name string, baseURL string, model string, includeCategory bool, httpClient *http.Client, opts ...EndpointOption) *EndpointStrategy {
	s := &EndpointStrategy{
		name:            name,
		url:             strings.TrimRight(baseURL, "/") + "/api/ai/" + name + "/generate",
		model:           model,
		includeCategory: includeCategory,
		httpClient:      httpClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EndpointStrategy) token() string {
	if s.tokens == nil {
		return ""
	}
	return s.tokens.Token()
}

func (s *EndpointStrategy) Name() string { return s.name }

func (s *EndpointStrategy) Generate(ctx context.Context, req Request) (Result, error) {
	body := endpointRequest{Prompt: req.Prompt, Model: s.model}
	if s.includeCategory {
		body.Category = req.Category
	}

	hReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	tok := s.token()
	if tok != "" {
		hReq.Header.Set("Authorization", "Bearer "+tok)
	}
	raw, err := adapters.DoJSON(ctx, s.httpClient, hReq, s.name, body)
	if err != nil {
		var perr *adapters.ProviderError
		if tok == "" && errors.As(err, &perr) && perr.StatusCode == http.StatusUnauthorized {
			perr.Message += " (remote endpoint requires a bearer token)"
		}
		return Result{}, err
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, &adapters.ProviderError{
			Provider: s.name, StatusCode: http.StatusBadGateway, Message: "parse response: " + err.Error(),
		}
	}
	if !res.Success {
		return Result{}, &adapters.ProviderError{
			Provider: s.name, StatusCode: http.StatusBadGateway, Message: "endpoint reported success=false",
		}
	}
	if res.Provider == "" {
		res.Provider = s.name
	}
	return res, nil
}
