package fallback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/your-org/fluxpost/internal/config"
	"github.com/your-org/fluxpost/internal/provider"
	"github.com/your-org/fluxpost/pkg/adapters"
)

// order is the fixed provider priority, most generous free tier first.
var order = []string{"gemini", "cohere", "huggingface"}

// ErrNotRegistered fills a chain slot whose provider the registry lacks.
var ErrNotRegistered = errors.New("provider not registered")

// Order returns a copy of the provider priority.
func Order() []string {
	return slices.Clone(order)
}

// DefaultEndpointModel is the huggingface model requested in remote mode.
const DefaultEndpointModel = "mistralai/Mistral-7B-Instruct-v0.2"

// NewDefault builds the production chain in Order(). With cfg.EndpointBase set
// it calls the remote generate endpoints; otherwise it calls providers directly.
func NewDefault(cfg config.Config, registry *provider.Registry, httpClient *http.Client, opts ...Option) *Chain {
	if cfg.EndpointBase != "" {
		return New(EndpointStrategies(cfg, httpClient), opts...)
	}
	if registry == nil {
		registry = provider.NewDefaultRegistry(cfg, httpClient)
	}
	return New(AdapterStrategies(registry), opts...)
}

// AdapterStrategies wraps the registry's providers in Order. A provider the
// registry lacks keeps its slot and fails with ErrNotRegistered, so the chain
// length and the final error source never change.
func AdapterStrategies(registry *provider.Registry) []Strategy {
	strategies := make([]Strategy, 0, len(order))
	for _, name := range order {
		p, ok := registry.Get(name)
		if !ok {
			strategies = append(strategies, missingStrategy(name))
			continue
		}
		strategies = append(strategies, ProviderStrategy(p))
	}
	return strategies
}

type missingStrategy string

func (m missingStrategy) Name() string { return string(m) }

func (m missingStrategy) Generate(context.Context, Request) (Result, error) {
	return Result{}, fmt.Errorf("%s: %w", string(m), ErrNotRegistered)
}

// ProviderStrategy shapes results the way each provider's endpoint does:
// gemini echoes the category, huggingface reports its model.
func ProviderStrategy(p adapters.Provider, extra ...AdapterOption) *AdapterStrategy {
	var opts []AdapterOption
	switch p.Name() {
	case "gemini":
		opts = append(opts, EchoCategory())
	case "huggingface":
		opts = append(opts, ReportModel())
	}
	return NewAdapterStrategy(p, append(opts, extra...)...)
}

// EndpointStrategies targets cfg.EndpointBase in Order.
func EndpointStrategies(cfg config.Config, httpClient *http.Client) []Strategy {
	hfModel := cfg.HuggingFace.Model
	if hfModel == "" {
		hfModel = DefaultEndpointModel
	}
	var opts []EndpointOption
	if cfg.EndpointToken != "" {
		opts = append(opts, WithBearer(StaticToken(cfg.EndpointToken)))
	}
	return []Strategy{
		NewEndpointStrategy("gemini", cfg.EndpointBase, "", true, httpClient, opts...),
		NewEndpointStrategy("cohere", cfg.EndpointBase, "", false, httpClient, opts...),
		NewEndpointStrategy("huggingface", cfg.EndpointBase, hfModel, false, httpClient, opts...),
	}
}
