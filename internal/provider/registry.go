// Package provider keeps the configured text-generation providers by name.
package provider

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/your-org/fluxpost/internal/config"
	"github.com/your-org/fluxpost/pkg/adapters"
	"github.com/your-org/fluxpost/pkg/adapters/cohere"
	"github.com/your-org/fluxpost/pkg/adapters/gemini"
	"github.com/your-org/fluxpost/pkg/adapters/huggingface"
)

var (
	ErrNilProvider       = errors.New("provider is nil")
	ErrEmptyProviderName = errors.New("provider name is empty")
	ErrDuplicateProvider = errors.New("provider already registered")
)

// Registry stores providers by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]adapters.Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]adapters.Provider)}
}

// NewDefaultRegistry registers the gemini, cohere and huggingface clients from cfg.
// A provider with no credential is still registered; its calls fail with
// adapters.ErrMissingAPIKey.
func NewDefaultRegistry(cfg config.Config, httpClient *http.Client) *Registry {
	r := NewRegistry()
	_ = r.Register(gemini.NewClient(cfg.Gemini, httpClient))
	_ = r.Register(cohere.NewClient(cfg.Cohere, httpClient))
	_ = r.Register(huggingface.NewClient(cfg.HuggingFace, httpClient))
	return r
}

func (r *Registry) Register(p adapters.Provider) error {
	if p == nil {
		return ErrNilProvider
	}
	name := p.Name()
	if name == "" {
		return ErrEmptyProviderName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, name)
	}
	r.providers[name] = p
	return nil
}

func (r *Registry) Get(name string) (adapters.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
