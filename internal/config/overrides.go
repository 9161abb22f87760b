package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

var knownProviders = map[string]struct{}{
	"gemini":      {},
	"cohere":      {},
	"huggingface": {},
}

// Overrides is the optional YAML file tuning each provider. It cannot reorder
// the chain; the order is fixed in code.
type Overrides struct {
	Providers map[string]ProviderOverride `yaml:"providers"`
}

// ProviderOverride tunes one provider. Zero values keep the defaults.
type ProviderOverride struct {
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// LoadOverrides parses and validates a YAML overrides file.
func LoadOverrides(path string) (Overrides, error) {
	f, err := os.Open(path)
	if err != nil {
		return Overrides{}, fmt.Errorf("overrides: read %q: %w", path, err)
	}
	defer f.Close()

	var ov Overrides
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&ov); err != nil && !errors.Is(err, io.EOF) {
		return Overrides{}, fmt.Errorf("overrides: unmarshal %q: %w", path, err)
	}
	if err := ov.Validate(); err != nil {
		return Overrides{}, err
	}
	return ov, nil
}

// Validate rejects unknown providers and out-of-range values.
func (o Overrides) Validate() error {
	for name, p := range o.Providers {
		if _, ok := knownProviders[name]; !ok {
			return fmt.Errorf("overrides: unknown provider %q", name)
		}
		if p.MaxTokens < 0 {
			return fmt.Errorf("overrides: provider %q has negative max_tokens", name)
		}
		if p.Temperature < 0 || p.Temperature > 2 {
			return fmt.Errorf("overrides: provider %q temperature %v out of range [0,2]", name, p.Temperature)
		}
	}
	return nil
}

// Apply merges the overrides into cfg. Credentials always come from the environment.
func (o Overrides) Apply(cfg *Config) {
	for name, p := range o.Providers {
		target := &cfg.Gemini
		switch name {
		case "cohere":
			target = &cfg.Cohere
		case "huggingface":
			target = &cfg.HuggingFace
		}
		if p.Model != "" {
			target.Model = p.Model
		}
		if p.BaseURL != "" {
			target.BaseURL = p.BaseURL
		}
		if p.MaxTokens > 0 {
			target.MaxTokens = p.MaxTokens
		}
		if p.Temperature > 0 {
			target.Temperature = p.Temperature
		}
	}
}
