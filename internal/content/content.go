// Package content builds the dashboard's canned prompts and runs them
// through the fallback chain.
package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/your-org/fluxpost/internal/fallback"
)

// ErrInvalid marks bad caller input such as an unknown platform or tone.
var ErrInvalid = errors.New("invalid content request")

// Generator is the part of fallback.Chain this package needs.
type Generator interface {
	Generate(ctx context.Context, req fallback.Request) (fallback.Result, error)
}

type Platform string

const (
	Facebook Platform = "facebook"
	Threads  Platform = "threads"
	Both     Platform = "both"
)

type Tone string

const (
	Professional Tone = "professional"
	Casual       Tone = "casual"
	Exciting     Tone = "exciting"
)

const (
	threadsMaxChars   = 400
	defaultMaxChars   = 1200
	tipMaxChars       = 200
	marketingMaxChars = 250
)

var (
	socialTmpl = template.Must(template.New("social").Parse(`Write a {{.Platform}} post about {{.Topic}}.
Requirements:
- Maximum {{.MaxChars}} characters
- Engaging and conversational tone
- Include 3-5 relevant hashtags
- Keep it concise and valuable

Write ONLY the post content, nothing else.`))

	tipTmpl = template.Must(template.New("tip").Parse(`Write ONE short real estate tip about {{.Category}}.
Requirements:
- Maximum {{.MaxChars}} characters
- Actionable and practical
- For homebuyers or sellers

Write ONLY the tip, nothing else.`))

	marketingTmpl = template.Must(template.New("marketing").Parse(`Write {{.Tone}} marketing copy for {{.Product}}.
Requirements:
- Maximum {{.MaxChars}} characters
- Compelling and conversion-focused
- Include a clear call-to-action

Write ONLY the marketing copy, nothing else.`))
)

type Service struct {
	gen Generator
}

func NewService(gen Generator) *Service {
	return &Service{gen: gen}
}

// MaxChars is the post length limit requested for platform.
func (p Platform) MaxChars() int {
	if p == Threads {
		return threadsMaxChars
	}
	return defaultMaxChars
}

func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case Facebook, Threads, Both:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown platform %q", ErrInvalid, s)
	}
}

func ParseTone(s string) (Tone, error) {
	switch t := Tone(strings.ToLower(strings.TrimSpace(s))); t {
	case Professional, Casual, Exciting:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown tone %q", ErrInvalid, s)
	}
}

func (s *Service) SocialPost(ctx context.Context, topic string, platform Platform) (fallback.Result, error) {
	platform, err := ParsePlatform(string(platform))
	if err != nil {
		return fallback.Result{}, err
	}
	if strings.TrimSpace(topic) == "" {
		return fallback.Result{}, fmt.Errorf("%w: topic is required", ErrInvalid)
	}
	prompt, err := render(socialTmpl, map[string]any{
		"Platform": platform,
		"Topic":    topic,
		"MaxChars": platform.MaxChars(),
	})
	if err != nil {
		return fallback.Result{}, err
	}
	return s.gen.Generate(ctx, fallback.Request{Prompt: prompt})
}

// Tip asks for one real-estate tip; category is forwarded so the primary
// provider can tag its result with it.
func (s *Service) Tip(ctx context.Context, category string) (fallback.Result, error) {
	if strings.TrimSpace(category) == "" {
		return fallback.Result{}, fmt.Errorf("%w: category is required", ErrInvalid)
	}
	prompt, err := render(tipTmpl, map[string]any{
		"Category": category,
		"MaxChars": tipMaxChars,
	})
	if err != nil {
		return fallback.Result{}, err
	}
	return s.gen.Generate(ctx, fallback.Request{Prompt: prompt, Category: category})
}

func (s *Service) MarketingCopy(ctx context.Context, product string, tone Tone) (fallback.Result, error) {
	tone, err := ParseTone(string(tone))
	if err != nil {
		return fallback.Result{}, err
	}
	if strings.TrimSpace(product) == "" {
		return fallback.Result{}, fmt.Errorf("%w: product is required", ErrInvalid)
	}
	prompt, err := render(marketingTmpl, map[string]any{
		"Tone":     tone,
		"Product":  product,
		"MaxChars": marketingMaxChars,
	})
	if err != nil {
		return fallback.Result{}, err
	}
	return s.gen.Generate(ctx, fallback.Request{Prompt: prompt})
}

func render(t *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}
