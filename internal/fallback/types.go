package fallback

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Request is the immutable input to the chain.
type Request struct {
	Prompt string
	// Category tags the primary provider's result; it never affects routing.
	Category string
}

// Result is the normalized output of whichever provider answered.
type Result struct {
	Success  bool   `json:"success"`
	Content  string `json:"content"`
	Provider string `json:"provider"`
	Category string `json:"category,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Strategy is one provider in the chain.
type Strategy interface {
	Name() string
	Generate(ctx context.Context, req Request) (Result, error)
}

// Attempt records one provider call.
type Attempt struct {
	Provider   string        `json:"provider"`
	StatusCode int           `json:"status_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Report is a Result plus every attempt that produced it.
type Report struct {
	RequestID string    `json:"request_id"`
	Result    Result    `json:"result"`
	Attempts  []Attempt `json:"attempts"`
}

// AllFailedError is returned instead of the last error when the chain is
// built WithAggregateErrors.
type AllFailedError struct {
	Attempts []Attempt
	Last     error
}

func (e *AllFailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s (%d): %s", a.Provider, a.StatusCode, a.Error))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

func (e *AllFailedError) Unwrap() error { return e.Last }
