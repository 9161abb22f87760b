package adapters

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingAPIKey = errors.New("missing api key")
	ErrEmptyPrompt   = errors.New("prompt is required")
)

// ProviderError is a failed upstream call: a non-2xx status or an unusable payload.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: provider returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// StatusCode maps err to the HTTP status reported to callers.
func StatusCode(err error) int {
	var perr *ProviderError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrEmptyPrompt):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingAPIKey):
		return http.StatusInternalServerError
	case errors.As(err, &perr) && perr.StatusCode > 0:
		return perr.StatusCode
	default:
		return http.StatusInternalServerError
	}
}
