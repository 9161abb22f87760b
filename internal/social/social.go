// Package social holds what the Threads and Facebook clients share.
// Upstream Graph API failures surface as *adapters.ProviderError tagged with
// the platform name.
package social

import (
	"errors"
	"net/http"

	"github.com/your-org/fluxpost/pkg/adapters"
)

var (
	// ErrInvalid marks a missing token, text or id in the caller's input.
	ErrInvalid = errors.New("invalid social request")
	// ErrNotConfigured marks a missing server-side setting such as the
	// Threads user id or Facebook app id.
	ErrNotConfigured = errors.New("social platform not configured")
)

// StatusCode extends adapters.StatusCode with the social sentinels.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotConfigured):
		return http.StatusInternalServerError
	default:
		return adapters.StatusCode(err)
	}
}
