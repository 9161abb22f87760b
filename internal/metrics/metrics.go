// Package metrics counts provider attempts, fallbacks and social publishes.
package metrics

import "time"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Recorder receives one call per chain attempt, fallback transition,
// exhausted chain and social publish.
type Recorder interface {
	ObserveAttempt(provider string, status string, duration time.Duration)
	ObserveFallback(from string, to string)
	ObserveExhausted()
	ObservePublish(platform string, status string)
}

// Status maps an operation's error to StatusSuccess or StatusError.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// NoopRecorder discards every observation.
type NoopRecorder struct{}

func (NoopRecorder) ObserveAttempt(string, string, time.Duration) {}
func (NoopRecorder) ObserveFallback(string, string)               {}
func (NoopRecorder) ObserveExhausted()                            {}
func (NoopRecorder) ObservePublish(string, string)                {}
