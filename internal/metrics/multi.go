package metrics

import "time"

// MultiRecorder sends every observation to each of its recorders, in order.
type MultiRecorder []Recorder

// NewMultiRecorder drops nil recorders.
func NewMultiRecorder(recorders ...Recorder) MultiRecorder {
	m := make(MultiRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

func (m MultiRecorder) ObserveAttempt(provider string, status string, d time.Duration) {
	for _, r := range m {
		r.ObserveAttempt(provider, status, d)
	}
}

func (m MultiRecorder) ObserveFallback(from string, to string) {
	for _, r := range m {
		r.ObserveFallback(from, to)
	}
}

func (m MultiRecorder) ObserveExhausted() {
	for _, r := range m {
		r.ObserveExhausted()
	}
}

func (m MultiRecorder) ObservePublish(platform string, status string) {
	for _, r := range m {
		r.ObservePublish(platform, status)
	}
}
