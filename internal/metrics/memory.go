package metrics

import (
	"sync"
	"time"
)

// ProviderStats aggregates attempts for one provider.
type ProviderStats struct {
	Successes     int64
	Errors        int64
	FallbacksFrom int64
	TotalLatency  time.Duration
}

// Snapshot is a point-in-time copy of the in-memory counters.
type Snapshot struct {
	TotalAttempts int64
	ErrorAttempts int64
	Fallbacks     int64
	Exhausted     int64
	ByProvider    map[string]ProviderStats
	// Publishes counts social publishes by platform and status.
	Publishes map[string]map[string]int64
}

// InMemoryRecorder keeps counters in process, for the CLI summary and tests.
type InMemoryRecorder struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewInMemoryRecorder() *InMemoryRecorder {
	return &InMemoryRecorder{snap: Snapshot{
		ByProvider: make(map[string]ProviderStats),
		Publishes:  make(map[string]map[string]int64),
	}}
}

func (r *InMemoryRecorder) ObserveAttempt(provider string, status string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.snap.ByProvider[provider]
	r.snap.TotalAttempts++
	if status == StatusSuccess {
		s.Successes++
	} else {
		s.Errors++
		r.snap.ErrorAttempts++
	}
	s.TotalLatency += duration
	r.snap.ByProvider[provider] = s
}

func (r *InMemoryRecorder) ObserveFallback(from string, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.snap.ByProvider[from]
	s.FallbacksFrom++
	r.snap.ByProvider[from] = s
	r.snap.Fallbacks++
}

func (r *InMemoryRecorder) ObserveExhausted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Exhausted++
}

func (r *InMemoryRecorder) ObservePublish(platform string, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byStatus := r.snap.Publishes[platform]
	if byStatus == nil {
		byStatus = make(map[string]int64)
		r.snap.Publishes[platform] = byStatus
	}
	byStatus[status]++
}

func (r *InMemoryRecorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.snap
	out.ByProvider = make(map[string]ProviderStats, len(r.snap.ByProvider))
	for k, v := range r.snap.ByProvider {
		out.ByProvider[k] = v
	}
	out.Publishes = make(map[string]map[string]int64, len(r.snap.Publishes))
	for platform, byStatus := range r.snap.Publishes {
		cp := make(map[string]int64, len(byStatus))
		for status, n := range byStatus {
			cp[status] = n
		}
		out.Publishes[platform] = cp
	}
	return out
}
