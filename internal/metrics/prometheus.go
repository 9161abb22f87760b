package metrics

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace   = "fluxpost"
	DefaultAddr = ":2112"
	Path        = "/metrics"
)

// PrometheusRecorder exports the chain and publish counters.
type PrometheusRecorder struct {
	attempts  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	fallbacks *prometheus.CounterVec
	exhausted prometheus.Counter
	publishes *prometheus.CounterVec
}

// NewPrometheusRecorder registers its collectors on registry.
func NewPrometheusRecorder(registry *prometheus.Registry) (*PrometheusRecorder, error) {
	if registry == nil {
		return nil, errors.New("prometheus registry is nil")
	}
	r := &PrometheusRecorder{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "provider", Name: "attempts_total",
			Help: "Generation attempts by provider and outcome.",
		}, []string{"provider", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "provider", Name: "attempt_duration_seconds",
			Help: "Generation attempt latency by provider.",
			// LLM calls run from hundreds of milliseconds to tens of seconds.
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"provider"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chain", Name: "fallbacks_total",
			Help: "Moves from a failed provider to the next one.",
		}, []string{"from", "to"}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chain", Name: "exhausted_total",
			Help: "Generations where every provider failed.",
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "social", Name: "publishes_total",
			Help: "Social publishes by platform and outcome.",
		}, []string{"platform", "status"}),
	}
	for _, c := range []prometheus.Collector{r.attempts, r.latency, r.fallbacks, r.exhausted, r.publishes} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) ObserveAttempt(provider string, status string, d time.Duration) {
	r.attempts.WithLabelValues(provider, status).Inc()
	r.latency.WithLabelValues(provider).Observe(d.Seconds())
}

func (r *PrometheusRecorder) ObserveFallback(from string, to string) {
	r.fallbacks.WithLabelValues(from, to).Inc()
}

func (r *PrometheusRecorder) ObserveExhausted() { r.exhausted.Inc() }

func (r *PrometheusRecorder) ObservePublish(platform string, status string) {
	r.publishes.WithLabelValues(platform, status).Inc()
}

// RegisterRuntime adds the Go runtime and process collectors to registry.
func RegisterRuntime(registry *prometheus.Registry) error {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(c); err != nil {
			return fmt.Errorf("register runtime collector: %w", err)
		}
	}
	return nil
}

// StartPrometheusServer serves registry on Path in the background, over TLS
// when tlsCfg is non-nil. The returned server's Addr is the bound address.
func StartPrometheusServer(addr string, registry *prometheus.Registry, tlsCfg *tls.Config) (*http.Server, error) {
	if registry == nil {
		return nil, errors.New("prometheus registry is nil")
	}
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics endpoint %q: %w", addr, err)
	}
	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}

	mux := http.NewServeMux()
	mux.Handle(Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv := &http.Server{Addr: ln.Addr().String(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	return srv, nil
}

func StopServer(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
