// Package app wires configuration into the generation, publishing and
// outreach services and exposes them over HTTP.
package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/your-org/fluxpost/internal/audit"
	"github.com/your-org/fluxpost/internal/config"
	"github.com/your-org/fluxpost/internal/content"
	"github.com/your-org/fluxpost/internal/coordinator"
	"github.com/your-org/fluxpost/internal/fallback"
	"github.com/your-org/fluxpost/internal/metrics"
	"github.com/your-org/fluxpost/internal/outreach"
	"github.com/your-org/fluxpost/internal/provider"
	"github.com/your-org/fluxpost/internal/security"
	"github.com/your-org/fluxpost/internal/session"
	"github.com/your-org/fluxpost/internal/social/facebook"
	"github.com/your-org/fluxpost/internal/social/threads"
	"github.com/your-org/fluxpost/internal/trace"
)

const serviceName = "fluxpost"

// App holds every long-lived service built from one Config.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Registry *provider.Registry
	Chain    *fallback.Chain
	Content  *content.Service
	Threads  *threads.Client
	Facebook *facebook.Loader
	Outreach *outreach.Client
	Session  *session.Store
	// Issuer is nil when no JWT secret is configured; the HTTP guard is off then.
	Issuer  *session.Issuer
	Audit   *audit.Logger
	Metrics *metrics.InMemoryRecorder

	promRegistry  *prometheus.Registry
	metricsServer *http.Server
	otel          trace.OTelRuntime
}

type buildOptions struct {
	httpClient *http.Client
	store      *session.Store
	loader     *facebook.Loader
}

type Option func(*buildOptions)

// WithHTTPClient sets the client used for every upstream call.
func WithHTTPClient(c *http.Client) Option {
	return func(o *buildOptions) { o.httpClient = c }
}

// WithSessionStore replaces the file-backed token store.
func WithSessionStore(s *session.Store) Option {
	return func(o *buildOptions) { o.store = s }
}

// WithFacebookLoader uses l instead of facebook.Default.
func WithFacebookLoader(l *facebook.Loader) Option {
	return func(o *buildOptions) { o.loader = l }
}

func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := buildOptions{httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	otelRuntime, err := trace.Setup(serviceName, cfg.Trace)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}

	memRecorder := metrics.NewInMemoryRecorder()
	promRegistry := prometheus.NewRegistry()
	promRecorder, err := metrics.NewPrometheusRecorder(promRegistry)
	if err != nil {
		return nil, fmt.Errorf("setup prometheus recorder: %w", err)
	}
	if err := metrics.RegisterRuntime(promRegistry); err != nil {
		return nil, err
	}
	recorder := metrics.NewMultiRecorder(memRecorder, promRecorder)

	registry := provider.NewDefaultRegistry(cfg, o.httpClient)
	chain := fallback.NewDefault(cfg, registry, o.httpClient,
		fallback.WithLogger(logger),
		fallback.WithMetrics(recorder),
		fallback.WithTracer(otelRuntime.Tracer),
	)

	leases, err := coordinator.FromConfig(cfg.Coordination)
	if err != nil {
		return nil, fmt.Errorf("setup publish leases: %w", err)
	}
	auditLog := audit.NewLogger(cfg.AuditLogPath)

	store := o.store
	if store == nil {
		store = session.NewStore()
		if cfg.SessionFile != "" {
			if store, err = session.OpenFileStore(cfg.SessionFile); err != nil {
				return nil, err
			}
		}
	}

	loader := o.loader
	if loader == nil {
		loader = facebook.Default
	}
	loader.Configure(cfg.Facebook, o.httpClient,
		facebook.WithAudit(auditLog),
		facebook.WithMetrics(recorder),
		facebook.WithLogger(logger),
	)

	var issuer *session.Issuer
	if cfg.Server.JWTSecret != "" {
		issuer = session.NewIssuer(cfg.Server.JWTSecret, serviceName, session.DefaultTTL)
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Chain:    chain,
		Content:  content.NewService(chain),
		Threads: threads.NewClient(cfg.Threads, o.httpClient,
			threads.WithCoordinator(leases, cfg.Coordination.TTL),
			threads.WithAudit(auditLog),
			threads.WithMetrics(recorder),
			threads.WithLogger(logger),
		),
		Facebook:     loader,
		Outreach:     outreach.NewClient(cfg.Outreach.AutomationBase, store, o.httpClient, outreach.WithAPIBase(cfg.Outreach.APIBase)),
		Session:      store,
		Issuer:       issuer,
		Audit:        auditLog,
		Metrics:      memRecorder,
		promRegistry: promRegistry,
		otel:         otelRuntime,
	}, nil
}

// StartMetrics serves Prometheus metrics when enabled, over TLS when the
// HTTP service uses TLS.
func (a *App) StartMetrics() error {
	if !a.Config.Metrics.Enabled || a.metricsServer != nil {
		return nil
	}
	var tlsCfg *tls.Config
	if a.Config.Server.TLS.Enabled {
		var err error
		if tlsCfg, err = security.ServerTLS(a.Config.Server.TLS); err != nil {
			return err
		}
	}
	srv, err := metrics.StartPrometheusServer(a.Config.Metrics.Addr, a.promRegistry, tlsCfg)
	if err != nil {
		return fmt.Errorf("start metrics endpoint: %w", err)
	}
	a.metricsServer = srv
	a.Logger.Info("metrics endpoint started", zap.String("addr", srv.Addr+metrics.Path), zap.Bool("tls", tlsCfg != nil))
	return nil
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := metrics.StopServer(ctx, a.metricsServer); err != nil {
		errs = append(errs, fmt.Errorf("stop metrics: %w", err))
	}
	if err := a.otel.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}
