package fallback

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/fluxpost/internal/metrics"
	"github.com/your-org/fluxpost/internal/trace"
	"github.com/your-org/fluxpost/pkg/adapters"
)

var ErrNoProviders = errors.New("fallback chain has no providers")

// Chain tries each strategy in order and returns the first success.
// It holds no mutable state; concurrent calls are independent.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
	metrics    metrics.Recorder
	tracer     oteltrace.Tracer
	aggregate  bool
}

type Option func(*Chain)

func WithLogger(l *zap.Logger) Option {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Chain) {
		if r != nil {
			c.metrics = r
		}
	}
}

func WithTracer(t oteltrace.Tracer) Option {
	return func(c *Chain) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithAggregateErrors makes an exhausted chain return *AllFailedError
// listing every attempt, instead of only the last provider's error.
func WithAggregateErrors() Option {
	return func(c *Chain) { c.aggregate = true }
}

func New(strategies []Strategy, opts ...Option) *Chain {
	c := &Chain{
		strategies: append([]Strategy(nil), strategies...),
		logger:     zap.NewNop(),
		metrics:    metrics.NoopRecorder{},
		tracer:     otel.Tracer("fluxpost/fallback"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("fallback")
	return c
}

// Providers returns the provider names in attempt order.
func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		names = append(names, s.Name())
	}
	return names
}

func (c *Chain) Generate(ctx context.Context, req Request) (Result, error) {
	rep, err := c.GenerateReport(ctx, req)
	if err != nil {
		return Result{}, err
	}
	return rep.Result, nil
}

// GenerateReport runs the chain and also returns the attempt list.
func (c *Chain) GenerateReport(ctx context.Context, req Request) (Report, error) {
	rep := Report{RequestID: uuid.NewString()}
	if strings.TrimSpace(req.Prompt) == "" {
		return rep, adapters.ErrEmptyPrompt
	}
	if len(c.strategies) == 0 {
		return rep, ErrNoProviders
	}

	ctx, span := c.tracer.Start(ctx, "fallback.generate", oteltrace.WithAttributes(
		attribute.String("request_id", rep.RequestID),
	))

	var lastErr error
	for i, s := range c.strategies {
		attemptReq := req
		if i > 0 {
			attemptReq.Category = ""
		}

		res, attempt, err := c.attempt(ctx, rep.RequestID, i+1, s, attemptReq)
		rep.Attempts = append(rep.Attempts, attempt)
		if err == nil {
			rep.Result = res
			span.SetAttributes(attribute.String("provider", res.Provider), attribute.Int("attempts", len(rep.Attempts)))
			trace.EndSpan(span, nil)
			return rep, nil
		}

		lastErr = err
		if i+1 < len(c.strategies) {
			c.metrics.ObserveFallback(s.Name(), c.strategies[i+1].Name())
		}
	}

	c.metrics.ObserveExhausted()
	trace.EndSpan(span, lastErr)
	if c.aggregate {
		return rep, &AllFailedError{Attempts: rep.Attempts, Last: lastErr}
	}
	return rep, lastErr
}

func (c *Chain) attempt(ctx context.Context, requestID string, n int, s Strategy, req Request) (Result, Attempt, error) {
	ctx, span := c.tracer.Start(ctx, "fallback.attempt", oteltrace.WithAttributes(
		attribute.String("provider", s.Name()),
		attribute.Int("attempt", n),
	))

	started := time.Now()
	res, err := s.Generate(ctx, req)
	duration := time.Since(started)
	attempt := Attempt{Provider: s.Name(), Duration: duration}
	trace.EndSpan(span, err)

	if err != nil {
		attempt.StatusCode = adapters.StatusCode(err)
		attempt.Error = err.Error()
		c.metrics.ObserveAttempt(s.Name(), metrics.StatusError, duration)
		c.logger.Warn("provider attempt failed",
			zap.String("request_id", requestID),
			zap.String("provider", s.Name()),
			zap.Int("attempt", n),
			zap.Int("status_code", attempt.StatusCode),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return Result{}, attempt, err
	}

	c.metrics.ObserveAttempt(s.Name(), metrics.StatusSuccess, duration)
	c.logger.Info("provider attempt succeeded",
		zap.String("request_id", requestID),
		zap.String("provider", s.Name()),
		zap.Int("attempt", n),
		zap.Duration("duration", duration),
	)
	return res, attempt, nil
}
