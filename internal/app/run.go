package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/your-org/fluxpost/internal/config"
)

// Run builds the app from cfg, starts the metrics endpoint and serves HTTP
// until ctx is done.
func Run(ctx context.Context, cfg config.Config, logger *zap.Logger) (retErr error) {
	a, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			retErr = errors.Join(retErr, err)
		}
	}()

	a.Logger.Info("starting fluxpost",
		zap.Strings("providers", a.Chain.Providers()),
		zap.Bool("remote_endpoints", cfg.EndpointBase != ""),
		zap.Bool("auth", a.Issuer != nil),
		zap.String("coordination", cfg.Coordination.Mode),
	)
	if err := a.StartMetrics(); err != nil {
		return err
	}
	return a.Serve(ctx)
}
