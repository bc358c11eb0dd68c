package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/doease/doease/internal/backend"
	"github.com/doease/doease/internal/config"
	"github.com/doease/doease/pkg/observability"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

type Infrastructure interface {
	// Backend returns the remote-service facade, or nil when the backend
	// configuration is invalid (the configuration-error terminal state).
	Backend() backend.API
	Logger() *zap.Logger
	MetricsHandler() http.Handler
	MeterProvider() *metric.MeterProvider

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	backend        *backend.Client
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider
}

var _ Infrastructure = &infrastructure{}

func NewInfrastructure(ctx context.Context, cfg config.Config) (*infrastructure, error) {
	i := &infrastructure{}

	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	i.logger = logger

	meterProvider, metricsHandler, err := observability.InitTelemetry("doease")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.meterProvider = meterProvider
	i.metricsHandler = metricsHandler

	// An invalid backend configuration is not fatal here: the app starts in
	// the configuration-error state and serves remediation text instead.
	if cfgErr := cfg.Backend.Validate(); cfgErr == nil {
		store, err := backend.NewFileSessionStore("")
		if err != nil {
			logger.Warn("session persistence unavailable, sessions will not survive restarts", zap.Error(err))
			store = backend.NewMemorySessionStore()
		}

		client, err := backend.New(cfg.Backend, store, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize backend client: %w", err)
		}
		i.backend = client
	}

	return i, nil
}

func (i *infrastructure) Backend() backend.API {
	if i.backend == nil {
		return nil
	}
	return i.backend
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *infrastructure) MeterProvider() *metric.MeterProvider {
	return i.meterProvider
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	if i.backend != nil {
		i.backend.Close()
	}

	errs := make(chan error, 2)

	go func() { errs <- i.logger.Sync() }()
	go func() { errs <- observability.Shutdown(ctx, i.meterProvider, i.logger) }()

	return errors.Join(<-errs, <-errs)
}
