package session

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// metrics instruments the bootstrap through the global meter provider. A
// failed instrument registration degrades to no-ops.
type metrics struct {
	resolutions metric.Int64Counter
	guardExpiry metric.Int64Counter
	resolveTime metric.Float64Histogram
}

func newMetrics(logger *zap.Logger) *metrics {
	meter := otel.Meter("doease/session")
	m := &metrics{}

	var err error
	m.resolutions, err = meter.Int64Counter("auth_bootstrap_resolutions_total",
		metric.WithDescription("Completed bootstrap resolutions by source"))
	if err != nil {
		logger.Warn("failed to register bootstrap resolution counter", zap.Error(err))
	}

	m.guardExpiry, err = meter.Int64Counter("auth_bootstrap_guard_expirations_total",
		metric.WithDescription("Bootstrap guard timer expirations"))
	if err != nil {
		logger.Warn("failed to register bootstrap guard counter", zap.Error(err))
	}

	m.resolveTime, err = meter.Float64Histogram("auth_bootstrap_resolve_seconds",
		metric.WithDescription("Time from Start to the initial resolution"))
	if err != nil {
		logger.Warn("failed to register bootstrap duration histogram", zap.Error(err))
	}

	return m
}

func (m *metrics) resolved(ctx context.Context, source string, took time.Duration) {
	if m == nil {
		return
	}
	if m.resolutions != nil {
		m.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	}
	if m.resolveTime != nil {
		m.resolveTime.Record(ctx, took.Seconds())
	}
}

func (m *metrics) guardExpired(ctx context.Context) {
	if m == nil {
		return
	}
	if m.guardExpiry != nil {
		m.guardExpiry.Add(ctx, 1)
	}
}
