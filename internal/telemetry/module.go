package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
)

// Module provides the meter provider and lifecycle metrics.
var Module = fx.Options(
	fx.Provide(
		newMeterProvider,
		func(p *sdkmetric.MeterProvider) metric.MeterProvider { return p },
		NewMetrics,
	),
)

func newMeterProvider(lc fx.Lifecycle) *sdkmetric.MeterProvider {
	provider := sdkmetric.NewMeterProvider()
	otel.SetMeterProvider(provider)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})
	return provider
}
