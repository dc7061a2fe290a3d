package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/boxoffice/internal/config"
	"github.com/polkiloo/boxoffice/internal/domain/repository"
	"github.com/polkiloo/boxoffice/internal/telemetry"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newPricingCalculator,
	newOrderLifecycle,
)

func newPricingCalculator(catalog repository.CatalogReader, cfg *config.Config) *PricingCalculator {
	return NewPricingCalculator(catalog, cfg.PriceTolerance)
}

type lifecycleParams struct {
	fx.In

	Transactor repository.Transactor
	Pricing    *PricingCalculator
	Gateway    Gateway
	Notifier   Notifier
	Metrics    *telemetry.Metrics
	Logger     *slog.Logger
	Config     *config.Config
}

func newOrderLifecycle(p lifecycleParams) *OrderLifecycle {
	return NewOrderLifecycle(p.Transactor, p.Pricing, p.Gateway, p.Notifier, p.Metrics, p.Logger, LifecycleOptions{
		ExpiryWindow:  p.Config.ExpiryWindow,
		StrictPricing: p.Config.StrictPricing,
	})
}
