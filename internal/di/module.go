package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/boxoffice/internal/adapter/gateway"
	"github.com/polkiloo/boxoffice/internal/adapter/notify"
	"github.com/polkiloo/boxoffice/internal/app"
	"github.com/polkiloo/boxoffice/internal/config"
	"github.com/polkiloo/boxoffice/internal/logger"
	"github.com/polkiloo/boxoffice/internal/pkg/auth"
	"github.com/polkiloo/boxoffice/internal/server/http/middleware"
	"github.com/polkiloo/boxoffice/internal/server/http/router"
	"github.com/polkiloo/boxoffice/internal/storage/cache"
	"github.com/polkiloo/boxoffice/internal/storage/postgres"
	"github.com/polkiloo/boxoffice/internal/telemetry"
	"github.com/polkiloo/boxoffice/internal/usecase"
)

// Core composes the order lifecycle and its adapters without any transport.
// Callers supply *config.Config and context.Context.
func Core(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		logger.Module,
		telemetry.Module,
		auth.Module,
		postgres.Module,
		cache.Module,
		gateway.Module,
		notify.Module,
		usecase.Module,
		fx.Provide(
			func(c *gateway.Client) usecase.Gateway { return c },
			func(p notify.Publisher) usecase.Notifier { return p },
			func(s *postgres.Storage) app.HealthChecker { return s },
			app.NewBoxOfficeFacade,
		),
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}

// Module composes the HTTP service.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		Core(),
		fx.Provide(func(s auth.Strategy) middleware.TokenParser { return s }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
