package cli

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/boxoffice/internal/app"
	"github.com/polkiloo/boxoffice/internal/config"
	"github.com/polkiloo/boxoffice/internal/di"
	"github.com/polkiloo/boxoffice/internal/pkg/auth"
)

// DefaultDeps builds the runtime from the environment, the same way the
// server does, minus the HTTP surface and the background sweeper.
func DefaultDeps() Deps {
	return Deps{Open: openRuntime, Tokens: envTokens}
}

func openRuntime(ctx context.Context) (*Runtime, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	var facade *app.BoxOfficeFacade
	fxApp := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return ctx }),
		fx.Supply(cfg),
		di.Core(),
		fx.Populate(&facade),
	)
	if err := fxApp.Start(ctx); err != nil {
		return nil, err
	}
	return &Runtime{Operator: facade, Config: cfg, Close: fxApp.Stop}, nil
}

func envTokens(ttl time.Duration) (TokenIssuer, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	return auth.NewJWTStrategy(cfg.JWTSecret, auth.Options{TTL: ttl, Issuer: auth.TokenIssuer}), nil
}
