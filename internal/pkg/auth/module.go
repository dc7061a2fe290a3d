package auth

import (
	"go.uber.org/fx"

	"github.com/polkiloo/boxoffice/internal/config"
)

// TokenIssuer is the iss claim of every token this service accepts.
const TokenIssuer = "boxoffice"

// Module provides authentication primitives via fx.
var Module = fx.Options(
	fx.Provide(newTokenStrategy),
)

type strategyParams struct {
	fx.In

	Config *config.Config
}

func newTokenStrategy(p strategyParams) Strategy {
	return NewJWTStrategy(p.Config.JWTSecret, Options{Issuer: TokenIssuer})
}
