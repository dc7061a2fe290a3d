package gateway

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/boxoffice/internal/config"
)

// Module exposes the gateway client to the fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (*Client, error) {
	return NewClient(Settings{
		Endpoint:   p.Config.GatewayEndpoint,
		MerchantID: p.Config.GatewayMerchantID,
		Secret:     p.Config.GatewaySecret,
		ReturnURL:  p.Config.GatewayReturnURL,
		NotifyURL:  p.Config.GatewayNotifyURL,
	}, p.Logger)
}
