package notify

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/boxoffice/internal/config"
)

// Module provides the event publisher, backed by AMQP when AMQP_URL is set.
var Module = fx.Provide(newPublisher)

func newPublisher(cfg *config.Config, logger *slog.Logger) Publisher {
	if cfg.AMQPURL == "" {
		return NewLogPublisher(logger)
	}
	return NewAMQPPublisher(cfg.AMQPURL, logger)
}
