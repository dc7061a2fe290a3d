package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/polkiloo/boxoffice/internal/config"
	"github.com/polkiloo/boxoffice/internal/domain/repository"
)

// Module provides the catalog reader used by pricing, cached when Redis is configured.
var Module = fx.Provide(newCatalogReader)

type catalogParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
	Source    repository.CatalogReader `name:"catalogSource"`
}

var newRedisClient = func(addr string) redisClient {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func newCatalogReader(p catalogParams) repository.CatalogReader {
	if p.Config.RedisAddress == "" {
		return p.Source
	}

	client := newRedisClient(p.Config.RedisAddress)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx).Err(); err != nil {
				p.Logger.Warn("redis unavailable, catalog reads fall through", slog.String("error", err.Error()))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return NewCatalogCache(client, p.Source, p.Config.CatalogCacheTTL, p.Logger)
}
