package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/boxoffice/internal/config"
	"github.com/polkiloo/boxoffice/internal/server/http/handlers"
	"github.com/polkiloo/boxoffice/internal/server/http/middleware"
)

// Params collects router dependencies.
type Params struct {
	fx.In

	Facade handlers.BoxOfficeFacade
	Tokens middleware.TokenParser
	Config *config.Config
	Logger *slog.Logger
}

// Setup configures gin router with handlers and middleware.
func Setup(p Params) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(p.Logger))
	engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithDecompressFn(gzip.DefaultDecompressHandle)))

	checkoutHandler := handlers.NewCheckoutHandler(p.Facade)
	paymentHandler := handlers.NewPaymentHandler(p.Facade)
	healthHandler := handlers.NewHealthHandler(p.Facade)

	engine.GET("/healthz", healthHandler.Check)

	api := engine.Group("/api")

	checkout := api.Group("/checkout")
	checkout.Use(middleware.AuthRequired(p.Tokens))
	checkout.POST("/orders", checkoutHandler.Create)
	checkout.GET("/orders/:id", checkoutHandler.Get)
	checkout.POST("/orders/:id/repay", checkoutHandler.Repay)
	checkout.POST("/orders/:id/cancel", checkoutHandler.Cancel)

	payments := api.Group("/payments")
	payments.POST("/callback", paymentHandler.Callback)
	if p.Config.SandboxPayments {
		sandbox := payments.Group("/sandbox")
		sandbox.Use(middleware.AuthRequired(p.Tokens))
		sandbox.POST("/:id/confirm", paymentHandler.ConfirmSandbox)
	}

	return engine
}
