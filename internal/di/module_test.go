package di

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/boxoffice/internal/app"
	"github.com/polkiloo/boxoffice/internal/config"
	"github.com/polkiloo/boxoffice/internal/domain/model"
	"github.com/polkiloo/boxoffice/internal/domain/repository"
	"github.com/polkiloo/boxoffice/internal/storage/postgres"
	"github.com/polkiloo/boxoffice/internal/test"
	"github.com/polkiloo/boxoffice/internal/usecase"
	"github.com/polkiloo/boxoffice/internal/worker"
)

func testConfig() *config.Config {
	return &config.Config{
		RunAddress:      ":0",
		DatabaseURI:     "postgres://stub",
		JWTSecret:       "secret",
		GatewayEndpoint: "https://pay.example.com/checkout",
		GatewaySecret:   "gateway-secret",
		ExpiryWindow:    time.Minute,
		StrictPricing:   true,
		SweepInterval:   time.Millisecond,
		SweepBatch:      1,
		SweepWorkers:    1,
		ShutdownTimeout: time.Millisecond,
	}
}

func TestModuleComposesGraphWithReplacements(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store := test.NewMemoryStore(model.CatalogEntry{ID: 1, Type: model.ItemTypeTicket, UnitPrice: 100, Capacity: 1, Active: true})

	var (
		facade    *app.BoxOfficeFacade
		engine    *gin.Engine
		sweeper   *worker.ExpirySweeper
		lifecycle *usecase.OrderLifecycle
	)
	fxApp := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return context.Background() }),
		Module(
			fx.Replace(testConfig()),
			fx.Replace(logger),
			fx.Replace(&postgres.Storage{}),
			fx.Replace(repository.Transactor(store)),
		),
		fx.Populate(&facade, &engine, &sweeper, &lifecycle),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	if facade == nil || engine == nil || sweeper == nil || lifecycle == nil {
		t.Fatal("expected graph to be populated")
	}

	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/checkout/orders", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected checkout to require a bearer token, got %d", resp.Code)
	}
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/payments/sandbox/1/confirm", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected sandbox route to be disabled by default, got %d", resp.Code)
	}
}

func TestCoreServesOperatorGraph(t *testing.T) {
	store := test.NewMemoryStore(model.CatalogEntry{ID: 1, Type: model.ItemTypeTicket, UnitPrice: 100, Capacity: 1, Active: true})

	var facade *app.BoxOfficeFacade
	fxApp := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return context.Background() }),
		fx.Supply(testConfig()),
		Core(
			fx.Replace(&postgres.Storage{}),
			fx.Replace(repository.Transactor(store)),
		),
		fx.Populate(&facade),
	)
	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}

	ids, err := facade.DueForExpiry(context.Background(), 10)
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected empty due list, got %v err=%v", ids, err)
	}
	if store.Transactions() != 1 {
		t.Fatalf("expected facade to run against the replaced transactor")
	}
}
