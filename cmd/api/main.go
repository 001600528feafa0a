package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/ibrahimkeyboad/billpay/internal/adapter/handler"
	"github.com/ibrahimkeyboad/billpay/internal/adapter/middleware"
	"github.com/ibrahimkeyboad/billpay/internal/adapter/storage"
	"github.com/ibrahimkeyboad/billpay/internal/core/config"
	"github.com/ibrahimkeyboad/billpay/internal/core/metrics"
	"github.com/ibrahimkeyboad/billpay/internal/core/payments"
	"github.com/ibrahimkeyboad/billpay/internal/core/settlement"
	"github.com/ibrahimkeyboad/billpay/internal/core/worker"
)

func main() {
	// 1. Load config
	cfg := config.LoadConfig()

	// 2. Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 3. Pick the store: Postgres when configured, in-memory otherwise
	var store storage.Store
	var pg *storage.PostgresStore
	if cfg.DatabaseURL != "" {
		var err error
		pg, err = storage.ConnectDB(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("❌ Database connection failed", "error", err)
			os.Exit(1)
		}
		store = pg
		slog.Info("✅ Connected to Postgres")
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data is lost on restart)")
		store = storage.NewMemoryStore()
	}

	// 4. Wire the core
	gateway := settlement.NewNetworkGateway(cfg.SettlementLatency)
	orchestrator := payments.NewOrchestrator(store, gateway, cfg.SettlementTimeout)
	aggregator := metrics.NewAggregator(store)

	authHandler := &handler.AuthHandler{Store: store}
	billHandler := &handler.BillHandler{Store: store}
	methodHandler := &handler.MethodHandler{Store: store}
	paymentHandler := &handler.PaymentHandler{
		Orchestrator:      orchestrator,
		Store:             store,
		ReceiptWebhookURL: cfg.ReceiptWebhookURL,
	}
	dashboardHandler := &handler.DashboardHandler{Aggregator: aggregator}

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	// 6. Routes
	api := app.Group("/api")

	// Public
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	// Protected
	private := api.Use(middleware.Protected(store))
	private.Get("/auth/me", authHandler.Me)
	private.Post("/auth/logout", authHandler.Logout)

	private.Get("/bills", billHandler.List)
	private.Post("/bills", billHandler.Create)
	private.Put("/bills/:id", billHandler.Update)
	private.Delete("/bills/:id", billHandler.Delete)

	private.Get("/payment-methods", methodHandler.List)
	private.Post("/payment-methods", methodHandler.Create)
	private.Delete("/payment-methods/:id", methodHandler.Delete)

	private.Post("/payments/process", middleware.Idempotency(store), paymentHandler.Process)
	private.Get("/payments/history", paymentHandler.History)

	private.Get("/dashboard/metrics", dashboardHandler.Metrics)

	// 7. Start the overdue sweeper
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	worker.StartOverdueSweeper(sweepCtx, store, cfg.SweepInterval)

	// 8. Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("🚀 Server starting", "env", cfg.Env, "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}()

	<-stop
	slog.Info("🛑 Shutting down server...")

	stopSweep()
	if pg != nil {
		pg.Close()
		slog.Info("✅ Database connection closed")
	}

	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	slog.Info("👋 Server exited successfully")
}
