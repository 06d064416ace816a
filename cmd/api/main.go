package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/princedesai012/Doc-Flow/internal/config"
	"github.com/princedesai012/Doc-Flow/internal/database"
	"github.com/princedesai012/Doc-Flow/internal/database/migration"
	handlers "github.com/princedesai012/Doc-Flow/internal/http/handler"
	"github.com/princedesai012/Doc-Flow/internal/http/middleware"
	"github.com/princedesai012/Doc-Flow/internal/notify"
	"github.com/princedesai012/Doc-Flow/internal/otel"
	"github.com/princedesai012/Doc-Flow/internal/repository/postgres"
	"github.com/princedesai012/Doc-Flow/internal/service"
	"github.com/princedesai012/Doc-Flow/internal/storage"
	"github.com/princedesai012/Doc-Flow/internal/ws"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	// Tracing first so DB and HTTP spans are exported from the start
	shutdownTracing, err := otel.Init(ctx, time.UTC)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Observer hub carries request updates and gateway status to dashboards
	hub := ws.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	// Messaging gateway delivers upload links; the hub mirrors its status
	gateway := notify.NewHTTPGateway(cfg.Gateway, hub, logger)
	gateway.Connect(ctx)

	// Repositories and services
	reqRepo := postgres.NewRequestPostgres(db)
	reqSvc := service.NewRequestService(reqRepo, objStore, gateway, hub, cfg.PublicBaseURL, logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    25 * 1024 * 1024,
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(time.UTC))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	promMw, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	app.Use(promMw.Handler())

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	)
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, reqSvc, objStore, gateway, hub)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
