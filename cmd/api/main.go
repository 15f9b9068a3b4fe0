package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/grievance-service/internal/api/http"
	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/bootstrap"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build services", zap.Error(err))
	}
	defer container.Close()

	if err := container.SeedAdmin(ctx); err != nil {
		logger.Fatal("failed to seed admin", zap.Error(err))
	}

	worker.StartNotificationWorker(container.Notifications)
	if cfg.Escalation.Enabled {
		escalationWorker := worker.NewEscalationWorker(container.Escalation, cfg.Escalation.Interval(), logger)
		go escalationWorker.Run(ctx)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
		BodyLimit:    cfg.App.BodyLimitBytes,
	})
	httptransport.RegisterMiddlewares(app, logger, container.Metrics, httptransport.MiddlewareConfig{
		Timeout:      cfg.App.RequestTimeout(),
		AllowOrigins: cfg.App.CORSAllowOrigins,
	})

	deps := map[string]handlers.Pinger{"postgres": container.Postgres, "redis": nil}
	if container.Redis.Enabled() {
		deps["redis"] = container.Redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Users:          handlers.NewUsersHandler(container.Auth),
		Issues:         handlers.NewIssuesHandler(container.IssueService),
		Upload:         handlers.NewUploadHandler(container.Proofs, cfg.Storage.MaxUploadBytes),
		Analytics:      handlers.NewAnalyticsHandler(container.Analytics),
		AuthMiddleware: auth.NewAuthMiddleware(container.Auth.TokenManager(), container.Users),
		Metrics:        container.Metrics.Handler(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
