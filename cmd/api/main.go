package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/intake-service/internal/api/http"
	"github.com/spec-kit/intake-service/internal/api/http/handlers"
	"github.com/spec-kit/intake-service/internal/auth"
	"github.com/spec-kit/intake-service/internal/config"
	"github.com/spec-kit/intake-service/internal/events"
	"github.com/spec-kit/intake-service/internal/observability"
	"github.com/spec-kit/intake-service/internal/persistence"
	"github.com/spec-kit/intake-service/internal/repository"
	"github.com/spec-kit/intake-service/internal/service"
	"github.com/spec-kit/intake-service/internal/storage"
	"github.com/spec-kit/intake-service/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	fileStore, err := storage.NewFileStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to connect object store", zap.Error(err))
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	appRepo := repository.NewApplicationRepository(pool)
	countCache := persistence.NewApplicationCountCache(redis, logger)

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authService := service.NewAuthService(*cfg, userRepo, dispatcher)
	appService := service.NewApplicationService(appRepo, fileStore, countCache, dispatcher, cfg.Pagination.DefaultPageSize)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.Storage.MaxUploadBytes) + 1<<20,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.CORS.AllowedOrigins, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Applications:   handlers.NewApplicationsHandler(appService),
		Admin:          handlers.NewAdminHandler(appService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
