package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/account-service/internal/api/http"
	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/mail"
	"github.com/spec-kit/account-service/internal/observability"
	"github.com/spec-kit/account-service/internal/persistence"
	"github.com/spec-kit/account-service/internal/provider"
	"github.com/spec-kit/account-service/internal/ratelimit"
	"github.com/spec-kit/account-service/internal/repository"
	"github.com/spec-kit/account-service/internal/service"
	"github.com/spec-kit/account-service/internal/worker"
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

	pool := pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	pendingRepo := repository.NewPendingRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	tokenService := service.NewTokenService(cfg.Auth, tokenRepo, logger)

	providers := provider.NewRegistry(service.NewLocalAccessVerifier(tokenService, accountRepo))

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		AccountRepo:  accountRepo,
		TokenService: tokenService,
		Providers:    providers,
		Dispatcher:   dispatcher,
	}, logger)
	registrationService := service.NewRegistrationService(cfg.Auth, service.RegistrationDependencies{
		AccountRepo:  accountRepo,
		PendingRepo:  pendingRepo,
		TokenService: tokenService,
		Dispatcher:   dispatcher,
	}, logger)

	mailer := mail.NewLogMailer(logger, cfg.Mail.From)
	notificationService := service.NewNotificationService(dispatcher, mailer, logger, cfg.Mail)
	notificationService.RegisterHandlers()

	limiter := ratelimit.NewLimiter(redis.Client, logger)
	authMiddleware := auth.NewMiddleware(tokenService, accountRepo)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService, limiter, cfg.RateLimit),
		Register:       handlers.NewRegisterHandler(registrationService, authService, limiter, cfg.RateLimit, cfg.Mail),
		Subscription:   handlers.NewSubscriptionHandler(authService),
		AuthMiddleware: authMiddleware,
	})

	sweeper := worker.NewSweeper(tokenRepo, pendingRepo, cfg.Auth.SweepInterval, logger)
	go sweeper.Run(ctx)

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
