package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/ticketshield/citation-intake/internal/api/http"
	"github.com/ticketshield/citation-intake/internal/api/http/handlers"
	"github.com/ticketshield/citation-intake/internal/auth"
	"github.com/ticketshield/citation-intake/internal/config"
	"github.com/ticketshield/citation-intake/internal/gateway"
	"github.com/ticketshield/citation-intake/internal/observability"
	"github.com/ticketshield/citation-intake/internal/persistence"
	"github.com/ticketshield/citation-intake/internal/ratelimit"
	"github.com/ticketshield/citation-intake/internal/repository"
	"github.com/ticketshield/citation-intake/internal/service"
	"github.com/ticketshield/citation-intake/internal/store"
	"github.com/ticketshield/citation-intake/internal/templates"
	"github.com/ticketshield/citation-intake/internal/worker"
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

	metrics := observability.NewMetrics()

	var (
		caseRepo  repository.CaseRepository
		auditRepo repository.AuditLogRepository
		alertRepo repository.AlertRepository
		notifRepo repository.NotificationLogRepository
		schedRepo repository.ScheduledEmailRepository
		feed      store.ChangeFeed
	)

	var healthPG *persistence.Postgres

	pool := pg.PoolHandle()
	if pool != nil {
		healthPG = pg
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		caseRepo = repository.NewCaseRepository(pool)
		auditRepo = repository.NewAuditLogRepository(pool)
		alertRepo = repository.NewAlertRepository(pool)
		notifRepo = repository.NewNotificationLogRepository(pool)
		schedRepo = repository.NewScheduledEmailRepository(pool)
		feed = store.NewPostgresFeed(pool, caseRepo, logger)
	} else {
		// Development mode: everything in memory, no external stores.
		logger.Warn("running with in-memory store")
		memory := store.NewMemoryStore()
		caseRepo = memory
		feed = memory
		auditRepo = repository.NewMemoryAuditLogRepository()
		alertRepo = repository.NewMemoryAlertRepository()
		notifRepo = repository.NewMemoryNotificationLogRepository()
		schedRepo = repository.NewMemoryScheduledEmailRepository()
	}

	var redis *persistence.Redis
	var limiter ratelimit.Window
	if cfg.Detector.RateLimitBackend == "redis" {
		redis = persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		limiter = ratelimit.NewRedisWindow(redis.Client, cfg.Detector.RateLimitMax, cfg.Detector.RateLimitWindow(), cfg.Detector.CleanupInterval())
	} else {
		limiter = ratelimit.NewSlidingWindow(cfg.Detector.RateLimitMax, cfg.Detector.RateLimitWindow())
	}

	messagingGateway := gateway.NewBrevoGateway(cfg.Messaging, logger)
	templateProvider := templates.NewProvider()

	notifier := service.NewNotifier(service.NotifierDependencies{
		Gateway:          messagingGateway,
		Templates:        templateProvider,
		NotificationRepo: notifRepo,
		ScheduledRepo:    schedRepo,
		Metrics:          metrics,
	}, cfg.Notification, logger)

	alertService := service.NewAlertService(alertRepo, metrics, logger)
	intakeService := service.NewIntakeService(caseRepo, logger)
	reconciler := service.NewPaymentReconciler(caseRepo, notifier, alertService, logger)
	detector := service.NewStatusChangeDetector(feed, notifier, alertService, auditRepo, limiter, cfg.Detector, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokens)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthPG, redis),
		Cases:          handlers.NewCasesHandler(intakeService, metrics),
		Alerts:         handlers.NewAlertsHandler(alertService),
		Auth:           handlers.NewAuthHandler(tokens, cfg.Auth.AdminPasswordHash),
		Webhooks:       handlers.NewWebhookHandler(reconciler, cfg.Payment.WebhookSecret, logger),
		AuthMiddleware: authMiddleware,
	})

	worker.StartStatusListener(ctx, detector)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	detector.Stop()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
