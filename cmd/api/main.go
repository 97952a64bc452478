package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/api/dto"
	httptransport "github.com/spec-kit/marketplace-service/internal/api/http"
	"github.com/spec-kit/marketplace-service/internal/api/http/handlers"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/config"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/observability"
	"github.com/spec-kit/marketplace-service/internal/persistence"
	"github.com/spec-kit/marketplace-service/internal/repository"
	"github.com/spec-kit/marketplace-service/internal/service"
	"github.com/spec-kit/marketplace-service/internal/worker"
	"github.com/spec-kit/marketplace-service/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.Files, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	readiness := map[string]handlers.Pinger{"redis": redis}
	var (
		accountRepo repository.AccountRepository
		offerRepo   repository.OfferRepository
		resetRepo   repository.PasswordResetRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		accountRepo = repository.NewAccountRepository(pool)
		offerRepo = repository.NewOfferRepository(pool)
		resetRepo = repository.NewPasswordResetRepository(pool)
		readiness["postgres"] = pg
	} else {
		logger.Warn("using in-memory store; data is lost on restart")
		store := repository.NewMemoryStore()
		accountRepo = store.Accounts()
		offerRepo = store.Offers()
		resetRepo = store.Resets()
	}

	dispatcher := events.NewInMemoryDispatcher()
	publisher, closePublisher, err := buildPublisher(cfg.Events, dispatcher, redis, readiness, logger)
	if err != nil {
		logger.Fatal("failed to init event publisher", zap.Error(err))
	}
	defer closePublisher()

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)
	go worker.NewResetJanitor(resetRepo, cfg.Auth.ResetSweepInterval(), logger).Run(ctx)

	codec := auth.NewTokenCodec(map[domain.Kind]auth.KindSecrets{
		domain.KindUser: {
			Access:  []byte(cfg.Auth.UserAccessSecret),
			Refresh: []byte(cfg.Auth.UserRefreshSecret),
		},
		domain.KindCompany: {
			Access:  []byte(cfg.Auth.CompanyAccessSecret),
			Refresh: []byte(cfg.Auth.CompanyRefreshSecret),
		},
	}, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL())

	markers := repository.NewInvalidationRepository(redis.Client, cfg.Auth.RefreshTTL())
	resolver, err := auth.NewResolver(auth.ResolverDependencies{
		Codec:    codec,
		Policy:   cfg.Auth.ClaimsPolicy,
		Accounts: accountRepo,
		Markers:  markers,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		logger.Fatal("failed to init principal resolver", zap.Error(err))
	}

	gate := service.NewBanGate(metrics)
	authService := service.NewAuthService(service.AuthDependencies{
		Accounts:         accountRepo,
		Resets:           resetRepo,
		Codec:            codec,
		Gate:             gate,
		Publisher:        publisher,
		BcryptCost:       cfg.Auth.BcryptCost,
		PasswordResetTTL: cfg.Auth.PasswordResetTTL(),
		Logger:           logger,
	})
	offerService := service.NewOfferService(offerRepo, gate)
	messageService := service.NewMessageService(accountRepo, gate, publisher, logger)
	moderationDeps := service.ModerationDependencies{
		Accounts:  accountRepo,
		Publisher: publisher,
		Metrics:   metrics,
		Logger:    logger,
	}
	if cfg.Auth.ClaimsPolicy == config.ClaimsPolicyMarker {
		moderationDeps.Invalidator = markers
	}
	moderationService := service.NewModerationService(moderationDeps)

	cookies := auth.CookieFactory{Secure: cfg.App.IsProduction()}
	validator := dto.NewValidator()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Auth:           handlers.NewAuthHandler(authService, cookies, validator),
		Account:        handlers.NewAccountHandler(authService, cookies, validator),
		Offers:         handlers.NewOffersHandler(offerService, validator),
		Messages:       handlers.NewMessagesHandler(messageService, validator),
		Moderation:     handlers.NewModerationHandler(moderationService, validator),
		AuthMiddleware: auth.NewAuthMiddleware(resolver, cookies),
		WriteGate:      gate,
		Gatherer:       registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// buildPublisher returns the event publisher for the configured backend. The
// in-process dispatcher always receives events so local notifications fire.
func buildPublisher(cfg config.EventsConfig, dispatcher events.Dispatcher, redis *persistence.Redis, readiness map[string]handlers.Pinger, logger *zap.Logger) (events.Publisher, func(), error) {
	switch cfg.Backend {
	case "redis":
		return events.FanOut(dispatcher, events.NewRedisPublisher(redis.Client, cfg.RedisChannel)), func() {}, nil
	case "kafka":
		kafka, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaClient)
		if err != nil {
			return nil, nil, err
		}
		readiness["kafka"] = kafka
		logger.Info("publishing events to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
		return events.FanOut(dispatcher, kafka), kafka.Close, nil
	default:
		return dispatcher, func() {}, nil
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
