package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/CrawlerEmporium/issuecrawler/internal/api/http"
	"github.com/CrawlerEmporium/issuecrawler/internal/api/http/handlers"
	"github.com/CrawlerEmporium/issuecrawler/internal/auth"
	"github.com/CrawlerEmporium/issuecrawler/internal/cache"
	"github.com/CrawlerEmporium/issuecrawler/internal/config"
	"github.com/CrawlerEmporium/issuecrawler/internal/events"
	"github.com/CrawlerEmporium/issuecrawler/internal/observability"
	"github.com/CrawlerEmporium/issuecrawler/internal/persistence"
	"github.com/CrawlerEmporium/issuecrawler/internal/presentation"
	"github.com/CrawlerEmporium/issuecrawler/internal/repository"
	"github.com/CrawlerEmporium/issuecrawler/internal/service"
	"github.com/CrawlerEmporium/issuecrawler/internal/tracker"
	"github.com/CrawlerEmporium/issuecrawler/internal/worker"
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
	ticketRepo := repository.NewTicketRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	counterRepo := repository.NewCounterRepository(pool)
	communityRepo := repository.NewCommunityRepository(pool)
	managerRepo := repository.NewManagerRepository(pool)
	milestoneRepo := repository.NewMilestoneRepository(pool)
	questionnaireRepo := repository.NewQuestionnaireRepository(pool)
	pendingRepo := repository.NewPendingReleaseRepository(pool)

	communityCache := cache.NewCommunityCache(communityRepo, redis.Client, cfg.Redis.CommunityTTL(), logger)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	mirror := tracker.NewMirror(tracker.NewGitHubClient(cfg.Tracker), logger)
	renderer := presentation.NewLogRenderer(logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		AttachmentRepo: attachmentRepo,
		CounterRepo:    counterRepo,
		Communities:    communityCache,
		PendingRepo:    pendingRepo,
		Dispatcher:     dispatcher,
		Mirror:         mirror,
		Renderer:       renderer,
		Logger:         logger,
		Metrics:        metrics,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	communityService := service.NewCommunityService(service.CommunityDependencies{
		CommunityRepo:     communityRepo,
		CounterRepo:       counterRepo,
		QuestionnaireRepo: questionnaireRepo,
		ManagerRepo:       managerRepo,
		Cache:             communityCache,
		Tokens:            tokens,
		BcryptCost:        cfg.Auth.BcryptCost,
		ConfirmWindow:     cfg.Confirm.Window(),
		Logger:            logger,
	})
	milestoneService := service.NewMilestoneService(milestoneRepo, ticketRepo, logger)
	questionnaireService := service.NewQuestionnaireService(questionnaireRepo, communityCache)
	webhookService := service.NewWebhookService(ticketService, ticketRepo, communityRepo, logger)

	notificationService := service.NewNotificationService(dispatcher, worker.NewLogMessenger(logger), logger)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(tokens, managerRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Communities:    handlers.NewCommunitiesHandler(communityService, questionnaireService),
		Milestones:     handlers.NewMilestonesHandler(milestoneService),
		Webhooks:       handlers.NewWebhookHandler(webhookService),
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
