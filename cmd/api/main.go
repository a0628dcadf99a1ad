package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-platform/internal/api/http"
	"github.com/spec-kit/support-platform/internal/api/http/handlers"
	"github.com/spec-kit/support-platform/internal/api/ws"
	"github.com/spec-kit/support-platform/internal/auth"
	"github.com/spec-kit/support-platform/internal/config"
	"github.com/spec-kit/support-platform/internal/events"
	"github.com/spec-kit/support-platform/internal/observability"
	"github.com/spec-kit/support-platform/internal/persistence"
	"github.com/spec-kit/support-platform/internal/relay"
	"github.com/spec-kit/support-platform/internal/repository"
	"github.com/spec-kit/support-platform/internal/repository/memory"
	"github.com/spec-kit/support-platform/internal/service"
	"github.com/spec-kit/support-platform/internal/worker"
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

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		userRepo   repository.UserRepository
		ticketRepo repository.TicketRepository
		chatRepo   repository.ChatRepository
	)
	if pool != nil {
		userRepo = repository.NewUserRepository(pool)
		ticketRepo = repository.NewTicketRepository(pool)
		chatRepo = repository.NewChatRepository(pool)
	} else {
		userRepo = memory.NewUserRepository()
		ticketRepo = memory.NewTicketRepository()
		chatRepo = memory.NewChatRepository()
	}

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		Dispatcher: dispatcher,
	})
	chatService := service.NewChatService(service.ChatDependencies{
		ChatRepo:   chatRepo,
		Dispatcher: dispatcher,
	})
	escalationService := service.NewEscalationService(chatService, ticketService, dispatcher)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	chatRelay := relay.New(logger)
	if cfg.Relay.PubSubChannel != "" {
		bridge := relay.NewRedisBridge(redis.Client, cfg.Relay.PubSubChannel, logger)
		chatRelay.SetBridge(bridge)
		go bridge.Listen(ctx, chatRelay)
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	socketHandler := ws.NewHandler(chatRelay, chatService, authService.TokenManager(), userRepo, cfg.Relay.SendBufferSize, logger)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Chats:          handlers.NewChatsHandler(chatService, escalationService, chatRelay),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AdminTickets:   handlers.NewAdminTicketsHandler(ticketService),
		Socket:         socketHandler,
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
