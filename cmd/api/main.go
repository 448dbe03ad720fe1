package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/fieldops/workorder-service/internal/api/http"
	"github.com/fieldops/workorder-service/internal/api/http/handlers"
	"github.com/fieldops/workorder-service/internal/auth"
	"github.com/fieldops/workorder-service/internal/clock"
	"github.com/fieldops/workorder-service/internal/config"
	"github.com/fieldops/workorder-service/internal/events"
	"github.com/fieldops/workorder-service/internal/notification"
	"github.com/fieldops/workorder-service/internal/observability"
	"github.com/fieldops/workorder-service/internal/persistence"
	"github.com/fieldops/workorder-service/internal/repository"
	"github.com/fieldops/workorder-service/internal/scheduler"
	"github.com/fieldops/workorder-service/internal/service"
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
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	metrics := observability.NewMetrics()
	clk := clock.System()
	pool := pg.Pool

	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	ticketLogRepo := repository.NewTicketLogRepository(pool)
	userLogRepo := repository.NewUserLogRepository(pool)
	txManager := repository.NewTxManager(pool)

	dispatcher := events.NewInMemoryDispatcher()
	sink := notification.NewLogSink(logger)
	notification.SubscribeTicketEvents(dispatcher, sink, logger)

	audit := service.NewAuditLogger(userLogRepo, ticketLogRepo, logger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		Audit:      audit,
		Tx:         txManager,
		Tokens:     tokens,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Audit:      audit,
		Tx:         txManager,
		Clock:      clk,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	queryService := service.NewQueryService(service.QueryDependencies{
		TicketRepo:    ticketRepo,
		UserRepo:      userRepo,
		TicketLogRepo: ticketLogRepo,
		UserLogRepo:   userLogRepo,
		Clock:         clk,
	})
	expirationService := service.NewExpirationService(service.ExpirationDependencies{
		TicketRepo:    ticketRepo,
		UserRepo:      userRepo,
		TicketLogRepo: ticketLogRepo,
		UserLogRepo:   userLogRepo,
		Audit:         audit,
		Tx:            txManager,
		Sink:          sink,
		Dispatcher:    dispatcher,
		Clock:         clk,
		Metrics:       metrics,
		Logger:        logger,
	})

	var sweeps *scheduler.Manager
	if cfg.Scheduler.Enabled {
		var locker scheduler.Locker = scheduler.NoopLocker{}
		if rdb.Ping(ctx) == nil {
			locker = scheduler.NewRedisLocker(rdb.Client)
		}
		sweeps, err = scheduler.NewManager(cfg.Scheduler, locker, logger)
		if err != nil {
			logger.Fatal("failed to init scheduler", zap.Error(err))
		}
		err = sweeps.RegisterSweeps(
			scheduler.BatchJobFunc(expirationService.SendExpirationAlerts),
			scheduler.BatchJobFunc(expirationService.MarkExpiredTickets),
			scheduler.BatchJobFunc(expirationService.CleanupOldLogs),
			scheduler.BatchJobFunc(expirationService.GenerateTicketReports),
		)
		if err != nil {
			logger.Fatal("failed to register sweeps", zap.Error(err))
		}
		sweeps.Start()
	}

	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Users:          handlers.NewUsersHandler(authService, queryService),
		Tickets:        handlers.NewTicketsHandler(ticketService, queryService, clk),
		Dashboard:      handlers.NewDashboardHandler(queryService, clk),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if sweeps != nil {
		if err := sweeps.Shutdown(); err != nil {
			logger.Warn("scheduler shutdown", zap.Error(err))
		}
	}
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
