package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/majstudio/community-bot/internal/api/http"
	"github.com/majstudio/community-bot/internal/api/http/handlers"
	"github.com/majstudio/community-bot/internal/bot"
	"github.com/majstudio/community-bot/internal/config"
	"github.com/majstudio/community-bot/internal/events"
	"github.com/majstudio/community-bot/internal/observability"
	"github.com/majstudio/community-bot/internal/persistence"
	"github.com/majstudio/community-bot/internal/platform/discord"
	"github.com/majstudio/community-bot/internal/repository"
	"github.com/majstudio/community-bot/internal/service"
	"github.com/majstudio/community-bot/internal/worker"
)

const (
	eventQueueSize = 256
	opsTimeout     = 5 * time.Second
)

func runCommand(ctx context.Context, dataDir string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logRepo := repository.NewActionLogRepository(cfg.Storage.DataDir, logger)
	ticketRepo := repository.NewTicketRepository(cfg.Storage.DataDir, logger)
	roomRepo := repository.NewTempChannelRepository(cfg.Storage.DataDir, logger)
	for _, initStore := range []func() error{logRepo.Init, ticketRepo.Init, roomRepo.Init} {
		if err := initStore(); err != nil {
			return fmt.Errorf("failed to init storage: %w", err)
		}
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	var archive repository.ActionArchiveRepository
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		archive = repository.NewActionArchiveRepository(pg.PoolHandle())
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	dispatcher := events.NewQueuedDispatcher(eventQueueSize, logger)
	defer dispatcher.Close()

	metrics := observability.NewMetrics()
	recorder := service.NewActionLogger(service.ActionLoggerDependencies{
		Logs:       logRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	if archiver := service.NewArchiveService(dispatcher, archive, logger); archiver != nil {
		worker.StartArchiveWorker(archiver)
	}

	session, err := discord.New(cfg.Discord, logger)
	if err != nil {
		return fmt.Errorf("failed to create gateway session: %w", err)
	}

	transcripts := service.NewTranscriptService(session, cfg.Channels, logger)
	closer := service.NewTicketCloser(service.TicketCloserDependencies{
		Platform:    session,
		Tickets:     ticketRepo,
		Transcripts: transcripts,
		Scheduler:   service.NewTimerScheduler(),
		Dispatcher:  dispatcher,
		Delay:       cfg.Tickets.CloseDelay(),
		Logger:      logger,
	})
	forms := service.NewFormService(service.FormDependencies{
		Platform:   session,
		TicketRepo: ticketRepo,
		Closer:     closer,
		Recorder:   recorder,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		Platform:   session,
		TicketRepo: ticketRepo,
		Forms:      forms,
		Closer:     closer,
		Recorder:   recorder,
		Dispatcher: dispatcher,
		Channels:   cfg.Channels,
		Logger:     logger,
	})
	orderClient := service.NewOrderClient(cfg.Orders, repository.NewOrderCache(redis.Client), logger)
	orders := service.NewOrderService(service.OrderDependencies{
		Client:   orderClient,
		Tickets:  tickets,
		Platform: session,
		Recorder: recorder,
		Logger:   logger,
	})
	monitor := service.NewHealthMonitor(service.HealthMonitorDependencies{
		Endpoint: cfg.Orders.HealthURL,
		Interval: cfg.Orders.HealthInterval(),
		Recorder: recorder,
		Logger:   logger,
	})

	router := bot.NewRouter(bot.Dependencies{
		Tickets: tickets,
		Forms:   forms,
		Orders:  orders,
		Panels: service.NewPanelService(service.PanelDependencies{
			Platform: session,
			Recorder: recorder,
			Roles:    cfg.Roles,
			Messages: cfg.Messages,
			Rules:    cfg.Rules,
			Logger:   logger,
		}),
		Admin: service.NewAdminService(service.AdminDependencies{
			Platform:   session,
			Logs:       logRepo,
			TicketRepo: ticketRepo,
			Recorder:   recorder,
			Logger:     logger,
		}),
		Health: service.NewHealthReporter(session, monitor, nil),
		Voice: service.NewVoiceService(service.VoiceDependencies{
			Platform: session,
			Rooms:    roomRepo,
			Recorder: recorder,
			Channels: cfg.Channels,
			Logger:   logger,
		}),
		Members: service.NewMemberService(service.MemberDependencies{
			Platform: session,
			Recorder: recorder,
			Channels: cfg.Channels,
			Messages: cfg.Messages,
			Logger:   logger,
		}),
		Notifier: service.NewNotificationService(dispatcher, session, cfg.Channels, logger),
		Recorder: recorder,
		Metrics:  metrics,
		Logger:   logger,
	})
	session.Attach(router)

	if err := session.Open(ctx); err != nil {
		return fmt.Errorf("failed to open gateway session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("closing gateway session", zap.Error(err))
		}
	}()

	if err := monitor.Start(ctx); err != nil {
		logger.Warn("health monitor not started", zap.Error(err))
	}
	defer monitor.Stop()

	var app *fiber.App
	if cfg.App.Enabled() {
		app = fiber.New(fiber.Config{DisableStartupMessage: true})
		httptransport.RegisterMiddlewares(app, logger, metrics, opsTimeout)
		httptransport.RegisterRoutes(app, httptransport.RouteConfig{
			Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Storage.DataDir, session, pg, redis),
			Metrics: handlers.NewMetricsHandler(metrics),
		})
		go func() {
			if err := app.Listen(cfg.App.Addr()); err != nil {
				logger.Error("ops server stopped", zap.Error(err))
			}
		}()
		logger.Info("ops server listening", zap.String("addr", cfg.App.Addr()))
	}

	waitForShutdown(ctx, logger)

	if app != nil {
		_ = app.ShutdownWithTimeout(opsTimeout)
	}
	return nil
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(ctx.Err()))
	}
}
