package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/campusdesk/reception-service/internal/api/http"
	"github.com/campusdesk/reception-service/internal/api/http/handlers"
	"github.com/campusdesk/reception-service/internal/auth"
	"github.com/campusdesk/reception-service/internal/config"
	"github.com/campusdesk/reception-service/internal/events"
	"github.com/campusdesk/reception-service/internal/observability"
	"github.com/campusdesk/reception-service/internal/persistence"
	"github.com/campusdesk/reception-service/internal/repository"
	"github.com/campusdesk/reception-service/internal/service"
	"github.com/campusdesk/reception-service/internal/signaling"
	"github.com/campusdesk/reception-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

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

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Telemetry, cfg.App, logger)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool == nil {
		logger.Fatal("POSTGRES_DSN is required: the staff directory lives in postgres")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger.Named("events"))

	staffRepo := repository.NewStaffRepository(pool)
	callLogRepo := repository.NewCallLogRepository(pool)
	timetableRepo := repository.NewTimetableRepository(pool)

	authService := service.NewAuthService(*cfg, staffRepo)
	directory := service.NewDirectoryService(staffRepo, logger.Named("directory"))
	timetable := service.NewTimetableService(timetableRepo, redis.Client, cfg.Redis.PresencePrefix, cfg.Workers.TimetableCacheTTL(), logger.Named("timetable"))
	history := service.NewCallHistoryService(callLogRepo)
	service.NewNotificationService(dispatcher, redis.Client, cfg.Redis.PresencePrefix, logger.Named("notifications")).RegisterHandlers()

	callLogs := worker.NewCallLogWriter(callLogRepo, metrics, logger.Named("call_log_writer"), cfg.Workers.CallLogBufferSize, cfg.Workers.CallLogWriteTimeout())

	switchboard := signaling.NewSwitchboard(signaling.Dependencies{
		Logger:     logger.Named("signaling"),
		Metrics:    metrics,
		Directory:  directory,
		Verifier:   authService,
		Classes:    timetable,
		CallLogs:   callLogs,
		Events:     dispatcher,
		SendBuffer: cfg.Signaling.SendBufferSize,
	})

	members, err := directory.LoadAll(ctx)
	if err != nil {
		logger.Warn("directory sync failed; identities resolve on demand", zap.Error(err))
	} else {
		switchboard.SyncDirectory(ctx, members)
	}

	var workers sync.WaitGroup
	runWorker := func(run func(context.Context)) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			run(ctx)
		}()
	}
	runWorker(callLogs.Run)
	runWorker(worker.NewQueueSweeper(switchboard, cfg.Workers.SweepInterval(), cfg.Signaling.RequestTTL(), cfg.Signaling.EndedRetention(), logger.Named("sweeper")).Run)
	runWorker(worker.NewPresenceRefresher(switchboard, timetable, cfg.Workers.TimetablePoll(), logger.Named("presence_refresher")).Run)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	wsHandler := handlers.NewWSHandler(switchboard, logger.Named("ws"), cfg.Signaling.PongWait(), cfg.Signaling.ReadLimitBytes, cfg.Signaling.Origins())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, switchboard),
		Auth:           handlers.NewAuthHandler(authService),
		Reception:      handlers.NewReceptionHandler(switchboard, history),
		WS:             wsHandler,
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), staffRepo),
		Metrics:        metrics.Handler(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	switchboard.Close(shutdownCtx)
	if err := wsHandler.Drain(shutdownCtx); err != nil {
		logger.Warn("sockets still open at shutdown", zap.Error(err))
	}
	if err := callLogs.Close(shutdownCtx); err != nil {
		logger.Warn("call log writer did not drain", zap.Error(err))
	}
	cancel()
	workers.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("trace flush", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
