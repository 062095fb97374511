package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Momentum/internal/domain/models"
	drepo "Momentum/internal/domain/repository"
	"Momentum/internal/handler/api"
	"Momentum/internal/service/marketdata"
	"Momentum/internal/usecase"
	pkgch "Momentum/pkg/clickhouse"
	"Momentum/pkg/config"
	xhttp "Momentum/pkg/http"
	applogger "Momentum/pkg/logger"
	pkgpg "Momentum/pkg/postgres"
	pkgqueue "Momentum/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	market     *marketdata.Router
	monitor    *usecase.Monitor
	scouts     drepo.ScoutStore
	handler    *api.Router
	pgClient   *pkgpg.Client
	chClient   *pkgch.Client
	publisher  drepo.EventPublisher
	logQueue   *pkgqueue.RedisQueue
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	market *marketdata.Router,
	monitor *usecase.Monitor,
	scouts drepo.ScoutStore,
	handler *api.Router,
	pgClient *pkgpg.Client,
	chClient *pkgch.Client,
	publisher drepo.EventPublisher,
	logQueue *pkgqueue.RedisQueue,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		market:    market,
		monitor:   monitor,
		scouts:    scouts,
		handler:   handler,
		pgClient:  pgClient,
		chClient:  chClient,
		publisher: publisher,
		logQueue:  logQueue,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Feed connection and archive loop
	a.market.Start(ctx)
	a.log.Info("market data router started")

	a.resumeScouts(ctx)

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.log),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// resumeScouts restarts scouts left ACTIVE by a previous run. A scout that
// fails to start falls through to the monitor's error handling.
func (a *App) resumeScouts(ctx context.Context) {
	scouts, err := a.scouts.FindByStatus(ctx, models.ScoutStatusActive)
	if err != nil {
		a.log.Warn("resume scouts lookup failed", applogger.Error(err))
		return
	}
	for _, s := range scouts {
		if err := a.monitor.StartScout(ctx, s); err != nil {
			a.log.Warn("resume scout failed",
				applogger.String("scout_id", s.ID), applogger.Error(err))
			continue
		}
		a.log.Info("scout resumed",
			applogger.String("scout_id", s.ID), applogger.Strings("symbols", s.Symbols))
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop routing new requests first, then the pipeline behind them.
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	a.monitor.Cleanup()
	a.market.Cleanup()

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.pgClient != nil {
		a.pgClient.Close()
	}
	if a.logQueue != nil {
		a.log.RemoveCollector()
		if err := a.logQueue.Stop(shutdownCtx); err != nil {
			a.log.Warn("log queue stop error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
