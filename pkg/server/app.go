package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"SignalDesk/internal/service/quotes"
	"SignalDesk/pkg/config"
	xhttp "SignalDesk/pkg/http"
	"SignalDesk/pkg/jobs"
	applogger "SignalDesk/pkg/logger"
)

// Closer releases infrastructure resources on shutdown.
type Closer interface {
	Close() error
}

// App encapsulates the application lifecycle: the job runner driving the
// engine passes, the optional live quote stream, and the HTTP API.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	runner     *jobs.Runner
	handler    xhttp.Handler
	stream     *quotes.Stream
	stores     Closer
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	runner *jobs.Runner,
	handler xhttp.Handler,
	stream *quotes.Stream,
	stores Closer,
) *App {
	return &App{
		cfg:     cfg,
		logger:  lgr,
		runner:  runner,
		handler: handler,
		stream:  stream,
		stores:  stores,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.logger, a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.stream != nil {
		a.stream.Start(ctx)
		a.logger.Info("quote stream started", applogger.Strings("symbols", a.cfg.Quotes.Symbols))
	}

	a.runner.Start(ctx)
	a.logger.Info("engine jobs started")

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	a.runner.Stop()
	a.logger.Info("engine jobs stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.stores != nil {
		if err := a.stores.Close(); err != nil {
			a.logger.Warn("store close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
