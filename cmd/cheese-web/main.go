package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/Cheese-Web/internal/app"
	appcfg "github.com/park285/Cheese-Web/internal/config"
	"github.com/park285/Cheese-Web/internal/obslog"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(cfg.Debug); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	a, err := app.New(cfg)
	if err != nil {
		logger.Fatal("app_init_failed", zap.Error(err))
	}
	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = a.Startup(startCtx)
	cancel()
	if err != nil {
		logger.Fatal("app_startup_failed", zap.Error(err))
	}
	handler, err := a.Handler()
	if err != nil {
		logger.Fatal("router_init_failed", zap.Error(err))
	}

	// cancelling baseCtx ends every live stream during shutdown
	baseCtx, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listen", zap.String("addr", srv.Addr), zap.String("host_name", cfg.HostName))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("http_server_failed", zap.Error(err))
	}

	stopStreams()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http_shutdown", zap.Error(err))
	}
	if err := a.Shutdown(ctx); err != nil {
		logger.Warn("app_shutdown", zap.Error(err))
	}
}
