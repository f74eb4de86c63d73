package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/adoptimizer/internal/api"
	"github.com/ignite/adoptimizer/internal/app"
	"github.com/ignite/adoptimizer/internal/config"
	"github.com/ignite/adoptimizer/internal/pkg/logger"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func main() {
	if err := run(); err != nil {
		logger.Error("server exited", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := app.ConfigureLogging(cfg.Log); err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting AdOptimizer server", "port", cfg.Server.Port)

	if err := checkPortAvailable(cfg.Server.GetHost(), cfg.Server.Port); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer a.Close()

	// nil pointers must stay nil interfaces so the checks report "disabled"
	var db, cachePinger api.Pinger
	if a.Store != nil {
		db = a.Store
	}
	if a.Cache != nil {
		cachePinger = a.Cache
	}
	health := api.NewHealthChecker(db, cachePinger, a.Archive)
	server := api.NewServer(cfg.Server, a.Service, health, cfg.Ingest.MaxFileBytes)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-done:
	case err := <-errCh:
		return err
	}
	logger.Info("shutting down")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
	return nil
}
