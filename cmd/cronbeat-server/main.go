// Command cronbeat-server exposes the heartbeat over HTTP for schedulers that
// can only fetch a URL. GET /cron writes under the server's install directory.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/edvin/cronbeat/internal/api"
	"github.com/edvin/cronbeat/internal/config"
	"github.com/edvin/cronbeat/internal/heartbeat"
	"github.com/edvin/cronbeat/internal/logging"
	"github.com/edvin/cronbeat/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "cronbeat-server"
	}

	if err := cfg.Validate("cronbeat-server"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	base, err := heartbeat.InstallDir()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve install directory")
	}
	paths := heartbeat.NewPaths(base)

	writer := heartbeat.NewWriter(logger, paths, metrics.NewHeartbeat(prometheus.DefaultRegisterer))
	srv := api.NewServer(logger, writer, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", cfg.HTTPListenAddr).
			Str("base", paths.Base).
			Msg("starting cronbeat server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}
