// Command xlinkd runs an xlink client behind an HTTP gateway.
//
// @title       xlink gateway API
// @version     1.0
// @description HTTP gateway in front of an xlink messaging client.
// @BasePath    /
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kirky-X/xlink/internal/app"
	"github.com/Kirky-X/xlink/internal/config"
	"github.com/Kirky-X/xlink/internal/logger"
	"github.com/Kirky-X/xlink/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Base context for the whole application lifetime.
	rootCtx := context.Background()

	// Load configuration from environment/.env.
	cfg := config.New()
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	// Channels, storage, cache and the client itself.
	a, err := app.Build(rootCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build xlink client")
	}

	// HTTP dependencies & server wiring.
	deps := server.Deps(a.Client, a.Webhook, cfg.Webhook.Key)
	addr := cfg.Addr()
	srv := server.New(addr, deps, logger.Component(a.Log, "http"))

	// Create a context that is cancelled on SIGINT/SIGTERM (Ctrl+C, docker stop etc.).
	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the HTTP server in a separate goroutine so we can listen for signals.
	go func() {
		log.Info().Str("addr", addr).Str("device", a.Client.DeviceID().String()).Msg("HTTP server listening")

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Block until we receive a shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, starting graceful shutdown")

	// Give components some time to shut down cleanly.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop accepting requests first so no send races the client close.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server graceful shutdown failed")
	} else {
		log.Info().Msg("HTTP server stopped")
	}

	// Close waits for sends in flight and a running redelivery pass.
	if err := a.Close(); err != nil {
		log.Error().Err(err).Msg("xlink client did not close cleanly")
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}
