package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/metobs/internal/app"
	"github.com/bbernstein/metobs/internal/config"
	"github.com/bbernstein/metobs/internal/web"
)

func main() {
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()

	log.Info().Str("env", cfg.Environment).Msg("Environment")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer application.Close()

	server := web.New(application.Search, web.WithMetricsHandler(application.Metrics.Handler()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Web server stopped")
			application.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}
