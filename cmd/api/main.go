package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"promptvault/internal/bootstrap"
	"promptvault/internal/http/handlers"
	"promptvault/internal/http/httpapi"
	"promptvault/internal/infra"
)

func main() {
	infra.LoadDotEnv()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer services.Close()

	app := handlers.NewApp(cfg, logger, services.Backend.Prompts, services.Enricher)
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app))

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr()).Str("store", services.Backend.Driver).Msg("api listening")
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server failed")
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), max(cfg.HTTPIdleTimeout, 5*time.Second))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
