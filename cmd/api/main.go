package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mapreviews/harvester/internal/config"
	"github.com/mapreviews/harvester/internal/harvest"
	"github.com/mapreviews/harvester/internal/infra"
	"github.com/mapreviews/harvester/internal/infra/browser"
	"github.com/mapreviews/harvester/internal/infra/storage"
	"github.com/mapreviews/harvester/internal/job"
	"github.com/mapreviews/harvester/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	factory, err := browser.NewFactory(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure browser driver")
	}

	var store storage.ResultStore
	switch cfg.Storage.Kind {
	case config.StoreElasticsearch:
		store, err = storage.NewESStore(ctx, cfg)
	default:
		store, err = storage.NewFileStore(cfg.Storage.Path)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("configure result store")
	}

	engine := harvest.NewEngine(factory, harvest.GoogleMapsSelectors(), cfg.Harvest, logger)
	tracker := job.NewTracker(engine.Harvest, store, int64(cfg.MaxConcurrentHarvests), logger)

	app := server.NewApp(tracker, cfg.Browser.Driver, logger)
	srv := infra.NewHTTPServer(cfg, server.NewRouter(app))

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
