// Command harvest runs a single harvest from the command line and writes
// the result to the configured store, without the HTTP layer.
package main

import (
	"context"
	"flag"

	"github.com/mapreviews/harvester/internal/config"
	"github.com/mapreviews/harvester/internal/harvest"
	"github.com/mapreviews/harvester/internal/infra"
	"github.com/mapreviews/harvester/internal/infra/browser"
	"github.com/mapreviews/harvester/internal/infra/storage"
)

func main() {
	var (
		url = flag.String("url", "", "source page URL to harvest")
		key = flag.String("key", "harvest", "result key (filename without extension)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if *url == "" {
		logger.Fatal().Msg("-url is required")
	}

	factory, err := browser.NewFactory(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure browser driver")
	}
	store, err := storage.NewFileStore(cfg.Storage.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure result store")
	}

	ctx := context.Background()
	engine := harvest.NewEngine(factory, harvest.GoogleMapsSelectors(), cfg.Harvest, logger)

	records, err := engine.Harvest(ctx, *url)
	if err != nil {
		logger.Fatal().Err(err).Str("error_kind", string(harvest.Classify(err))).Msg("harvest failed")
	}

	location, err := store.Write(ctx, *key, records)
	if err != nil {
		logger.Fatal().Err(err).Msg("persist result")
	}
	logger.Info().Int("records", len(records)).Str("location", location).Msg("harvest written")
}
