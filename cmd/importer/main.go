package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"

	"kiosk_mapping/internal/adapters/observability"
	"kiosk_mapping/internal/app"
	"kiosk_mapping/internal/shared"
)

func main() {
	path := flag.String("file", "kiosk_data.csv", "exported CSV to load")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("file", *path).
		Str("backend", cfg.StoreBackend).
		Int("workers", cfg.ImportWorkers).
		Msg("importer starting")

	f, err := os.Open(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("open CSV failed")
	}
	defer f.Close()

	records, err := app.DecodeCSV(f)
	if err != nil {
		log.Fatal().Err(err).Msg("decode CSV failed")
	}

	store, closeStore, err := shared.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("record store init failed")
	}
	defer closeStore()

	im := app.NewImporter(store, cfg.ImportWorkers, observability.ObserveImport)
	res, err := im.Import(ctx, records)
	if err != nil {
		log.Error().Err(err).Msg("import interrupted")
	}
	log.Info().
		Int("records", len(records)).
		Int("appended", res.Appended).
		Int("invalid", res.Invalid).
		Int("failed", res.Failed).
		Msg("import completed")
}
