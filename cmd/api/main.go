package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	server "kiosk_mapping/internal/adapters/http_server"
	"kiosk_mapping/internal/adapters/observability"
	redisad "kiosk_mapping/internal/adapters/redis"
	"kiosk_mapping/internal/app"
	"kiosk_mapping/internal/domain"
	"kiosk_mapping/internal/shared"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	store, closeStore, err := shared.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("record store init failed")
	}
	defer closeStore()

	// the snapshot memo is optional; without Redis every page view reads the store
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rc.Ping(pctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; snapshot memo disabled")
		} else {
			cache = rc
			defer rc.Close()
		}
		cancel()
	}

	loader := app.NewSnapshotLoader(store, cache, cfg.SnapshotTTL)
	dash := app.NewDashboardService(loader, cfg.HeightBins)
	sub := app.NewSubmissionService(store, loader, clockwork.NewRealClock())

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Dash: dash, Submit: sub})

	log.Info().Str("addr", cfg.HTTPAddr).Str("backend", cfg.StoreBackend).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
