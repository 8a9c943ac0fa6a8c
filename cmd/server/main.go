package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RyanrealAF/Labcoat/internal/adapters/search"
	"github.com/RyanrealAF/Labcoat/internal/adapters/storage/memory"
	redisstorage "github.com/RyanrealAF/Labcoat/internal/adapters/storage/redis"
	"github.com/RyanrealAF/Labcoat/internal/app"
	"github.com/RyanrealAF/Labcoat/internal/config"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
	"github.com/RyanrealAF/Labcoat/internal/core/services"
	"github.com/RyanrealAF/Labcoat/internal/logging"
	"github.com/RyanrealAF/Labcoat/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core, err := app.NewCore(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to init core")
	}
	defer core.Close()

	if err := core.SchemaGate.CheckSchema(ctx); err != nil {
		// Requests are refused by the gate until `sentinelctl migrate` runs.
		logging.Warn().Err(err).Msg("schema gate not satisfied at startup")
	}

	storage, closeFn, err := initStorage(cfg.Storage)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to init storage")
	}
	defer closeFn()

	limiter, err := services.NewRateLimiterService(storage, services.Config{
		Rule:     cfg.RateLimiter.Rule,
		Fallback: memory.New(),
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create limiter")
	}

	searcher := search.NewHTTPSearcher(search.Config{URL: cfg.Search.UpstreamURL})

	router := app.NewRouter(app.RouterDeps{
		Ledger:     core.Ledger,
		Bans:       core.Bans,
		Searcher:   searcher,
		Limiter:    limiter,
		KillSwitch: core.KillSwitch,
		SchemaGate: core.SchemaGate,
		Bindings: map[string]bool{
			"postgres": true,
			"redis":    cfg.Storage.Type == "redis",
			"search":   searcher.Configured(),
			"alerts":   cfg.Alert.SlackWebhookURL != "",
		},
		Health:         app.HealthChecks(storage, core.Alerter),
		AppendTimeout:  cfg.Sentinel.CallTimeout,
		TrustedProxies: cfg.Server.TrustedProxies,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())
	tree.AddDetectionService(supervisor.NewSchedulerService(core.Sentinel, cfg.Sentinel.ScanInterval))
	tree.AddAPIService(supervisor.NewHTTPService(srv, 10*time.Second))

	logging.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage.Type).Msg("sentinel starting")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("supervisor stopped")
	}
	logging.Info().Msg("shutdown complete")
}

func initStorage(cfg config.StorageConfig) (ports.CounterCache, func(), error) {
	switch cfg.Type {
	case "redis":
		redisCfg := redisstorage.Config{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		storage, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, nil, err
		}
		return storage, func() {
			if err := storage.Close(); err != nil {
				logging.Error().Err(err).Msg("failed to close redis storage")
			}
		}, nil
	case "memory":
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
