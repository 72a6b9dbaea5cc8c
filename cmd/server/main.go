package main

import (
	"context"
	"fmt"

	"github.com/consultamed/auth-core/internal/config"
	"github.com/consultamed/auth-core/internal/handler/http"
	"github.com/consultamed/auth-core/internal/kvstore"
	"github.com/consultamed/auth-core/internal/logger"
	"github.com/consultamed/auth-core/internal/server"
	"github.com/consultamed/auth-core/internal/service"
	"github.com/consultamed/auth-core/internal/workers"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("consultamed-auth")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	log.Debug().Any("config", cfg).Msg("received configs")

	ctx := context.Background()

	store, err := newStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating key-value store")
	}
	if err = store.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("key-value store is unreachable")
	}

	records := kvstore.NewRecords(store, log)
	services := service.NewServices(records, cfg, log)

	handler := http.NewHandler(services, http.NewMetrics(), cfg.Server.RequestTimeout, log)

	workers.NewWorkers(records, cfg, log).Run()

	srv, err := server.NewServer(handler.Init(), cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
}

// newStore resolves the configured key-value backend exactly once at startup.
func newStore(ctx context.Context, cfg *config.StructuredConfig, log *logger.Logger) (kvstore.KeyValueStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return kvstore.NewMemoryStore(), nil
	case config.BackendPostgres:
		return kvstore.NewConnectPostgres(ctx, cfg.Storage.DB, log)
	case config.BackendSQLite:
		return kvstore.NewConnectSQLite(ctx, cfg.Storage.DB, log)
	case config.BackendRedis:
		return kvstore.NewConnectRedis(ctx, cfg.Storage.Redis, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
