package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/showrunner/showrunner/internal/api"
	"github.com/showrunner/showrunner/internal/auth"
	"github.com/showrunner/showrunner/internal/catalog"
	"github.com/showrunner/showrunner/internal/config"
	"github.com/showrunner/showrunner/internal/database"
	"github.com/showrunner/showrunner/internal/logger"
	"github.com/showrunner/showrunner/internal/mirror"
	"github.com/showrunner/showrunner/internal/scheduler"
	"github.com/showrunner/showrunner/internal/scheduler/tasks"
	"github.com/showrunner/showrunner/internal/startup"
	syncengine "github.com/showrunner/showrunner/internal/sync"
	"github.com/showrunner/showrunner/internal/watchlist"
	"github.com/showrunner/showrunner/internal/websocket"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// A missing .env is fine; env vars may come from the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Msg("starting Showrunner")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	log.Info().Msg("running database migrations")
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	catalogClient := catalog.New(cfg.Catalog, log.Logger)
	if !catalogClient.IsConfigured() {
		log.Warn().Msg("no catalog access token configured, remote fetches will fail")
	}

	mirrorStore := mirror.NewStore(db.Conn(), log.Logger)
	configStore := mirror.NewConfigStore(db.Conn(), log.Logger)
	watchlistStore := watchlist.NewStore(db.Conn(), log.Logger)

	authService, err := auth.NewService(watchlistStore, cfg.Auth.JWTSecret, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth service")
	}

	hub := websocket.NewHub(log.Logger)
	go hub.Run()

	engine := syncengine.New(catalogClient, mirrorStore, configStore, watchlistStore, hub, cfg.Catalog.Language, log.Logger)

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}

	if err := tasks.RegisterShowRefreshTask(sched, engine, cfg.Sync.ShowRefreshCron, cfg.Sync.RunOnStart, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("failed to register show refresh task")
	}

	if err := tasks.RegisterConfigRefreshTask(sched, engine, cfg.Sync.ConfigRefreshCron, cfg.Sync.RunOnStart, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("failed to register config refresh task")
	}

	// Warm the remote configuration when none is cached, so image URL
	// building works on the very first request. Retried with backoff in
	// case the network is still coming up.
	if configStore.Current() == nil {
		go func() {
			err := startup.WithRetry(
				context.Background(),
				"initial configuration fetch",
				startup.DefaultRetryConfig(),
				func() error {
					return engine.RefreshConfiguration(context.Background())
				},
				&log.Logger,
			)
			if err != nil {
				log.Warn().Err(err).Msg("remote configuration unavailable, image URLs degraded until next refresh")
			}
		}()
	}

	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	server := api.NewServer(engine, authService, watchlistStore, configStore, catalogClient, sched, hub, cfg, log.Logger)

	go func() {
		if err := server.Start(cfg.Server.Address()); err != nil {
			log.Info().Msg("server stopped")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown error")
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
}
