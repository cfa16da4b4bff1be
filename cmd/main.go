package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"microurl/cmd/buildcfg"
	"microurl/internal/api"
	"microurl/internal/cache"
	"microurl/internal/repo"
	"microurl/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrate := flag.String("migrate", "up", "migration direction to apply at startup (up|down)")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := buildcfg.Load(*configPath)
	if err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildcfg.BuildServerConfig(cfg, &log)

	dbCfg, err := buildcfg.BuildDBConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build DB config")
	}
	db, err := sql.Open("postgres", dbCfg.DSN)
	if err != nil {
		log.Fatal().Msgf("failed to open DB: %v", err)
	}
	db.SetMaxOpenConns(dbCfg.MaxOpenConns)
	db.SetMaxIdleConns(dbCfg.MaxIdleConns)
	db.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)
	if err := db.Ping(); err != nil {
		log.Fatal().Msgf("DB ping failed: %v", err)
	}
	log.Info().Msg("Database connected successfully")

	redisCfg := buildcfg.BuildRedisConfig(cfg, &log)
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// The cache is advisory; boot degrades to store-only.
		log.Warn().Msgf("failed to ping Redis, continuing without cache warmup: %v", err)
	} else {
		log.Info().Msg("Redis connected successfully")
	}

	repository, err := repo.NewRepository(db, &log)
	if err != nil {
		log.Fatal().Msgf("failed to initialize repository: %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot get working directory")
	}
	migrationPath := filepath.Join(cwd, "migrations/postgres")
	switch *migrate {
	case "up":
		if err := repository.MigrateUp(ctx, migrationPath); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
	case "down":
		if err := repository.MigrateDown(ctx, migrationPath); err != nil {
			log.Fatal().Err(err).Msg("rollback failed")
		}
		return
	default:
		log.Fatal().Msgf("unknown migrate direction %q", *migrate)
	}

	cacheCfg, err := buildcfg.BuildCacheConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load cache config")
	}
	redisCache := cache.NewRedis(rdb, cacheCfg.TTL, cacheCfg.Timeout)

	svc := service.New(repository, redisCache, &log)
	app := api.NewRouters(&api.Routers{
		Service: svc,
		BaseURL: serverCfg.BaseURL,
		Log:     &log,
	})

	server := &http.Server{
		Addr:         ":" + serverCfg.Port,
		Handler:      app,
		WriteTimeout: serverCfg.WriteTimeout,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Msgf("Error shutting down server: %v", err)
	}

	if err := rdb.Close(); err != nil {
		log.Error().Msgf("Error closing Redis client: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Error().Msgf("Error closing DB: %v", err)
	}

	log.Info().Msg("Shutdown complete")
}
