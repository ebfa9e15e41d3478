// Package main starts the citizen alert relay API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bolle-sn/citizen-relay/internal/api"
	"github.com/bolle-sn/citizen-relay/internal/core/service"
	"github.com/bolle-sn/citizen-relay/internal/infrastructure/config"
	mongodb "github.com/bolle-sn/citizen-relay/internal/infrastructure/db/mongo"
	redisdb "github.com/bolle-sn/citizen-relay/internal/infrastructure/db/redis"
	"github.com/bolle-sn/citizen-relay/internal/infrastructure/forwarder"
	"github.com/bolle-sn/citizen-relay/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// run is the testable entrypoint for the application.
func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
	})
	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("starting citizen relay API")

	// --- Datastores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	// --- Bootstrap: indexes and the agency catalog ---
	userRepo := mongodb.NewUserRepository(db)
	alertRepo := mongodb.NewAlertRepository(db)
	agencyRepo := mongodb.NewAgencyRepository(db)
	for _, ensure := range []func(context.Context) error{
		userRepo.EnsureIndexes,
		alertRepo.EnsureIndexes,
		agencyRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return err
		}
	}

	registry := service.NewRegistryService(
		agencyRepo,
		forwarder.NewHTTPForwarder(cfg.PrimaryServiceKey(), cfg.HygieneImportAPIKey, log),
		service.DefaultAgencies(
			cfg.Agencies.HygieneURL,
			cfg.Agencies.PoliceURL,
			cfg.Agencies.DouaneURL,
			cfg.Agencies.GendarmerieURL,
		),
		log,
	)
	if inserted, err := registry.Seed(ctx); err != nil {
		log.Warn().Err(err).Msg("agency catalog seeding failed")
	} else if inserted > 0 {
		log.Info().Int("inserted", inserted).Msg("agency catalog seeded")
	}

	// --- HTTP server ---
	e, err := api.NewRouter(cfg, db, rdb, log)
	if err != nil {
		return err
	}

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		os.Exit(1)
	}
}
