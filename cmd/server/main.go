package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ordermgr/internal/app"
	"ordermgr/internal/cache"
	"ordermgr/internal/config"
	"ordermgr/internal/db"
	"ordermgr/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// @title Order Management API
// @version 1.0
// @description Order management with cookie sessions, profit rollups and admin user management.
// @host localhost:5000
// @BasePath /
// @schemes http
// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name session
func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Env: cfg.Env, Level: cfg.LogLevel})

	if cfg.SessionSecret == "change-me" && !cfg.IsDevelopment() {
		log.Fatal().Msg("SESSION_SECRET must be set outside development")
	}

	gormDB, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("database init")
	}

	if cfg.ResetDB {
		log.Warn().Msg("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			log.Warn().Err(err).Msg("failed to drop tables")
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	var cacheClient *cache.Client
	if cfg.Redis.Addr != "" {
		cacheClient = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := cacheClient.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable; session revocation and shared rate limits degrade")
		}
		cancel()
		defer cacheClient.Close()
	}

	application, err := app.New(cfg, log, gormDB, cacheClient)
	if err != nil {
		log.Fatal().Err(err).Msg("app init")
	}

	swaggerHost := cfg.SwaggerHost
	if swaggerHost == "" {
		swaggerHost = "localhost:" + cfg.ServerPort
	}
	log.Info().Msgf("Swagger documentation available at: http://%s/swagger/index.html", swaggerHost)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.ServerPort
		log.Info().Str("addr", addr).Str("driver", cfg.DB.Driver).Msg("server starting")
		if err := application.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Echo.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
