// Package main provides the entry point for the short URL service.
package main

import (
	"context"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"shorturl-backend/internal/analytics"
	"shorturl-backend/internal/auth"
	"shorturl-backend/internal/cache"
	"shorturl-backend/internal/config"
	"shorturl-backend/internal/database"
	"shorturl-backend/internal/geoip"
	httpHandler "shorturl-backend/internal/handler/http"
	"shorturl-backend/internal/repository/postgres"
	"shorturl-backend/internal/service"
	"shorturl-backend/pkg/logger"
	"shorturl-backend/pkg/useragent"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting short URL service", zap.String("env", cfg.Env))

	// Durable store
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	// Optional backends. Either may be disabled or unreachable; the
	// service still runs with no-op fallbacks.
	urlCache := cache.New(&cfg.Cache, log)
	geo := geoip.New(&cfg.GeoIP, log)
	uaParser := useragent.NewParser()

	storage := postgres.New(db, log)
	shortener := service.NewShorten(storage, urlCache, &cfg.Shortener, log)
	histories := service.NewHistory(storage, geo, uaParser, log)

	// Background access recording
	processor := analytics.NewProcessor(histories, cfg.Analytics, log)
	if err := processor.Start(); err != nil {
		log.Fatal("failed to start analytics processor", zap.Error(err))
	}

	// Authentication
	jwtService := auth.NewJWTService(&cfg.Auth)
	tokenStore := auth.NewTokenStore(time.Minute)
	tokenStore.Start()
	authHandlers, err := auth.NewHandlers(&cfg.Auth, jwtService, tokenStore, log)
	if err != nil {
		log.Fatal("failed to initialize auth handlers", zap.Error(err))
	}
	authMiddleware := auth.NewMiddleware(jwtService, tokenStore, cfg.Auth.APIKey, log)

	apiServer := httpHandler.NewServer(
		storage,
		shortener,
		histories,
		processor,
		authHandlers,
		authMiddleware,
		&cfg.Shortener,
		log,
	)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      apiServer.SetupRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	log.Info("starting HTTP server", zap.String("address", cfg.HTTPServer.Address))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down short URL service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop accepting requests first, then drain the analytics queue so
	// in-flight events still reach the store.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	if err := processor.Stop(); err != nil {
		log.Error("failed to stop analytics processor", zap.Error(err))
	}
	tokenStore.Stop()
}
